package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePosts = `[
	{"id":"rust-intro","title":"Intro to Rust","description":"Memory safety without GC","keywords":["rust","systems"]},
	{"id":"go-chan","title":"Go channels","description":"Goroutines and channels","keywords":["go"]},
	{"id":"broken","title":"Missing keywords"}
]`

// run executes the CLI with flags reset to their defaults.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	err := Execute(args, &out, &errOut)
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSearchCmd_RequiresPostsFlag(t *testing.T) {
	_, err := run(t, "search", "rust")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "posts")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := run(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	posts := writeFile(t, "posts.json", samplePosts)

	out, err := run(t, "search", "rust", "--posts", posts)
	require.NoError(t, err)
	assert.Contains(t, out, "[1]")
	assert.Contains(t, out, "rust-intro")
	assert.Contains(t, out, "keywords: rust")
	assert.Contains(t, out, "memory safety without gc")
	assert.NotContains(t, out, "go-chan")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	posts := writeFile(t, "posts.json", samplePosts)

	out, err := run(t, "search", "channels", "-p", posts, "--json", "-n", "1")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "go-chan", results[0]["id"])
}

func TestSearchCmd_NoResults(t *testing.T) {
	posts := writeFile(t, "posts.json", samplePosts)
	out, err := run(t, "search", "cobol", "--posts", posts)
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_RejectsBadLimit(t *testing.T) {
	posts := writeFile(t, "posts.json", samplePosts)
	_, err := run(t, "search", "rust", "--posts", posts, "--limit", "0")
	assert.Error(t, err)
}

func TestTagCmd(t *testing.T) {
	posts := writeFile(t, "posts.json", samplePosts)
	out, err := run(t, "tag", "GO", "--posts", posts, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "go-chan"`)
	assert.Contains(t, out, `"score": 100`)
}

func TestStatsCmd(t *testing.T) {
	posts := writeFile(t, "posts.json", samplePosts)

	out, err := run(t, "stats", "--posts", posts, "--json")
	require.NoError(t, err)
	var stats map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats["total_posts"])
	assert.Equal(t, 3, stats["indexed_keywords"])

	out, err = run(t, "stats", "--posts", posts)
	require.NoError(t, err)
	assert.Contains(t, out, "rejected:")
}

func TestSearchCmd_MissingFile(t *testing.T) {
	_, err := run(t, "stats", "--posts", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestSlugCmd(t *testing.T) {
	out, err := run(t, "slug", "Hello", "World_of Go!")
	require.NoError(t, err)
	assert.Equal(t, "hello-world-of-go\n", out)
}

func TestReadingTimeCmd(t *testing.T) {
	file := writeFile(t, "post.md", strings.Repeat("word ", 250))

	out, err := run(t, "reading-time", file)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "reading-time", file, "--wpm", "500")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestHeadingsCmd(t *testing.T) {
	file := writeFile(t, "post.md", "# Title\nbody\n## Section\n")
	out, err := run(t, "headings", file)
	require.NoError(t, err)

	var headings []string
	require.NoError(t, json.Unmarshal([]byte(out), &headings))
	assert.Equal(t, []string{"Title", "Section"}, headings)
}

func TestShuffleAndSampleCmds(t *testing.T) {
	out, err := run(t, "shuffle", `[1,2,3]`)
	require.NoError(t, err)
	var shuffled []int
	require.NoError(t, json.Unmarshal([]byte(out), &shuffled))
	assert.ElementsMatch(t, []int{1, 2, 3}, shuffled)

	out, err = run(t, "sample", `[1,2,3]`, "--count", "2")
	require.NoError(t, err)
	var sampled []int
	require.NoError(t, json.Unmarshal([]byte(out), &sampled))
	assert.Len(t, sampled, 2)

	out, err = run(t, "shuffle", `not json`)
	require.NoError(t, err)
	assert.Equal(t, "not json\n", out)
}

func TestRangeCmd(t *testing.T) {
	out, err := run(t, "range", "5", "1")
	require.NoError(t, err)
	n, err := strconv.Atoi(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 5)

	_, err = run(t, "range", "x", "1")
	assert.Error(t, err)
}

func TestRangeCmd_FullIntRange(t *testing.T) {
	out, err := run(t, "range", "--", "-9223372036854775808", "9223372036854775807")
	require.NoError(t, err)
	_, err = strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	assert.NoError(t, err)
}

func TestLoadtestCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	out, err := run(t, "loadtest", "--url", srv.URL, "-c", "1", "-d", "50ms", "--rps", "40", "-q", "rust")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Results ===")
	assert.Contains(t, out, "200:")
}
