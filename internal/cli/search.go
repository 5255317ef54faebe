package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
)

var (
	postsFile  string
	cacheSize  int
	searchN    int
	outputJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over a posts file",
	Long: `Loads a JSON array of posts, indexes titles, descriptions and keywords,
and prints the best matches for the query with snippets.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var tagCmd = &cobra.Command{
	Use:   "tag [tag]",
	Short: "List posts carrying a keyword",
	Args:  cobra.ExactArgs(1),
	RunE:  runTag,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics for a posts file",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	for _, cmd := range []*cobra.Command{searchCmd, tagCmd, statsCmd} {
		cmd.Flags().StringVarP(&postsFile, "posts", "p", "", "path to a JSON array of posts")
		_ = cmd.MarkFlagRequired("posts")
		cmd.Flags().IntVar(&cacheSize, "cache-size", 1000, "normalization cache entries (0 disables)")
		cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(cmd)
	}
	searchCmd.Flags().IntVarP(&searchN, "limit", "n", 10, "maximum number of results")
}

func loadEngine(ctx context.Context) (*engine.SearchEngine, corpus.Report, error) {
	eng := engine.New(config.EngineConfig{NormalizerCacheSize: cacheSize}, nil)
	report, err := corpus.Seed(ctx, eng, corpus.FileSource{Path: postsFile}, nil)
	if err != nil {
		return nil, report, fmt.Errorf("loading posts: %w", err)
	}
	return eng, report, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchN < 1 {
		return fmt.Errorf("--limit must be positive, got %d", searchN)
	}
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	results := eng.Search(args[0], searchN)
	if outputJSON {
		return printJSON(cmd, results)
	}
	printResults(cmd, results)
	return nil
}

func runTag(cmd *cobra.Command, args []string) error {
	eng, _, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	results := eng.SearchByTag(args[0])
	if outputJSON {
		return printJSON(cmd, results)
	}
	printResults(cmd, results)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	eng, report, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}
	stats := eng.Stats()
	if outputJSON {
		return printJSON(cmd, stats)
	}
	cmd.Printf("%s %d\n", labelStyle.Render("posts:   "), stats.TotalPosts)
	cmd.Printf("%s %d\n", labelStyle.Render("words:   "), stats.IndexedWords)
	cmd.Printf("%s %d\n", labelStyle.Render("keywords:"), stats.IndexedKeywords)
	if report.Rejected > 0 {
		cmd.Printf("%s %d\n", labelStyle.Render("rejected:"), report.Rejected)
	}
	return nil
}

func printResults(cmd *cobra.Command, results []ranker.ScoredDoc) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, r := range results {
		cmd.Printf("  [%d] %s %s\n", i+1, titleStyle.Render(r.DocID), scoreStyle.Render(fmt.Sprintf("(%.2f)", r.Score)))
		var matched []string
		if r.TitleMatch {
			matched = append(matched, "title")
		}
		if r.DescriptionMatch {
			matched = append(matched, "description")
		}
		if len(r.KeywordMatches) > 0 {
			matched = append(matched, "keywords: "+strings.Join(r.KeywordMatches, ", "))
		}
		if len(matched) > 0 {
			cmd.Printf("      matched %s\n", strings.Join(matched, "; "))
		}
		if r.Snippet != nil {
			cmd.Printf("      %s\n", snippetStyle.Render(*r.Snippet))
		}
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
