package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/textutil"
)

var wordsPerMinute int

var slugCmd = &cobra.Command{
	Use:   "slug [text...]",
	Short: "Print a URL slug for the text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(textutil.Slug(strings.Join(args, " ")))
	},
}

var readingTimeCmd = &cobra.Command{
	Use:   "reading-time [file]",
	Short: "Estimate reading time of a file in minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		cmd.Println(textutil.ReadingTime(string(text), wordsPerMinute))
		return nil
	},
}

var headingsCmd = &cobra.Command{
	Use:   "headings [file]",
	Short: "List markdown headings in a file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		return printJSON(cmd, textutil.ExtractHeadings(string(text)))
	},
}

func init() {
	readingTimeCmd.Flags().IntVar(&wordsPerMinute, "wpm", 200, "reading speed in words per minute")
	rootCmd.AddCommand(slugCmd, readingTimeCmd, headingsCmd)
}
