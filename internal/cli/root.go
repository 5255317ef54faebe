// Package cli implements the postsearch command line: offline search over a
// posts file plus the text and randomization helpers.
package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "postsearch",
	Short:         "Search blog posts from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetupWriter(cmd.ErrOrStderr(), logLevel, "text")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// Execute runs the root command with args, writing to out and errOut.
func Execute(args []string, out, errOut io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	return rootCmd.Execute()
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)
