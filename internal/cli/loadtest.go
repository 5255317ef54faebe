package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/loadtest"
)

var (
	loadURL         string
	loadConcurrency int
	loadDuration    time.Duration
	loadRPS         float64
	loadQueries     []string
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive search traffic against a running searcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadtest.Config{
			BaseURL:     loadURL,
			Concurrency: loadConcurrency,
			Duration:    loadDuration,
			RPS:         loadRPS,
			Queries:     loadQueries,
		}
		cmd.Printf("Target: %s  concurrency: %d  duration: %s\n\n", cfg.BaseURL, cfg.Concurrency, cfg.Duration)
		report, err := loadtest.Run(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		report.WriteText(cmd.OutOrStdout())
		if report.Total == 0 {
			cmd.PrintErrln("WARNING: no requests completed. Is the service running?")
		}
		return nil
	},
}

func init() {
	loadtestCmd.Flags().StringVar(&loadURL, "url", "http://localhost:8080", "base URL of the search service")
	loadtestCmd.Flags().IntVarP(&loadConcurrency, "concurrency", "c", 10, "number of concurrent workers")
	loadtestCmd.Flags().DurationVarP(&loadDuration, "duration", "d", 30*time.Second, "test duration")
	loadtestCmd.Flags().Float64Var(&loadRPS, "rps", 0, "total request rate cap (0 for unlimited)")
	loadtestCmd.Flags().StringSliceVarP(&loadQueries, "query", "q", nil, "query to send (repeatable; defaults to a built-in mix)")
	rootCmd.AddCommand(loadtestCmd)
}
