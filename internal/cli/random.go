package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/randutil"
)

var sampleCount int

var shuffleCmd = &cobra.Command{
	Use:   "shuffle [json-array]",
	Short: "Shuffle a JSON array",
	Long:  "Prints the array elements in random order. Input that is not a JSON array is echoed unchanged.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(randutil.ShuffleJSONArray(args[0]))
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample [json-array]",
	Short: "Pick random elements from a JSON array",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(randutil.RandomSample(args[0], sampleCount))
	},
}

var rangeCmd = &cobra.Command{
	Use:   "range [min] [max]",
	Short: "Print a random integer between min and max inclusive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lo, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid min %q: %w", args[0], err)
		}
		hi, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid max %q: %w", args[1], err)
		}
		cmd.Println(randutil.RandomRange(lo, hi))
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleCount, "count", "c", 1, "number of elements to pick")
	rootCmd.AddCommand(shuffleCmd, sampleCmd, rangeCmd)
}
