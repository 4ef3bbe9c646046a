package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/output"
	"github.com/mj1618/onboard-cli/internal/platform"
)

var testSkipCmd = &cobra.Command{
	Use:   "test-skip",
	Short: "Search for the skip control without tapping it",
	Long: `Run the skip finder against the live screen and report whether and where
the skip control was read. Useful for checking recognition on a new device.

--region limits every search pass to one rectangle, given as x,y,w,h in
device pixels.

Examples:
  onboard-cli test-skip
  onboard-cli test-skip --timeout 3
  onboard-cli test-skip --region 1000,0,280,80`,
	RunE: runTestSkip,
}

func init() {
	rootCmd.AddCommand(testSkipCmd)
	testSkipCmd.Flags().Float64("timeout", 10, "Search budget in seconds")
	testSkipCmd.Flags().String("region", "", "Search only this x,y,w,h rectangle")
}

func runTestSkip(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetFloat64("timeout")
	region, _ := cmd.Flags().GetString("region")

	var adjust []func(*config.Config)
	if region != "" {
		fn, err := skipRegion(region)
		if err != nil {
			return err
		}
		adjust = append(adjust, fn)
	}

	b, err := openBot(cmd, adjust...)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	rep, err := b.TestSkip(cmd.Context(), platform.Seconds(timeout))
	if err != nil {
		return err
	}
	return output.Print(rep)
}
