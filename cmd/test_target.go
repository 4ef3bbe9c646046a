package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/output"
)

var testTargetCmd = &cobra.Command{
	Use:   "test-target <id>",
	Short: "Open a target's band and locate it without tapping",
	Long: `Activate the band that owns the target, scroll the list until the target
is visible and report where it was read. The target itself is not tapped.

Run this from the target picker screen.

Examples:
  onboard-cli test-target 604
  onboard-cli test-target 300 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runTestTarget,
}

func init() {
	rootCmd.AddCommand(testTargetCmd)
}

func runTestTarget(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", args[0], err)
	}

	b, err := openBot(cmd)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	rep, err := b.TestTarget(cmd.Context(), id)
	if err != nil {
		return err
	}
	return output.Print(rep)
}
