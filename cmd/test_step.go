package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/band"
	"github.com/mj1618/onboard-cli/internal/output"
)

var testStepCmd = &cobra.Command{
	Use:   "test-step <n>",
	Short: "Run a single catalog step",
	Long: `Run one step of the catalog against the current screen. The step's
precondition is evaluated as in a full run. --target sets the target used by
select_target steps.

Examples:
  onboard-cli test-step 3
  onboard-cli test-step 6 --target 604`,
	Args: cobra.ExactArgs(1),
	RunE: runTestStep,
}

func init() {
	rootCmd.AddCommand(testStepCmd)
	testStepCmd.Flags().Int("target", band.MaxTarget, "Target for select_target steps")
}

func runTestStep(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid step %q: %w", args[0], err)
	}
	target, _ := cmd.Flags().GetInt("target")

	b, err := openBot(cmd)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	res, err := b.RunStep(cmd.Context(), n, target)
	if perr := output.Print(res); perr != nil {
		return perr
	}
	return err
}
