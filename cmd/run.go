package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/band"
	"github.com/mj1618/onboard-cli/internal/orchestrator"
	"github.com/mj1618/onboard-cli/internal/output"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play the onboarding sequence over a range of targets",
	Long: `Run the full step sequence for every target from --start-target down to
--end-target, repeated --cycles times. --start-step resumes the very first
target part-way through; every other target starts at step 1.

A failed target is logged and the run moves on. Ctrl-C stops after the
current step and prints the partial summary.

Examples:
  onboard-cli run --start-target 600 --end-target 590
  onboard-cli run -c 2 --start-target 619 --end-target 610 --start-step 12
  onboard-cli run --interactive`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntP("cycles", "c", 1, "Passes over the target range")
	runCmd.Flags().Int("start-target", band.MaxTarget, "First (highest) target")
	runCmd.Flags().Int("end-target", 1, "Last (lowest) target")
	runCmd.Flags().Int("start-step", 1, "Step to resume the first target from")
	runCmd.Flags().BoolP("interactive", "i", false, "Prompt for range and start step values not given as flags")
}

func runRun(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	plan := orchestrator.Plan{}
	plan.Cycles, _ = flags.GetInt("cycles")
	plan.StartTarget, _ = flags.GetInt("start-target")
	plan.EndTarget, _ = flags.GetInt("end-target")
	plan.StartStep, _ = flags.GetInt("start-step")

	b, err := openBot(cmd)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	if interactive, _ := flags.GetBool("interactive"); interactive {
		p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
		if err := p.fill(&plan, b.Catalog.Max(), flags.Changed); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := b.Run(ctx, plan)
	if errors.Is(err, context.Canceled) {
		loggerFrom(cmd).Warn("run interrupted", zap.Int("completed", sum.Total))
		_ = output.Print(sum)
		fmt.Fprintln(cmd.ErrOrStderr(), sum.String())
		return &exitError{code: 130, err: fmt.Errorf("interrupted: %w", err)}
	}
	if err != nil {
		return err
	}
	if err := output.Print(sum); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), sum.String())
	return nil
}

// prompter asks for plan values on a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	eof bool
}

// fill prompts for every plan value whose flag was not set. An
// out-of-range start step falls back to 1. An inverted target range is
// asked again until input runs out.
func (p *prompter) fill(plan *orchestrator.Plan, maxStep int, changed func(string) bool) error {
	for {
		if !changed("start-target") {
			v, err := p.int(fmt.Sprintf("Start target (default %d): ", band.MaxTarget), band.MaxTarget)
			if err != nil {
				return err
			}
			plan.StartTarget = v
		}
		if !changed("end-target") {
			v, err := p.int("End target (default 1): ", 1)
			if err != nil {
				return err
			}
			plan.EndTarget = v
		}
		if plan.StartTarget >= plan.EndTarget {
			break
		}
		if p.eof || (changed("start-target") && changed("end-target")) {
			return fmt.Errorf("%w: start target %d is below end target %d",
				orchestrator.ErrInvalidPlan, plan.StartTarget, plan.EndTarget)
		}
		fmt.Fprintln(p.out, "The start target must be greater than or equal to the end target.")
	}

	if !changed("start-step") {
		v, err := p.int("Start step for the first target (default 1): ", 1)
		if err != nil {
			return err
		}
		if v < 1 || v > maxStep {
			fmt.Fprintf(p.out, "Step %d is outside 1-%d, using step 1.\n", v, maxStep)
			v = 1
		}
		plan.StartStep = v
	}
	return nil
}

// int reads one integer, re-asking until the answer parses. An empty
// answer selects def.
func (p *prompter) int(label string, def int) (int, error) {
	for {
		fmt.Fprint(p.out, label)
		line, err := p.in.ReadString('\n')
		if err == io.EOF {
			p.eof = true
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil && err != io.EOF {
				return 0, err
			}
			return def, nil
		}
		if v, perr := strconv.Atoi(line); perr == nil {
			return v, nil
		}
		fmt.Fprintln(p.out, "Please enter a whole number.")
		if err == io.EOF {
			return def, nil
		}
	}
}
