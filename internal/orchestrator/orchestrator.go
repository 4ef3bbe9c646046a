// Package orchestrator repeats the onboarding run over a range of targets.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/band"
	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/executor"
	"github.com/mj1618/onboard-cli/internal/platform"
)

// ErrInvalidPlan is returned for plans that fail validation.
var ErrInvalidPlan = errors.New("invalid plan")

// Runner executes the catalog for one target.
type Runner interface {
	Run(ctx context.Context, target, startStep int) executor.Result
}

// Plan describes a batch: Cycles passes over targets StartTarget down to
// EndTarget. StartStep applies to the very first target only.
type Plan struct {
	Cycles      int `yaml:"cycles"       json:"cycles"`
	StartTarget int `yaml:"start_target" json:"start_target"`
	EndTarget   int `yaml:"end_target"   json:"end_target"`
	StartStep   int `yaml:"start_step"   json:"start_step"`
}

// Validate checks p against the catalog's last step number.
func (p Plan) Validate(maxStep int) error {
	switch {
	case p.Cycles < 1:
		return fmt.Errorf("%w: cycles must be at least 1, got %d", ErrInvalidPlan, p.Cycles)
	case p.EndTarget < 1 || p.StartTarget > band.MaxTarget:
		return fmt.Errorf("%w: targets must be within 1..%d, got %d..%d", ErrInvalidPlan, band.MaxTarget, p.StartTarget, p.EndTarget)
	case p.StartTarget < p.EndTarget:
		return fmt.Errorf("%w: start target %d is below end target %d", ErrInvalidPlan, p.StartTarget, p.EndTarget)
	case p.StartStep < 1 || p.StartStep > maxStep:
		return fmt.Errorf("%w: start step must be within 1..%d, got %d", ErrInvalidPlan, maxStep, p.StartStep)
	}
	return nil
}

// Targets returns the number of runs the plan performs.
func (p Plan) Targets() int {
	return (p.StartTarget - p.EndTarget + 1) * p.Cycles
}

// RunResult records one target run.
type RunResult struct {
	Target     int           `yaml:"target"                json:"target"`
	Cycle      int           `yaml:"cycle"                 json:"cycle"`
	Succeeded  bool          `yaml:"succeeded"             json:"succeeded"`
	FailedStep int           `yaml:"failed_step,omitempty" json:"failed_step,omitempty"`
	Elapsed    time.Duration `yaml:"elapsed"               json:"elapsed"`
	Error      string        `yaml:"error,omitempty"       json:"error,omitempty"`
}

// Summary aggregates a batch.
type Summary struct {
	Results   []RunResult `yaml:"results"   json:"results"`
	Succeeded int         `yaml:"succeeded" json:"succeeded"`
	Total     int         `yaml:"total"     json:"total"`
}

// String renders the closing line of a batch.
func (s Summary) String() string {
	return fmt.Sprintf("%d of %d succeeded", s.Succeeded, s.Total)
}

// Orchestrator drives a Runner through a Plan.
type Orchestrator struct {
	runner  Runner
	maxStep int
	clock   platform.Clock
	pauses  config.Pauses
	logger  *zap.Logger
}

// New creates an orchestrator. maxStep is the catalog's last step number.
func New(runner Runner, maxStep int, clock platform.Clock, pauses config.Pauses, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		runner:  runner,
		maxStep: maxStep,
		clock:   clock,
		pauses:  pauses,
		logger:  logger.Named("orchestrator"),
	}
}

// Run executes the plan. A failed target is recorded and the batch moves
// on; only cancellation stops it early, returning the partial summary.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (Summary, error) {
	if err := plan.Validate(o.maxStep); err != nil {
		return Summary{}, err
	}
	var sum Summary
	total := plan.Targets()
	o.logger.Info("batch started",
		zap.Int("cycles", plan.Cycles),
		zap.Int("start_target", plan.StartTarget),
		zap.Int("end_target", plan.EndTarget),
		zap.Int("start_step", plan.StartStep),
		zap.Int("runs", total))

	for cycle := 1; cycle <= plan.Cycles; cycle++ {
		o.logger.Info("cycle started", zap.Int("cycle", cycle), zap.Int("cycles", plan.Cycles))
		for target := plan.StartTarget; target >= plan.EndTarget; target-- {
			startStep := 1
			if cycle == 1 && target == plan.StartTarget {
				startStep = plan.StartStep
			}
			o.logger.Info("target started",
				zap.Int("run", len(sum.Results)+1),
				zap.Int("runs", total),
				zap.Int("target", target),
				zap.Int("cycle", cycle),
				zap.Int("start_step", startStep))

			res := o.runner.Run(ctx, target, startStep)
			rr := RunResult{
				Target:     target,
				Cycle:      cycle,
				Succeeded:  res.State == executor.Completed,
				FailedStep: res.FailedStep,
				Elapsed:    res.Elapsed,
			}
			if res.Err != nil {
				rr.Error = res.Err.Error()
			}
			sum.Results = append(sum.Results, rr)
			sum.Total++
			if rr.Succeeded {
				sum.Succeeded++
				o.logger.Info("target succeeded", zap.Int("target", target), zap.Duration("elapsed", rr.Elapsed))
			} else {
				o.logger.Error("target failed", zap.Int("target", target), zap.Int("step", rr.FailedStep), zap.String("error", rr.Error))
			}

			if err := ctx.Err(); err != nil {
				o.finish(sum, total)
				return sum, err
			}
			if target > plan.EndTarget {
				if err := o.pause(ctx, "between targets", o.pauses.BetweenTargets); err != nil {
					o.finish(sum, total)
					return sum, err
				}
			}
		}
		if cycle < plan.Cycles {
			if err := o.pause(ctx, "between cycles", o.pauses.BetweenCycles); err != nil {
				o.finish(sum, total)
				return sum, err
			}
		}
	}
	o.finish(sum, total)
	return sum, nil
}

func (o *Orchestrator) pause(ctx context.Context, what string, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	o.logger.Info("pausing "+what, zap.Duration("duration", d))
	return o.clock.Sleep(ctx, d)
}

func (o *Orchestrator) finish(sum Summary, planned int) {
	rate := 0.0
	if sum.Total > 0 {
		rate = float64(sum.Succeeded) / float64(sum.Total) * 100
	}
	o.logger.Info(sum.String(),
		zap.Int("planned", planned),
		zap.String("success_rate", fmt.Sprintf("%.1f%%", rate)))
}
