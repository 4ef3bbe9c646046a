// Package executor walks the step catalog for one target.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/action"
	"github.com/mj1618/onboard-cli/internal/catalog"
	"github.com/mj1618/onboard-cli/internal/platform"
)

// State is the executor's lifecycle position.
type State int

const (
	Idle State = iota
	Running
	Failed
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state by name in YAML and JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Dispatcher executes single steps.
type Dispatcher interface {
	Execute(ctx context.Context, step catalog.Step, rc action.RunContext) (action.Outcome, error)
	Check(ctx context.Context, cond *catalog.Condition) bool
}

// StepResult is the output for a single executed step.
type StepResult struct {
	Step         int    `yaml:"step"                    json:"step"`
	Action       string `yaml:"action"                  json:"action"`
	OK           bool   `yaml:"ok"                      json:"ok"`
	Skipped      bool   `yaml:"skipped,omitempty"       json:"skipped,omitempty"`
	Matched      bool   `yaml:"matched,omitempty"       json:"matched,omitempty"`
	UsedFallback bool   `yaml:"used_fallback,omitempty" json:"used_fallback,omitempty"`
	Error        string `yaml:"error,omitempty"         json:"error,omitempty"`
	Elapsed      string `yaml:"elapsed,omitempty"       json:"elapsed,omitempty"`
}

// Result is the outcome of one pass over the catalog.
type Result struct {
	Target     int           `yaml:"target"                json:"target"`
	State      State         `yaml:"state"                 json:"state"`
	FailedStep int           `yaml:"failed_step,omitempty" json:"failed_step,omitempty"`
	Err        error         `yaml:"-"                     json:"-"`
	Steps      []StepResult  `yaml:"steps"                 json:"steps"`
	Elapsed    time.Duration `yaml:"elapsed"               json:"elapsed"`
}

// Executor runs the catalog forward from a start step.
type Executor struct {
	catalog  *catalog.Catalog
	dispatch Dispatcher
	clock    platform.Clock
	logger   *zap.Logger
	state    State
}

// New creates an executor.
func New(c *catalog.Catalog, d Dispatcher, clock platform.Clock, logger *zap.Logger) *Executor {
	return &Executor{catalog: c, dispatch: d, clock: clock, logger: logger.Named("executor")}
}

// State returns the state of the latest run.
func (e *Executor) State() State { return e.state }

// Run executes steps startStep..Max for target. It stops at the first
// failing step.
func (e *Executor) Run(ctx context.Context, target, startStep int) Result {
	e.state = Idle
	start := e.clock.Now()
	res := Result{Target: target}
	log := e.logger.With(zap.Int("target", target))

	steps := e.catalog.Range(startStep, e.catalog.Max())
	log.Info("run started", zap.Int("start_step", startStep), zap.Int("steps", len(steps)))
	e.state = Running

	for _, step := range steps {
		sr, err := e.runStep(ctx, step, target)
		res.Steps = append(res.Steps, sr)
		if err != nil {
			e.state = Failed
			res.FailedStep = step.Number
			res.Err = err
			break
		}
	}
	if e.state == Running {
		e.state = Completed
	}

	res.State = e.state
	res.Elapsed = e.clock.Now().Sub(start)
	if res.State == Failed {
		log.Error("run failed", zap.Int("step", res.FailedStep), zap.Error(res.Err), zap.Duration("elapsed", res.Elapsed))
	} else {
		log.Info("run completed", zap.Duration("elapsed", res.Elapsed))
	}
	return res
}

// RunStep executes the single step n for target.
func (e *Executor) RunStep(ctx context.Context, n, target int) (StepResult, error) {
	step, ok := e.catalog.Get(n)
	if !ok {
		return StepResult{Step: n, Error: "no such step"}, fmt.Errorf("step %d: not in catalog (1..%d)", n, e.catalog.Max())
	}
	return e.runStep(ctx, step, target)
}

func (e *Executor) runStep(ctx context.Context, step catalog.Step, target int) (sr StepResult, err error) {
	sr = StepResult{Step: step.Number, Action: step.Action.Kind()}
	began := e.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %d panicked: %v", step.Number, r)
		}
		if err != nil {
			sr.OK = false
			sr.Error = err.Error()
		}
		sr.Elapsed = e.clock.Now().Sub(began).String()
	}()

	if err := ctx.Err(); err != nil {
		return sr, err
	}
	if !e.dispatch.Check(ctx, step.When) {
		e.logger.Info("step skipped", zap.Int("step", step.Number), zap.Stringer("when", step.When))
		sr.OK, sr.Skipped = true, true
		return sr, nil
	}

	out, err := e.dispatch.Execute(ctx, step, action.RunContext{Target: target})
	if err != nil {
		return sr, fmt.Errorf("step %d (%s): %w", step.Number, step.Action.Kind(), err)
	}
	sr.OK = true
	sr.Matched = out.Matched
	sr.UsedFallback = out.UsedFallback
	return sr, nil
}
