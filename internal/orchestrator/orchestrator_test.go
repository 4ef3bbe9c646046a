package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/executor"
	"github.com/mj1618/onboard-cli/internal/platform/platformtest"
)

type call struct{ target, startStep int }

type fakeRunner struct {
	calls  []call
	failAt map[int]bool
	onRun  func(target int)
}

func (f *fakeRunner) Run(_ context.Context, target, startStep int) executor.Result {
	f.calls = append(f.calls, call{target, startStep})
	if f.onRun != nil {
		f.onRun(target)
	}
	if f.failAt[target] {
		return executor.Result{Target: target, State: executor.Failed, FailedStep: 5, Err: errors.New("target not found")}
	}
	return executor.Result{Target: target, State: executor.Completed, Elapsed: time.Minute}
}

func newOrchestrator(r Runner, clock *platformtest.Clock, logger *zap.Logger) *Orchestrator {
	return New(r, 97, clock, config.Default().Pauses, logger)
}

func TestRun_CyclesOverRange(t *testing.T) {
	r := &fakeRunner{}
	clock := platformtest.NewClock()
	o := newOrchestrator(r, clock, zap.NewNop())

	sum, err := o.Run(context.Background(), Plan{Cycles: 2, StartTarget: 5, EndTarget: 3, StartStep: 7})
	require.NoError(t, err)
	assert.Equal(t, []call{{5, 7}, {4, 1}, {3, 1}, {5, 1}, {4, 1}, {3, 1}}, r.calls)
	assert.Len(t, sum.Results, 6)
	assert.Equal(t, 6, sum.Succeeded)
	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, 2, sum.Results[3].Cycle)

	// Two target pauses per cycle and one cycle pause.
	p := config.Default().Pauses
	assert.Equal(t, []time.Duration{
		p.BetweenTargets, p.BetweenTargets, p.BetweenCycles,
		p.BetweenTargets, p.BetweenTargets,
	}, clock.Sleeps)
}

func TestRun_FailureContinues(t *testing.T) {
	r := &fakeRunner{failAt: map[int]bool{4: true}}
	o := newOrchestrator(r, platformtest.NewClock(), zap.NewNop())

	sum, err := o.Run(context.Background(), Plan{Cycles: 1, StartTarget: 5, EndTarget: 3, StartStep: 1})
	require.NoError(t, err)
	assert.Equal(t, []call{{5, 1}, {4, 1}, {3, 1}}, r.calls)
	assert.Equal(t, 2, sum.Succeeded)
	assert.False(t, sum.Results[1].Succeeded)
	assert.Equal(t, 5, sum.Results[1].FailedStep)
	assert.Equal(t, "target not found", sum.Results[1].Error)
	assert.Equal(t, "2 of 3 succeeded", sum.String())
}

func TestRun_SingleTargetDoesNotPause(t *testing.T) {
	clock := platformtest.NewClock()
	o := newOrchestrator(&fakeRunner{}, clock, zap.NewNop())

	_, err := o.Run(context.Background(), Plan{Cycles: 1, StartTarget: 600, EndTarget: 600, StartStep: 1})
	require.NoError(t, err)
	assert.Empty(t, clock.Sleeps)
}

func TestRun_CancelReturnsPartialSummary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRunner{onRun: func(target int) {
		if target == 4 {
			cancel()
		}
	}}
	o := newOrchestrator(r, platformtest.NewClock(), zap.NewNop())

	sum, err := o.Run(ctx, Plan{Cycles: 1, StartTarget: 5, EndTarget: 3, StartStep: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sum.Results, 2)
}

func TestRun_LogsSummaryLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := &fakeRunner{failAt: map[int]bool{3: true}}
	o := newOrchestrator(r, platformtest.NewClock(), zap.New(core))

	_, err := o.Run(context.Background(), Plan{Cycles: 1, StartTarget: 4, EndTarget: 3, StartStep: 1})
	require.NoError(t, err)
	entries := logs.FilterMessage("1 of 2 succeeded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "50.0%", entries[0].ContextMap()["success_rate"])
	assert.Equal(t, 1, logs.FilterMessage("target failed").Len())
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		ok   bool
	}{
		{"defaults", Plan{Cycles: 1, StartTarget: 619, EndTarget: 1, StartStep: 1}, true},
		{"last step", Plan{Cycles: 1, StartTarget: 10, EndTarget: 10, StartStep: 97}, true},
		{"no cycles", Plan{Cycles: 0, StartTarget: 10, EndTarget: 1, StartStep: 1}, false},
		{"target too high", Plan{Cycles: 1, StartTarget: 620, EndTarget: 1, StartStep: 1}, false},
		{"target zero", Plan{Cycles: 1, StartTarget: 10, EndTarget: 0, StartStep: 1}, false},
		{"inverted", Plan{Cycles: 1, StartTarget: 5, EndTarget: 6, StartStep: 1}, false},
		{"step zero", Plan{Cycles: 1, StartTarget: 5, EndTarget: 1, StartStep: 0}, false},
		{"step past end", Plan{Cycles: 1, StartTarget: 5, EndTarget: 1, StartStep: 98}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate(97)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPlan)
			}
		})
	}
}

func TestRun_InvalidPlanRunsNothing(t *testing.T) {
	r := &fakeRunner{}
	o := newOrchestrator(r, platformtest.NewClock(), zap.NewNop())
	_, err := o.Run(context.Background(), Plan{Cycles: 1, StartTarget: 3, EndTarget: 5, StartStep: 1})
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Empty(t, r.calls)
}

func TestProperty_RunOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		end := rapid.IntRange(1, 619).Draw(rt, "end")
		start := rapid.IntRange(end, min(end+15, 619)).Draw(rt, "start")
		cycles := rapid.IntRange(1, 3).Draw(rt, "cycles")
		step := rapid.IntRange(1, 97).Draw(rt, "step")

		r := &fakeRunner{}
		o := newOrchestrator(r, platformtest.NewClock(), zap.NewNop())
		sum, err := o.Run(context.Background(), Plan{Cycles: cycles, StartTarget: start, EndTarget: end, StartStep: step})
		if err != nil {
			rt.Fatalf("run: %v", err)
		}
		if len(r.calls) != (start-end+1)*cycles || sum.Total != len(r.calls) {
			rt.Fatalf("got %d runs, want %d", len(r.calls), (start-end+1)*cycles)
		}
		for i, c := range r.calls {
			want := start - i%(start-end+1)
			if c.target != want {
				rt.Fatalf("run %d: target %d, want %d", i, c.target, want)
			}
			wantStep := 1
			if i == 0 {
				wantStep = step
			}
			if c.startStep != wantStep {
				rt.Fatalf("run %d: start step %d, want %d", i, c.startStep, wantStep)
			}
		}
	})
}
