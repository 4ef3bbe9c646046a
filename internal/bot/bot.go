// Package bot wires the device, perception backends and search strategies
// into a runnable onboarding bot.
package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/action"
	"github.com/mj1618/onboard-cli/internal/catalog"
	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/executor"
	"github.com/mj1618/onboard-cli/internal/orchestrator"
	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/search"
	"github.com/mj1618/onboard-cli/internal/vision"
)

// Bot holds every component of one session.
type Bot struct {
	Config       *config.Config
	Catalog      *catalog.Catalog
	Provider     *platform.Provider
	Templates    *vision.TemplateStore
	Images       *search.ImageWaiter
	Skip         *search.SkipFinder
	Text         *search.TextFinder
	Locator      *search.Locator
	Dispatcher   *action.Dispatcher
	Executor     *executor.Executor
	Orchestrator *orchestrator.Orchestrator

	clock  platform.Clock
	logger *zap.Logger
}

// Open connects to the configured device and builds a Bot.
func Open(cfg *config.Config, cat *catalog.Catalog, logger *zap.Logger) (*Bot, error) {
	provider, err := platform.NewProvider(cfg.ADB.Options(), vision.TemplateMatcher{}, logger)
	if err != nil {
		return nil, err
	}
	if provider.Recognizer == nil {
		logger.Warn("running without text recognition; OCR steps will use their fallbacks")
	}
	return New(cfg, cat, provider, platform.RealClock{}, logger), nil
}

// New builds a Bot on an existing provider.
func New(cfg *config.Config, cat *catalog.Catalog, p *platform.Provider, clock platform.Clock, logger *zap.Logger) *Bot {
	b := &Bot{
		Config:    cfg,
		Catalog:   cat,
		Provider:  p,
		Templates: vision.NewTemplateStore(cfg.Templates.Dir, cfg.Templates.Images),
		clock:     clock,
		logger:    logger,
	}
	t := cfg.Templates
	b.Images = search.NewImageWaiter(p.Device, p.Matcher, b.Templates, clock, t.Threshold, t.Poll, t.Retry, logger)
	b.Skip = search.NewSkipFinder(p.Device, p.Recognizer, clock, cfg.Skip, logger)
	b.Text = search.NewTextFinder(p.Device, p.Recognizer, clock, cfg.Text.Languages, cfg.Text.Poll, logger)
	b.Locator = search.NewLocator(p.Device, p.Recognizer, clock, cfg.Bands, cfg.Locator, cfg.Pauses, logger)
	b.Dispatcher = action.New(action.Deps{
		Device:  p.Device,
		Clock:   clock,
		Images:  b.Images,
		Skip:    b.Skip,
		Text:    b.Text,
		Targets: b.Locator,
	}, cfg.Pauses, logger)
	b.Executor = executor.New(cat, b.Dispatcher, clock, logger)
	b.Orchestrator = orchestrator.New(b.Executor, cat.Max(), clock, cfg.Pauses, logger)
	return b
}

// Close releases backend resources.
func (b *Bot) Close() error {
	return b.Provider.Close()
}

// Run executes a batch plan.
func (b *Bot) Run(ctx context.Context, plan orchestrator.Plan) (orchestrator.Summary, error) {
	return b.Orchestrator.Run(ctx, plan)
}

// RunStep executes one catalog step for diagnostics.
func (b *Bot) RunStep(ctx context.Context, n, target int) (executor.StepResult, error) {
	step, ok := b.Catalog.Get(n)
	if ok {
		b.logger.Info("running single step", zap.Int("step", n), zap.String("description", step.Description))
	}
	return b.Executor.RunStep(ctx, n, target)
}

// SkipReport is the result of a skip-control probe.
type SkipReport struct {
	Found   bool            `yaml:"found"          json:"found"`
	At      *platform.Point `yaml:"at,omitempty"   json:"at,omitempty"`
	Elapsed string          `yaml:"elapsed"        json:"elapsed"`
}

// TestSkip searches for the skip control without tapping it.
func (b *Bot) TestSkip(ctx context.Context, timeout time.Duration) (SkipReport, error) {
	start := b.clock.Now()
	p, ok, err := b.Skip.Find(ctx, timeout)
	rep := SkipReport{Found: ok, Elapsed: b.clock.Now().Sub(start).Round(time.Millisecond).String()}
	if ok {
		rep.At = &p
	}
	return rep, err
}

// TargetReport is the result of a target-picker probe.
type TargetReport struct {
	Target  int                     `yaml:"target"            json:"target"`
	Band    string                  `yaml:"band"              json:"band"`
	Found   bool                    `yaml:"found"             json:"found"`
	Element *search.VisibleElement  `yaml:"element,omitempty" json:"element,omitempty"`
	Visible []search.VisibleElement `yaml:"visible,omitempty" json:"visible,omitempty"`
	Error   string                  `yaml:"error,omitempty"   json:"error,omitempty"`
}

// TestTarget activates id's band and locates id without tapping it.
func (b *Bot) TestTarget(ctx context.Context, id int) (TargetReport, error) {
	rep := TargetReport{Target: id}
	bd, err := b.Config.Bands.Resolve(id)
	if err != nil {
		return rep, err
	}
	rep.Band = bd.ID
	if err := b.Locator.SelectBand(ctx, bd); err != nil {
		return rep, err
	}
	e, err := b.Locator.Locate(ctx, id)
	rep.Visible = b.Locator.Visible(ctx, false)
	if err != nil {
		rep.Error = err.Error()
		return rep, nil
	}
	rep.Found = true
	rep.Element = &e
	return rep, nil
}

// StartApp launches the configured game.
func (b *Bot) StartApp(ctx context.Context) error {
	g := b.Config.Game
	if err := b.Provider.Device.StartApp(ctx, g.Package, g.Activity); err != nil {
		return fmt.Errorf("start %s: %w", g.Package, err)
	}
	return nil
}

// StopApp force-stops the configured game.
func (b *Bot) StopApp(ctx context.Context) error {
	g := b.Config.Game
	if err := b.Provider.Device.StopApp(ctx, g.Package); err != nil {
		return fmt.Errorf("stop %s: %w", g.Package, err)
	}
	return nil
}
