package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/bot"
	"github.com/mj1618/onboard-cli/internal/catalog"
	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/platform"
)

// loadConfig reads --config (or the default file when present) and applies
// the connection flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	logger := loggerFrom(cmd)
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.DefaultFile
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
		logger.Debug("config loaded", zap.String("path", path))
	case !explicit && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, err
	}

	if flags.Changed("device") {
		cfg.ADB.Serial, _ = flags.GetString("device")
	}
	if flags.Changed("host") || cfg.ADB.Host == "" {
		cfg.ADB.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") || cfg.ADB.Port == 0 {
		cfg.ADB.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("steps") {
		cfg.Steps, _ = flags.GetString("steps")
	}

	if err := cfg.Validate(logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCatalog returns the configured step catalog, or the built-in one.
func loadCatalog(cfg *config.Config, logger *zap.Logger) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.Steps != "" {
		cat, err = catalog.LoadFile(cfg.Steps)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(logger); err != nil {
		return nil, err
	}
	return cat, nil
}

// openBot loads configuration and the catalog and connects to the device.
// adjust runs on the loaded configuration before anything is built.
func openBot(cmd *cobra.Command, adjust ...func(*config.Config)) (*bot.Bot, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(cfg)
	}
	logger := loggerFrom(cmd)
	cat, err := loadCatalog(cfg, logger)
	if err != nil {
		return nil, err
	}
	b, err := bot.Open(cfg, cat, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return b, nil
}

// skipRegion parses an "x,y,w,h" --region value into a configuration
// change that confines every skip search pass to that rectangle.
func skipRegion(s string) (func(*config.Config), error) {
	b, err := platform.ParseBBox(s)
	if err != nil {
		return nil, err
	}
	return func(cfg *config.Config) {
		cfg.Skip.Primary, cfg.Skip.Extended, cfg.Skip.Wide = *b, *b, *b
	}, nil
}

func closeBot(cmd *cobra.Command, b *bot.Bot) {
	if err := b.Close(); err != nil {
		loggerFrom(cmd).Warn("close", zap.Error(err))
	}
}
