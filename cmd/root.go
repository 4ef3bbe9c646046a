package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/config"
	"github.com/mj1618/onboard-cli/internal/output"
	"github.com/mj1618/onboard-cli/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "onboard-cli",
	Short: "Play through a mobile game's onboarding on an Android device",
	Long: `Drive an Android game client through its fixed onboarding sequence over ADB.

Each step taps, waits or scrolls, confirming progress by template matching and
text recognition on live screenshots. Runs repeat the sequence over a
descending range of targets.`,
	SilenceUsage: true,
}

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	pf := rootCmd.PersistentFlags()
	pf.StringP("device", "d", "", "Device serial (default: first connected device)")
	pf.StringP("host", "H", "127.0.0.1", "ADB server host")
	pf.IntP("port", "p", 5037, "ADB server port")
	pf.String("config", "", "Config file (default: "+config.DefaultFile+" if present)")
	pf.String("steps", "", "Step catalog YAML replacing the built-in one")
	pf.BoolP("verbose", "v", false, "Verbose (debug) logging")
	pf.String("format", "yaml", "Output format: yaml, json")
	pf.Bool("pretty", false, "Pretty-print JSON output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(withLogger(ctx, l))

		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = loggerFrom(cmd).Sync()
	}
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFrom returns the logger the root command stored on cmd, or a no-op
// logger when none was set.
func loggerFrom(cmd *cobra.Command) *zap.Logger {
	if ctx := cmd.Context(); ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
