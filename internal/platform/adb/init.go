package adb

import (
	"context"
	"time"

	"github.com/mj1618/onboard-cli/internal/platform"
	"go.uber.org/zap"
)

func init() {
	platform.NewDeviceFunc = func(opts platform.DeviceOptions, logger *zap.Logger) (platform.Device, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		var options []Option
		if opts.RawCapture {
			options = append(options, WithRawCapture())
		}
		return New(ctx, opts, logger, options...)
	}
}
