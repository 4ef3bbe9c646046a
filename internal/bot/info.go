package bot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/search"
	"github.com/mj1618/onboard-cli/internal/vision"
)

// ScreenInfo describes the current screen and the session's capabilities.
type ScreenInfo struct {
	Timestamp        string                  `yaml:"timestamp"                    json:"timestamp"`
	DeviceConnected  bool                    `yaml:"device_connected"             json:"device_connected"`
	ScreenshotOK     bool                    `yaml:"screenshot_available"         json:"screenshot_available"`
	Width            int                     `yaml:"width,omitempty"              json:"width,omitempty"`
	Height           int                     `yaml:"height,omitempty"             json:"height,omitempty"`
	OCR              bool                    `yaml:"ocr_available"                json:"ocr_available"`
	Band             string                  `yaml:"band,omitempty"               json:"band,omitempty"`
	Visible          []search.VisibleElement `yaml:"visible_targets"              json:"visible_targets"`
	MissingTemplates []string                `yaml:"missing_templates,omitempty"  json:"missing_templates,omitempty"`
	Annotated        string                  `yaml:"annotated,omitempty"          json:"annotated,omitempty"`
	Error            string                  `yaml:"error,omitempty"              json:"error,omitempty"`
}

var (
	regionColor = color.RGBA{R: 255, G: 200, A: 255}
	targetColor = color.RGBA{G: 255, A: 255}
)

// Info inspects the current screen. When annotate is non-empty the frame is
// saved there with the search regions and recognized targets outlined.
func (b *Bot) Info(ctx context.Context, annotate string) (ScreenInfo, error) {
	info := ScreenInfo{
		Timestamp:        b.clock.Now().Format(time.DateTime),
		DeviceConnected:  true,
		OCR:              b.Provider.Recognizer != nil,
		MissingTemplates: b.Templates.Missing(),
	}
	if bd, ok := b.Locator.Band(); ok {
		info.Band = bd.ID
	}

	frame, err := b.Provider.Device.Screenshot(ctx)
	if err != nil {
		b.logger.Error("screenshot failed", zap.Error(err))
		info.DeviceConnected = false
		info.Error = err.Error()
		return info, nil
	}
	info.ScreenshotOK = true
	info.Width, info.Height = frame.Bounds().Dx(), frame.Bounds().Dy()
	info.Visible = b.Locator.Visible(ctx, true)

	if annotate != "" {
		if err := vision.SaveImage(annotate, vision.Annotate(frame, b.annotations(info.Visible))); err != nil {
			return info, fmt.Errorf("save %s: %w", annotate, err)
		}
		info.Annotated = annotate
	}
	return info, nil
}

func (b *Bot) annotations(visible []search.VisibleElement) []vision.Annotation {
	notes := []vision.Annotation{
		{Box: b.Config.Skip.Primary.Rect(), Label: "skip", Color: regionColor},
		{Box: b.Config.Locator.Region.Rect(), Label: "targets", Color: regionColor},
	}
	for _, e := range visible {
		notes = append(notes, vision.Annotation{
			Box:   image.Rect(e.X-30, e.Y-10, e.X+30, e.Y+10),
			Label: fmt.Sprintf("#%d", e.Label),
			Color: targetColor,
		})
	}
	return notes
}
