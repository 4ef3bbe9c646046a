//go:build ocr

package tesseract

import (
	"github.com/mj1618/onboard-cli/internal/platform"
	"go.uber.org/zap"
)

func init() {
	platform.NewRecognizerFunc = func(logger *zap.Logger) (platform.Recognizer, error) {
		return NewRecognizer(logger)
	}
}
