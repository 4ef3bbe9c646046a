package cmd

// Backends register themselves with the platform package. The tesseract
// and opencv packages are empty unless built with -tags ocr or -tags gocv.
import (
	_ "github.com/mj1618/onboard-cli/internal/platform/adb"
	_ "github.com/mj1618/onboard-cli/internal/platform/opencv"
	_ "github.com/mj1618/onboard-cli/internal/platform/tesseract"
)
