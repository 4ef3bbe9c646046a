//go:build ocr

package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// Recognizer wraps a single tesseract client. Calls are serialised because
// the underlying API object is not safe for concurrent use.
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *zap.Logger
}

// NewRecognizer creates a tesseract client.
func NewRecognizer(logger *zap.Logger) (*Recognizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := gosseract.NewClient()
	if v := gosseract.Version(); v == "" {
		client.Close()
		return nil, fmt.Errorf("tesseract library not found")
	}
	return &Recognizer{client: client, logger: logger.Named("tesseract")}, nil
}

func (r *Recognizer) Recognize(img image.Image, opts platform.RecognizeOptions) ([]platform.TextItem, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode ocr input: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	langs := opts.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := r.client.SetLanguage(langs...); err != nil {
		return nil, fmt.Errorf("set language %s: %w", strings.Join(langs, "+"), err)
	}
	if err := r.client.SetWhitelist(opts.Whitelist); err != nil {
		return nil, fmt.Errorf("set whitelist: %w", err)
	}
	psm := opts.PageSegMode
	if psm == 0 {
		psm = platform.PSMSingleBlock
	}
	if err := r.client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		return nil, fmt.Errorf("set page seg mode %d: %w", psm, err)
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	items := make([]platform.TextItem, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		items = append(items, platform.TextItem{Text: text, Confidence: b.Confidence, Box: b.Box})
	}
	r.logger.Debug("recognized", zap.Int("items", len(items)), zap.Int("psm", int(psm)))
	return items, nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
