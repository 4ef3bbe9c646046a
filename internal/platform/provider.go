package platform

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Provider bundles the device and perception backends for one run.
// Recognizer is nil when the binary was built without OCR support.
type Provider struct {
	Device     Device
	Matcher    Matcher
	Recognizer Recognizer
}

// DeviceOptions selects the device and the ADB server to talk to.
type DeviceOptions struct {
	ADBPath string
	Serial  string
	Host    string
	Port    int
	// RawCapture selects raw framebuffer capture instead of PNG.
	RawCapture bool
}

// ErrNoDevice is returned when no device backend is compiled in.
var ErrNoDevice = errors.New("no device backend registered")

// ErrNoRecognizer is returned by operations that need text recognition in
// a build without it.
var ErrNoRecognizer = errors.New("text recognition not available in this build (rebuild with -tags ocr)")

// NewDeviceFunc is set by backend packages via init().
// See internal/platform/adb/init.go.
var NewDeviceFunc func(opts DeviceOptions, logger *zap.Logger) (Device, error)

// NewMatcherFunc optionally replaces the default matcher. It is set by the
// gocv backend when built with -tags gocv.
var NewMatcherFunc func() (Matcher, error)

// NewRecognizerFunc is set by the tesseract backend when built with -tags ocr.
var NewRecognizerFunc func(logger *zap.Logger) (Recognizer, error)

// NewProvider wires a Provider from the registered backends. fallback is
// used when no matcher backend is registered.
func NewProvider(opts DeviceOptions, fallback Matcher, logger *zap.Logger) (*Provider, error) {
	if NewDeviceFunc == nil {
		return nil, ErrNoDevice
	}
	dev, err := NewDeviceFunc(opts, logger)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}

	p := &Provider{Device: dev, Matcher: fallback}
	if NewMatcherFunc != nil {
		m, err := NewMatcherFunc()
		if err != nil {
			return nil, fmt.Errorf("init matcher: %w", err)
		}
		p.Matcher = m
	}
	if NewRecognizerFunc != nil {
		r, err := NewRecognizerFunc(logger)
		if err != nil {
			logger.Warn("text recognition unavailable", zap.Error(err))
		} else {
			p.Recognizer = r
		}
	}
	return p, nil
}

// Close releases backend resources.
func (p *Provider) Close() error {
	if p.Recognizer != nil {
		return p.Recognizer.Close()
	}
	return nil
}
