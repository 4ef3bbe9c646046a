// Package adb implements platform.Device on top of the adb command-line
// tool.
package adb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/vcaesar/imgo"
	"go.uber.org/zap"
)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec and folds stderr into the error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// ErrNoDevices is returned when `adb devices` lists nothing usable.
var ErrNoDevices = errors.New("no connected devices")

// Device drives one Android device through adb.
type Device struct {
	path   string
	serial string
	host   string
	port   int
	raw    bool
	run    Runner
	tmpDir string
	logger *zap.Logger
}

// Option customises a Device.
type Option func(*Device)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(d *Device) { d.run = r }
}

// WithRawCapture makes Screenshot use the uncompressed framebuffer dump
// instead of PNG.
func WithRawCapture() Option {
	return func(d *Device) { d.raw = true }
}

// New resolves the target device and checks that it answers. With an empty
// serial the first listed device is used.
func New(ctx context.Context, opts platform.DeviceOptions, logger *zap.Logger, options ...Option) (*Device, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Device{
		path:   opts.ADBPath,
		host:   opts.Host,
		port:   opts.Port,
		run:    ExecRunner,
		tmpDir: os.TempDir(),
		logger: logger.Named("adb"),
	}
	if d.path == "" {
		d.path = "adb"
	}
	for _, o := range options {
		o(d)
	}

	serials, err := d.Devices(ctx)
	if err != nil {
		return nil, err
	}
	if len(serials) == 0 {
		return nil, ErrNoDevices
	}
	switch {
	case opts.Serial == "":
		d.serial = serials[0]
	case contains(serials, opts.Serial):
		d.serial = opts.Serial
	default:
		return nil, fmt.Errorf("device %s not found (connected: %s)", opts.Serial, strings.Join(serials, ", "))
	}
	d.logger = d.logger.With(zap.String("serial", d.serial))

	if _, err := d.shell(ctx, "echo", "connected"); err != nil {
		return nil, fmt.Errorf("device %s not responding: %w", d.serial, err)
	}
	d.logger.Info("connected to device")
	return d, nil
}

// ListDevices lists ready device serials on the ADB server in opts without
// selecting one.
func ListDevices(ctx context.Context, opts platform.DeviceOptions, options ...Option) ([]string, error) {
	d := &Device{path: opts.ADBPath, host: opts.Host, port: opts.Port, run: ExecRunner, logger: zap.NewNop()}
	if d.path == "" {
		d.path = "adb"
	}
	for _, o := range options {
		o(d)
	}
	return d.Devices(ctx)
}

// Serial returns the selected device serial.
func (d *Device) Serial() string { return d.serial }

// Devices lists the serials of devices in the "device" state.
func (d *Device) Devices(ctx context.Context) ([]string, error) {
	out, err := d.run(ctx, d.path, append(d.serverArgs(), "devices")...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return ParseDevices(string(out)), nil
}

// ParseDevices extracts ready device serials from `adb devices` output.
func ParseDevices(out string) []string {
	var serials []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials
}

func (d *Device) Tap(ctx context.Context, x, y int) error {
	d.logger.Debug("tap", zap.Int("x", x), zap.Int("y", y))
	_, err := d.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

func (d *Device) Swipe(ctx context.Context, x0, y0, x1, y1 int, duration time.Duration) error {
	d.logger.Debug("swipe",
		zap.Int("x0", x0), zap.Int("y0", y0), zap.Int("x1", x1), zap.Int("y1", y1),
		zap.Duration("duration", duration))
	_, err := d.shell(ctx, "input", "swipe",
		strconv.Itoa(x0), strconv.Itoa(y0), strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.FormatInt(duration.Milliseconds(), 10))
	return err
}

func (d *Device) KeyEvent(ctx context.Context, code platform.KeyCode) error {
	d.logger.Debug("key event", zap.Int("code", int(code)))
	_, err := d.shell(ctx, "input", "keyevent", strconv.Itoa(int(code)))
	return err
}

// Screenshot captures the screen through exec-out, falling back to a file
// written on the device and pulled to the host.
func (d *Device) Screenshot(ctx context.Context) (image.Image, error) {
	if d.raw {
		out, err := d.adb(ctx, "exec-out", "screencap")
		if err == nil {
			var img image.Image
			if img, err = DecodeRaw(out); err == nil {
				return img, nil
			}
		}
		d.logger.Warn("raw screencap failed, falling back to file", zap.Error(err))
		return d.screenshotViaFile(ctx)
	}

	out, err := d.adb(ctx, "exec-out", "screencap", "-p")
	if err == nil {
		img, derr := png.Decode(bytes.NewReader(out))
		if derr == nil {
			return img, nil
		}
		err = fmt.Errorf("decode png: %w", derr)
	}
	d.logger.Warn("exec-out screencap failed, falling back to file", zap.Error(err))
	return d.screenshotViaFile(ctx)
}

func (d *Device) screenshotViaFile(ctx context.Context) (image.Image, error) {
	const remote = "/sdcard/onboard_screenshot.png"
	local := filepath.Join(d.tmpDir, fmt.Sprintf("onboard_%s_%d.png", sanitize(d.serial), time.Now().UnixNano()))

	if _, err := d.shell(ctx, "screencap", "-p", remote); err != nil {
		return nil, fmt.Errorf("screencap to file: %w", err)
	}
	if _, err := d.adb(ctx, "pull", remote, local); err != nil {
		return nil, fmt.Errorf("pull screenshot: %w", err)
	}
	defer func() {
		if err := os.Remove(local); err != nil {
			d.logger.Debug("remove local screenshot", zap.Error(err))
		}
		if _, err := d.shell(ctx, "rm", "-f", remote); err != nil {
			d.logger.Debug("remove remote screenshot", zap.Error(err))
		}
	}()

	img, err := imgo.Read(local)
	if err != nil {
		return nil, fmt.Errorf("read pulled screenshot: %w", err)
	}
	return img, nil
}

// Android PixelFormat values found in the screencap header.
const (
	formatRGBA8888 = 1
	formatRGBX8888 = 2
)

// DecodeRaw decodes the output of `screencap` without -p: a little-endian
// width, height and pixel format header followed by 4-byte pixels. RGBX
// frames are returned opaque whatever the padding byte holds.
func DecodeRaw(b []byte) (image.Image, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("raw screencap too short: %d bytes", len(b))
	}
	w := int(binary.LittleEndian.Uint32(b[0:4]))
	h := int(binary.LittleEndian.Uint32(b[4:8]))
	format := binary.LittleEndian.Uint32(b[8:12])
	if format != formatRGBA8888 && format != formatRGBX8888 {
		return nil, fmt.Errorf("raw screencap: unsupported pixel format %d", format)
	}
	pix := b[12:]
	// Android 9+ appends a 4-byte colour space field to the header.
	if len(pix) == w*h*4+4 {
		pix = pix[4:]
	}
	if w <= 0 || h <= 0 || len(pix) < w*h*4 {
		return nil, fmt.Errorf("raw screencap: %dx%d needs %d bytes, got %d", w, h, w*h*4, len(pix))
	}
	pix = pix[:w*h*4]
	if format == formatRGBX8888 {
		for i := 3; i < len(pix); i += 4 {
			pix[i] = 0xff
		}
	}
	return &image.NRGBA{
		Pix:    pix,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}, nil
}

func (d *Device) StartApp(ctx context.Context, pkg, activity string) error {
	d.logger.Info("starting app", zap.String("package", pkg))
	if activity != "" {
		_, err := d.shell(ctx, "am", "start", "-n", pkg+"/"+activity)
		return err
	}
	_, err := d.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	return err
}

func (d *Device) StopApp(ctx context.Context, pkg string) error {
	d.logger.Info("stopping app", zap.String("package", pkg))
	_, err := d.shell(ctx, "am", "force-stop", pkg)
	return err
}

func (d *Device) shell(ctx context.Context, args ...string) ([]byte, error) {
	return d.adb(ctx, append([]string{"shell"}, args...)...)
}

func (d *Device) adb(ctx context.Context, args ...string) ([]byte, error) {
	full := d.serverArgs()
	if d.serial != "" {
		full = append(full, "-s", d.serial)
	}
	full = append(full, args...)
	out, err := d.run(ctx, d.path, full...)
	if err != nil {
		return out, fmt.Errorf("adb %s: %w", args[0], err)
	}
	return out, nil
}

func (d *Device) serverArgs() []string {
	var args []string
	if d.host != "" && d.host != "127.0.0.1" && d.host != "localhost" {
		args = append(args, "-H", d.host)
	}
	if d.port != 0 && d.port != 5037 {
		args = append(args, "-P", strconv.Itoa(d.port))
	}
	return args
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sanitize(s string) string {
	return strings.NewReplacer(":", "_", "/", "_", ".", "_").Replace(s)
}
