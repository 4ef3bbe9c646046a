package adb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/mj1618/onboard-cli/internal/platform"
	"github.com/mj1618/onboard-cli/internal/vision"
	"go.uber.org/zap"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls   []call
	respond func(args []string) ([]byte, error)
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.respond != nil {
		return f.respond(args)
	}
	return nil, nil
}

func (f *fakeRunner) last() string {
	if len(f.calls) == 0 {
		return ""
	}
	return strings.Join(f.calls[len(f.calls)-1].args, " ")
}

const devicesOut = "List of devices attached\nemulator-5554\tdevice\nR58M\tunauthorized\n127.0.0.1:5555\tdevice\n\n"

func newTestDevice(t *testing.T, opts platform.DeviceOptions, f *fakeRunner) *Device {
	t.Helper()
	if f.respond == nil {
		f.respond = func(args []string) ([]byte, error) {
			if args[len(args)-1] == "devices" {
				return []byte(devicesOut), nil
			}
			return nil, nil
		}
	}
	d, err := New(context.Background(), opts, zap.NewNop(), WithRunner(f.run))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestParseDevices(t *testing.T) {
	got := ParseDevices(devicesOut)
	if len(got) != 2 || got[0] != "emulator-5554" || got[1] != "127.0.0.1:5555" {
		t.Errorf("ParseDevices = %v", got)
	}
	if got := ParseDevices("List of devices attached\n\n"); len(got) != 0 {
		t.Errorf("expected no devices, got %v", got)
	}
}

func TestNew_SelectsFirstDevice(t *testing.T) {
	f := &fakeRunner{}
	d := newTestDevice(t, platform.DeviceOptions{}, f)
	if d.Serial() != "emulator-5554" {
		t.Errorf("serial = %q", d.Serial())
	}
	if got := f.last(); got != "-s emulator-5554 shell echo connected" {
		t.Errorf("probe = %q", got)
	}
}

func TestNew_UnknownSerial(t *testing.T) {
	f := &fakeRunner{respond: func(args []string) ([]byte, error) { return []byte(devicesOut), nil }}
	_, err := New(context.Background(), platform.DeviceOptions{Serial: "R58M"}, zap.NewNop(), WithRunner(f.run))
	if err == nil || !strings.Contains(err.Error(), "R58M not found") {
		t.Errorf("err = %v", err)
	}
}

func TestNew_NoDevices(t *testing.T) {
	f := &fakeRunner{respond: func(args []string) ([]byte, error) { return []byte("List of devices attached\n"), nil }}
	_, err := New(context.Background(), platform.DeviceOptions{}, zap.NewNop(), WithRunner(f.run))
	if !errors.Is(err, ErrNoDevices) {
		t.Errorf("err = %v, want ErrNoDevices", err)
	}
}

func TestServerArgs(t *testing.T) {
	f := &fakeRunner{}
	newTestDevice(t, platform.DeviceOptions{Host: "10.0.0.2", Port: 5038}, f)
	if got := strings.Join(f.calls[0].args, " "); got != "-H 10.0.0.2 -P 5038 devices" {
		t.Errorf("devices call = %q", got)
	}
}

func TestInputCommands(t *testing.T) {
	f := &fakeRunner{}
	d := newTestDevice(t, platform.DeviceOptions{Serial: "127.0.0.1:5555", ADBPath: "/opt/adb"}, f)
	ctx := context.Background()

	tests := []struct {
		do   func() error
		want string
	}{
		{func() error { return d.Tap(ctx, 52, 50) }, "-s 127.0.0.1:5555 shell input tap 52 50"},
		{func() error { return d.Swipe(ctx, 640, 550, 640, 200, time.Second) }, "-s 127.0.0.1:5555 shell input swipe 640 550 640 200 1000"},
		{func() error { return d.KeyEvent(ctx, platform.KeyBack) }, "-s 127.0.0.1:5555 shell input keyevent 4"},
		{func() error { return d.StopApp(ctx, "com.example.game") }, "-s 127.0.0.1:5555 shell am force-stop com.example.game"},
		{func() error { return d.StartApp(ctx, "com.example.game", "") }, "-s 127.0.0.1:5555 shell monkey -p com.example.game -c android.intent.category.LAUNCHER 1"},
		{func() error { return d.StartApp(ctx, "com.example.game", "x.Main") }, "-s 127.0.0.1:5555 shell am start -n com.example.game/x.Main"},
	}
	for _, tt := range tests {
		if err := tt.do(); err != nil {
			t.Fatal(err)
		}
		if got := f.last(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
		if f.calls[len(f.calls)-1].name != "/opt/adb" {
			t.Errorf("binary = %q", f.calls[len(f.calls)-1].name)
		}
	}
}

func TestScreenshot_PNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	f := &fakeRunner{respond: func(args []string) ([]byte, error) {
		switch args[len(args)-1] {
		case "devices":
			return []byte(devicesOut), nil
		case "-p":
			return buf.Bytes(), nil
		}
		return nil, nil
	}}
	d := newTestDevice(t, platform.DeviceOptions{}, f)
	img, err := d.Screenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v", img.Bounds())
	}
	r, _, _, _ := img.At(1, 1).RGBA()
	if r>>8 != 200 {
		t.Errorf("pixel red = %d", r>>8)
	}
}

// rawFrame builds a screencap dump whose first pixel is red. alpha is the
// fourth byte of every pixel.
func rawFrame(w, h, extra int, format uint32, alpha byte) []byte {
	b := make([]byte, 12+extra+w*h*4)
	binary.LittleEndian.PutUint32(b[0:4], uint32(w))
	binary.LittleEndian.PutUint32(b[4:8], uint32(h))
	binary.LittleEndian.PutUint32(b[8:12], format)
	pix := b[12+extra:]
	for i := 3; i < len(pix); i += 4 {
		pix[i] = alpha
	}
	pix[0] = 0xff
	return b
}

func TestDecodeRaw(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"rgba", rawFrame(2, 2, 0, formatRGBA8888, 0xff)},
		{"rgba with colour space", rawFrame(2, 2, 4, formatRGBA8888, 0xff)},
		{"rgbx with zero padding", rawFrame(2, 2, 0, formatRGBX8888, 0)},
		{"rgbx with colour space", rawFrame(2, 2, 4, formatRGBX8888, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeRaw(tt.frame)
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds() != image.Rect(0, 0, 2, 2) {
				t.Errorf("bounds = %v", img.Bounds())
			}
			r, g, _, a := img.At(0, 0).RGBA()
			if r>>8 != 0xff || g != 0 {
				t.Errorf("first pixel = %x,%x, want red", r>>8, g>>8)
			}
			if a>>8 != 0xff {
				t.Errorf("alpha = %x, want opaque", a>>8)
			}
			// Cropping draws with draw.Src; the pixel must survive it.
			c := vision.Crop(img, image.Rect(0, 0, 1, 1))
			if got := c.RGBAAt(0, 0); got.R != 0xff {
				t.Errorf("cropped pixel = %v", got)
			}
		})
	}
}

func TestDecodeRaw_UnknownFormat(t *testing.T) {
	if _, err := DecodeRaw(rawFrame(2, 2, 0, 4, 0xff)); err == nil {
		t.Error("expected error for RGB_565 frame")
	}
}

func TestDecodeRaw_Short(t *testing.T) {
	if _, err := DecodeRaw([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short header")
	}
	b := rawFrame(10, 10, 0, formatRGBA8888, 0xff)
	if _, err := DecodeRaw(b[:50]); err == nil {
		t.Error("expected error for truncated pixels")
	}
}

func TestListDevices(t *testing.T) {
	f := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return []byte(devicesOut), nil
	}}
	serials, err := ListDevices(context.Background(), platform.DeviceOptions{Host: "10.0.0.2", Port: 5038}, WithRunner(f.run))
	if err != nil {
		t.Fatal(err)
	}
	if len(serials) != 2 || serials[0] != "emulator-5554" || serials[1] != "127.0.0.1:5555" {
		t.Errorf("serials = %v", serials)
	}
	if got := f.last(); got != "-H 10.0.0.2 -P 5038 devices" {
		t.Errorf("args = %q", got)
	}
	if f.calls[0].name != "adb" {
		t.Errorf("default path = %q, want adb", f.calls[0].name)
	}
}
