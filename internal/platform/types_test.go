package platform

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestParseBBox_Valid(t *testing.T) {
	b, err := ParseBBox("983,588,200,100")
	if err != nil {
		t.Fatal(err)
	}
	if b.X != 983 || b.Y != 588 || b.Width != 200 || b.Height != 100 {
		t.Errorf("got %+v, want {983 588 200 100}", b)
	}
}

func TestParseBBox_WithSpaces(t *testing.T) {
	b, err := ParseBBox("10, 20, 300, 400")
	if err != nil {
		t.Fatal(err)
	}
	if b.X != 10 || b.Y != 20 || b.Width != 300 || b.Height != 400 {
		t.Errorf("got %+v, want {10 20 300 400}", b)
	}
}

func TestParseBBox_Invalid(t *testing.T) {
	tests := []string{
		"",
		"10,20,300",
		"10,20,300,400,500",
		"a,b,c,d",
		"10,20,abc,400",
		"10,20,0,400",
	}
	for _, s := range tests {
		_, err := ParseBBox(s)
		if err == nil {
			t.Errorf("ParseBBox(%q) should fail", s)
		}
	}
}

func TestBounds_ContainsAndCenter(t *testing.T) {
	b := Bounds{X: 400, Y: 130, Width: 570, Height: 470}
	if c := b.Center(); c != (Point{X: 685, Y: 365}) {
		t.Errorf("Center() = %v", c)
	}
	if !b.Contains(Point{X: 400, Y: 130}) {
		t.Error("top-left corner should be inside")
	}
	if b.Contains(Point{X: 970, Y: 200}) {
		t.Error("right edge is exclusive")
	}
}

func TestParseKeyCode_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  KeyCode
	}{
		{"back", KeyBack},
		{"Back", KeyBack},
		{"esc", KeyBack},
		{"HOME", KeyHome},
		{"enter", KeyEnter},
		{"escape", KeyEscape},
		{"24", KeyCode(24)},
	}
	for _, tt := range tests {
		got, err := ParseKeyCode(tt.input)
		if err != nil {
			t.Errorf("ParseKeyCode(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseKeyCode(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseKeyCode_Invalid(t *testing.T) {
	for _, s := range []string{"", "menu-ish", "-3"} {
		if _, err := ParseKeyCode(s); err == nil {
			t.Errorf("ParseKeyCode(%q) should fail", s)
		}
	}
}

func TestRealClock_SleepHonoursCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := (RealClock{}).Sleep(ctx, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly after cancel")
	}
}

func TestRealClock_SleepElapses(t *testing.T) {
	defer goleak.VerifyNone(t)
	start := time.Now()
	if err := (RealClock{}).Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Sleep returned early")
	}
	if err := (RealClock{}).Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero Sleep = %v", err)
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(1.5); got != 1500*time.Millisecond {
		t.Errorf("Seconds(1.5) = %v", got)
	}
}

func TestNewProvider_NoDeviceBackend(t *testing.T) {
	saved := NewDeviceFunc
	NewDeviceFunc = nil
	defer func() { NewDeviceFunc = saved }()

	if _, err := NewProvider(DeviceOptions{}, nil, nil); err != ErrNoDevice {
		t.Errorf("err = %v, want ErrNoDevice", err)
	}
}
