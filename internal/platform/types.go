package platform

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// KeyCode is an Android key event code as accepted by `input keyevent`.
type KeyCode int

const (
	KeyHome   KeyCode = 3
	KeyBack   KeyCode = 4
	KeyEnter  KeyCode = 66
	KeyEscape KeyCode = 111
)

// ParseKeyCode converts a key name or a numeric code to a KeyCode.
func ParseKeyCode(s string) (KeyCode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home":
		return KeyHome, nil
	case "back", "esc":
		return KeyBack, nil
	case "enter":
		return KeyEnter, nil
	case "escape":
		return KeyEscape, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("unknown key: %q (expected home, back, enter, escape, or a numeric code)", s)
	}
	return KeyCode(n), nil
}

// Point is a screen coordinate in device pixels.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Bounds represents a screen rectangle.
type Bounds struct {
	X      int `yaml:"x"      json:"x"`
	Y      int `yaml:"y"      json:"y"`
	Width  int `yaml:"width"  json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Rect converts b to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains reports whether p lies inside b.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X < b.X+b.Width && p.Y >= b.Y && p.Y < b.Y+b.Height
}

func (b Bounds) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", b.X, b.Y, b.Width, b.Height)
}

// ParseBBox parses a "x,y,w,h" string into a Bounds.
func ParseBBox(s string) (*Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: expected x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return nil, fmt.Errorf("invalid bbox %q: width and height must be positive", s)
	}
	return &Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Match is a template located on a frame. X and Y are the match center.
type Match struct {
	X      int     `yaml:"x"     json:"x"`
	Y      int     `yaml:"y"     json:"y"`
	Width  int     `yaml:"w"     json:"w"`
	Height int     `yaml:"h"     json:"h"`
	Score  float64 `yaml:"score" json:"score"`
}

// Center returns the match center.
func (m Match) Center() Point {
	return Point{X: m.X, Y: m.Y}
}

// TextItem is one word or line reported by a Recognizer. Box is in the
// coordinate space of the image handed to Recognize.
type TextItem struct {
	Text       string          `yaml:"text"       json:"text"`
	Confidence float64         `yaml:"confidence" json:"confidence"`
	Box        image.Rectangle `yaml:"-"          json:"-"`
}

// Center returns the midpoint of the item's box.
func (t TextItem) Center() Point {
	return Point{X: (t.Box.Min.X + t.Box.Max.X) / 2, Y: (t.Box.Min.Y + t.Box.Max.Y) / 2}
}

// PageSegMode mirrors tesseract's page segmentation modes.
type PageSegMode int

const (
	PSMAuto        PageSegMode = 3
	PSMSingleBlock PageSegMode = 6
	PSMSingleLine  PageSegMode = 7
	PSMSingleWord  PageSegMode = 8
	PSMRawLine     PageSegMode = 13
)

// RecognizeOptions configures a single text recognition pass.
type RecognizeOptions struct {
	Languages   []string    // e.g. "rus", "eng"
	Whitelist   string      // allowed characters (empty = no restriction)
	PageSegMode PageSegMode // 0 = engine default
}
