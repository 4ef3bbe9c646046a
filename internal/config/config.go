// Package config loads the bot configuration: device connection, game
// identity, template images, recognition regions, pauses and the band
// table. A YAML file is decoded over Default so it only needs to name what
// it changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/onboard-cli/internal/band"
	"github.com/mj1618/onboard-cli/internal/platform"
)

// DefaultFile is read when no --config is given and it exists.
const DefaultFile = "onboard.yaml"

// Config is the full bot configuration.
type Config struct {
	ADB       ADB        `yaml:"adb" json:"adb"`
	Game      Game       `yaml:"game" json:"game"`
	Templates Templates  `yaml:"templates" json:"templates"`
	Skip      Skip       `yaml:"skip" json:"skip"`
	Text      Text       `yaml:"text" json:"text"`
	Locator   Locator    `yaml:"locator" json:"locator"`
	Pauses    Pauses     `yaml:"pauses" json:"pauses"`
	Bands     band.Table `yaml:"bands" json:"bands"`
	// Steps optionally replaces the built-in step list with a file.
	Steps string `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// ADB is the device connection.
type ADB struct {
	Path       string `yaml:"path" json:"path"`
	Serial     string `yaml:"serial,omitempty" json:"serial,omitempty"`
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	RawCapture bool   `yaml:"raw_capture,omitempty" json:"raw_capture,omitempty"`
}

// Options converts the connection settings for the device backend.
func (a ADB) Options() platform.DeviceOptions {
	return platform.DeviceOptions{
		ADBPath:    a.Path,
		Serial:     a.Serial,
		Host:       a.Host,
		Port:       a.Port,
		RawCapture: a.RawCapture,
	}
}

// Game identifies the application under automation.
type Game struct {
	Package  string `yaml:"package" json:"package"`
	Activity string `yaml:"activity" json:"activity"`
}

// Templates maps image keys to files under Dir.
type Templates struct {
	Dir       string            `yaml:"dir" json:"dir"`
	Threshold float64           `yaml:"threshold" json:"threshold"`
	Images    map[string]string `yaml:"images" json:"images"`
	Required  []string          `yaml:"required" json:"required"`
	// Poll is the interval between captures while waiting for a template.
	Poll time.Duration `yaml:"poll" json:"poll"`
	// Retry is the pause after a failed capture.
	Retry time.Duration `yaml:"retry" json:"retry"`
}

// Path returns the file behind key, resolved against Dir.
func (t Templates) Path(key string) (string, bool) {
	f, ok := t.Images[key]
	if !ok {
		return "", false
	}
	if filepath.IsAbs(f) {
		return f, true
	}
	return filepath.Join(t.Dir, f), true
}

// Skip configures the skip-control finder.
type Skip struct {
	Variants      []string        `yaml:"variants" json:"variants"`
	Languages     []string        `yaml:"languages" json:"languages"`
	Whitelist     string          `yaml:"whitelist" json:"whitelist"`
	Primary       platform.Bounds `yaml:"primary" json:"primary"`
	Extended      platform.Bounds `yaml:"extended" json:"extended"`
	Wide          platform.Bounds `yaml:"wide" json:"wide"`
	Interval      time.Duration   `yaml:"interval" json:"interval"`
	AdvancedEvery int             `yaml:"advanced_every" json:"advanced_every"`
	LogEvery      int             `yaml:"log_every" json:"log_every"`
	MinConfidence float64         `yaml:"min_confidence" json:"min_confidence"`
	// FuzzyConfidence gates the substring tier of the match policy.
	FuzzyConfidence float64 `yaml:"fuzzy_confidence" json:"fuzzy_confidence"`
}

// Text configures free-text search.
type Text struct {
	Languages []string      `yaml:"languages" json:"languages"`
	Poll      time.Duration `yaml:"poll" json:"poll"`
}

// Swipe is a gesture between two points.
type Swipe struct {
	From     platform.Point `yaml:"from" json:"from"`
	To       platform.Point `yaml:"to" json:"to"`
	Duration time.Duration  `yaml:"duration" json:"duration"`
}

// Locator configures target recognition in the target picker.
type Locator struct {
	Region        platform.Bounds `yaml:"region" json:"region"`
	Whitelist     string          `yaml:"whitelist" json:"whitelist"`
	Languages     []string        `yaml:"languages" json:"languages"`
	MinConfidence float64         `yaml:"min_confidence" json:"min_confidence"`
	MinID         int             `yaml:"min_id" json:"min_id"`
	MaxID         int             `yaml:"max_id" json:"max_id"`
	CacheTTL      time.Duration   `yaml:"cache_ttl" json:"cache_ttl"`
	MaxScrolls    int             `yaml:"max_scrolls" json:"max_scrolls"`
	Tolerance     int             `yaml:"tolerance" json:"tolerance"`
	FineDistance  int             `yaml:"fine_distance" json:"fine_distance"`
	Window        int             `yaml:"window" json:"window"`
	// DefaultMin stands in for the lowest visible id when nothing is
	// recognized.
	DefaultMin   int   `yaml:"default_min" json:"default_min"`
	BandScroll   Swipe `yaml:"band_scroll" json:"band_scroll"`
	FineScroll   Swipe `yaml:"fine_scroll" json:"fine_scroll"`
	CoarseScroll Swipe `yaml:"coarse_scroll" json:"coarse_scroll"`
}

// Pauses are the fixed waits around UI transitions.
type Pauses struct {
	BetweenTargets  time.Duration  `yaml:"between_targets" json:"between_targets"`
	BetweenCycles   time.Duration  `yaml:"between_cycles" json:"between_cycles"`
	BeforeBandTap   time.Duration  `yaml:"before_band_tap" json:"before_band_tap"`
	AfterBandTap    time.Duration  `yaml:"after_band_tap" json:"after_band_tap"`
	AfterBandScroll time.Duration  `yaml:"after_band_scroll" json:"after_band_scroll"`
	BeforeTargetTap time.Duration  `yaml:"before_target_tap" json:"before_target_tap"`
	AfterTargetTap  time.Duration  `yaml:"after_target_tap" json:"after_target_tap"`
	AfterScroll     time.Duration  `yaml:"after_scroll" json:"after_scroll"`
	LocateAttempt   time.Duration  `yaml:"locate_attempt" json:"locate_attempt"`
	Nudge           time.Duration  `yaml:"nudge" json:"nudge"`
	NudgePoint      platform.Point `yaml:"nudge_point" json:"nudge_point"`
}

// SkipVariants is the recognized spellings of the skip control, including
// common recognition confusions between Cyrillic and Latin glyphs.
var SkipVariants = []string{
	"ПРОПУСТИТЬ", "ПРОПУСТИТЬ >>", "ПРОПУСТИТЬ>", "ПРОПУСТИТЬ >",
	"ПРОПУСТИTЬ", "ПРОПУСТИTЬ >>", "ПРОПУСТИTЬ>", "ПРОПУСТИTЬ >",

	"ПРОNYСТИТЬ", "ПРОПYСТИТЬ", "ПPОПУСТИТЬ", "ПРОПУCTИТЬ",
	"ПРOПУСТИТЬ", "ПPOПУСТИТЬ", "ПРОПУСТИTь",
	"ПРОПУСТИТЬ>>", "ПРОNYСТИТЬ >>", "ПРОПYСТИТЬ >>",

	"SKIP", "SKIP >>", "SKIP>", "SKIP >",

	">>", "> >", "»", "» »",

	"РОПУСТИТЬ", "ПРОПУСТИ", "РОПУСТИ", "ПУСТИ", "ПУСТ",

	"П Р О П У С Т И Т Ь", "П РОПУСТИТЬ", "ПРО ПУСТИТЬ",
}

// ImageKeys lists the templates the built-in steps reference.
var ImageKeys = []string{
	"start_battle", "coins", "cannon_is_ready", "hell_henry", "collect_items",
	"gold_compas", "long_song", "confirm_trade", "prepare_for_battle",
	"ship_waiting_zaliz", "long_song_2", "long_song_3", "long_song_4",
	"long_song_5", "long_song_6", "cannon_long", "ship_song", "griffin", "molly",
}

// Default returns the configuration for the current game build.
func Default() *Config {
	images := make(map[string]string, len(ImageKeys))
	for _, k := range ImageKeys {
		images[k] = k + ".png"
	}
	return &Config{
		ADB: ADB{Path: "adb", Host: "127.0.0.1", Port: 5037},
		Game: Game{
			Package:  "com.seaofconquest.global",
			Activity: "com.kingsgroup.mo.KGUnityPlayerActivity",
		},
		Templates: Templates{
			Dir:       "images",
			Threshold: 0.7,
			Images:    images,
			Required:  []string{"start_battle", "coins"},
			Poll:      500 * time.Millisecond,
			Retry:     time.Second,
		},
		Skip: Skip{
			Variants:        append([]string(nil), SkipVariants...),
			Languages:       []string{"rus", "eng"},
			Whitelist:       "АБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯабвгдеёжзийклмнопрстуфхцчшщъыьэюяABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789>»",
			Primary:         platform.Bounds{X: 900, Y: 0, Width: 380, Height: 100},
			Extended:        platform.Bounds{X: 800, Y: 0, Width: 480, Height: 120},
			Wide:            platform.Bounds{X: 700, Y: 0, Width: 580, Height: 150},
			Interval:        300 * time.Millisecond,
			AdvancedEvery:   5,
			LogEvery:        15,
			MinConfidence:   30,
			FuzzyConfidence: 50,
		},
		Text: Text{
			Languages: []string{"rus", "eng"},
			Poll:      500 * time.Millisecond,
		},
		Locator: Locator{
			Region:        platform.Bounds{X: 400, Y: 130, Width: 570, Height: 470},
			Whitelist:     "0123456789#№Море ",
			Languages:     []string{"rus", "eng"},
			MinConfidence: 40,
			MinID:         100,
			MaxID:         band.MaxTarget,
			CacheTTL:      time.Second,
			MaxScrolls:    10,
			Tolerance:     3,
			FineDistance:  8,
			Window:        50,
			DefaultMin:    500,
			BandScroll: Swipe{
				From:     platform.Point{X: 257, Y: 550},
				To:       platform.Point{X: 257, Y: 200},
				Duration: time.Second,
			},
			FineScroll: Swipe{
				From:     platform.Point{X: 640, Y: 380},
				To:       platform.Point{X: 640, Y: 320},
				Duration: 150 * time.Millisecond,
			},
			CoarseScroll: Swipe{
				From:     platform.Point{X: 640, Y: 550},
				To:       platform.Point{X: 640, Y: 200},
				Duration: time.Second,
			},
		},
		Pauses: Pauses{
			BetweenTargets:  6 * time.Second,
			BetweenCycles:   12 * time.Second,
			BeforeBandTap:   500 * time.Millisecond,
			AfterBandTap:    1500 * time.Millisecond,
			AfterBandScroll: 2 * time.Second,
			BeforeTargetTap: 500 * time.Millisecond,
			AfterTargetTap:  1500 * time.Millisecond,
			AfterScroll:     1500 * time.Millisecond,
			LocateAttempt:   500 * time.Millisecond,
			Nudge:           1500 * time.Millisecond,
			NudgePoint:      platform.Point{X: 642, Y: 334},
		},
		Bands: band.Default(),
	}
}

// Load decodes the file at path over Default. Unknown keys are errors.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the bot cannot run with and warns about
// ones it can run with in degraded form.
func (c *Config) Validate(logger *zap.Logger) error {
	if err := c.Bands.Validate(); err != nil {
		return fmt.Errorf("bands: %w", err)
	}
	for _, o := range c.Bands.Overlaps() {
		logger.Warn("bands overlap, the first wins",
			zap.String("first", o.First), zap.String("second", o.Second),
			zap.Int("low", o.Low), zap.Int("high", o.High))
	}
	if c.Templates.Threshold <= 0 || c.Templates.Threshold > 1 {
		return fmt.Errorf("templates.threshold %.2f outside (0, 1]", c.Templates.Threshold)
	}
	if len(c.Skip.Variants) == 0 {
		return errors.New("skip.variants is empty")
	}
	if c.Skip.Interval <= 0 || c.Templates.Poll <= 0 || c.Text.Poll <= 0 {
		return errors.New("poll intervals must be positive")
	}
	if c.Skip.AdvancedEvery < 1 {
		return errors.New("skip.advanced_every must be at least 1")
	}
	if c.Locator.MinID > c.Locator.MaxID {
		return fmt.Errorf("locator id range %d-%d is inverted", c.Locator.MinID, c.Locator.MaxID)
	}
	if c.Game.Package == "" {
		return errors.New("game.package is required")
	}

	for _, key := range c.Templates.Required {
		if _, ok := c.Templates.Images[key]; !ok {
			logger.Warn("required template not configured", zap.String("image", key))
		}
	}
	for _, key := range c.MissingTemplates() {
		p, _ := c.Templates.Path(key)
		logger.Warn("template file missing", zap.String("image", key), zap.String("path", p))
	}
	return nil
}

// MissingTemplates returns the configured keys whose files are absent,
// sorted.
func (c *Config) MissingTemplates() []string {
	var out []string
	for key := range c.Templates.Images {
		p, _ := c.Templates.Path(key)
		if _, err := os.Stat(p); err != nil {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
