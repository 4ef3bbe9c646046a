package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

type sample struct {
	Target  int           `yaml:"target"          json:"target"`
	Error   string        `yaml:"error,omitempty" json:"error,omitempty"`
	Elapsed time.Duration `yaml:"elapsed"         json:"elapsed"`
	Label   string        `yaml:"label"           json:"label"`
}

func TestFprint_YAML(t *testing.T) {
	var buf bytes.Buffer
	err := Fprint(&buf, FormatYAML, sample{Target: 600, Elapsed: 90 * time.Second, Label: "Море #600"})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Count(out, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}
	if strings.Contains(out, "error:") {
		t.Errorf("empty error should be omitted, got:\n%s", out)
	}
	if !strings.Contains(out, "elapsed: 1m30s") {
		t.Errorf("durations should render as text, got:\n%s", out)
	}

	var decoded sample
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.Target != 600 || decoded.Label != "Море #600" {
		t.Errorf("round trip: got %+v", decoded)
	}
}

func TestFprint_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Fprint(&buf, FormatJSON, sample{Target: 597, Label: "<S2>"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Count(out, "\n") != 1 {
		t.Errorf("compact JSON should be a single line, got:\n%s", out)
	}
	if !strings.Contains(out, "<S2>") {
		t.Errorf("HTML characters should not be escaped, got: %s", out)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := decoded["error"]; ok {
		t.Error("empty error should be omitted")
	}
}

func TestFprint_PrettyJSON(t *testing.T) {
	PrettyOutput = true
	defer func() { PrettyOutput = false }()

	var buf bytes.Buffer
	if err := Fprint(&buf, FormatJSON, sample{Target: 1}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") <= 1 {
		t.Errorf("pretty JSON should be multi-line, got:\n%s", buf.String())
	}
}

func TestPrint_UsesGlobals(t *testing.T) {
	var buf bytes.Buffer
	oldW, oldF := Writer, OutputFormat
	Writer, OutputFormat = &buf, FormatJSON
	defer func() { Writer, OutputFormat = oldW, oldF }()

	if err := Print(map[string]int{"succeeded": 2}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"succeeded":2}` {
		t.Errorf("got %s", got)
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "json"} {
		if f, err := ParseFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	if err := Fprint(&bytes.Buffer{}, Format("toml"), 1); err == nil {
		t.Error("expected error for unsupported format")
	}
}
