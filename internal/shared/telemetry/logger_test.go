package telemetry

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Info("share.tracked", map[string]any{"platform": "linkedin"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "share.tracked" || line["level"] != "info" || line["platform"] != "linkedin" {
		t.Fatalf("unexpected log line %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts field")
	}
}

func TestSetLevelFiltersInfo(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()
	SetLevel("error")
	defer SetLevel("info")

	Info("dropped", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	Error("kept", nil)
	if buf.Len() == 0 {
		t.Fatalf("expected error line")
	}
}
