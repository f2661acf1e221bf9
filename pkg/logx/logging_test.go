package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "roster"))

	log.Debug("hidden")
	log.Info("task added", Int("tasks", 2), Err(errors.New("boom")), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m["message"] != "task added" || m["comp"] != "roster" || m["tasks"] != float64(2) || m["err"] != "boom" {
		t.Fatalf("entry = %v", m)
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %v", m["caller"])
	}
}

func TestWithOverridesLaterField(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, "debug").With(String("k", "a")).Debug("x", String("k", "b"))
	if !strings.Contains(buf.String(), `"k":"b"`) {
		t.Fatalf("output = %s", buf.String())
	}
}

func TestZeroAndNopLoggersAreSilent(t *testing.T) {
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero value not reported as zero")
	}
	zero.Error("nothing")
	Nop().Error("nothing")
	if Nop().Enabled(LevelError) {
		t.Fatal("nop logger reports enabled")
	}
}

func TestServiceFileAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew.log")
	svc, log := New(Config{Level: "warn", File: FileConfig{Enabled: true, Path: path}})

	log.Info("dropped")
	log.Warn("kept")
	if log.Enabled(LevelInfo) {
		t.Fatal("info enabled at warn level")
	}

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	if !log.Enabled(LevelDebug) {
		t.Fatal("Apply did not lower the level for an existing logger")
	}
	log.Debug("after apply")
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") || !strings.Contains(out, "after apply") {
		t.Fatalf("log file:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":         LevelInfo,
		" warning": LevelWarn,
		"Debug":    LevelDebug,
		"bogus":    LevelInfo,
		"ERROR":    LevelError,
	}
	for in, want := range cases {
		if got := parseLevel(in, LevelInfo); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
