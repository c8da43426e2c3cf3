package app

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWithDefaults(t *testing.T) {
	rendered := make(chan struct{}, 8)
	a, err := New(Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Text:       "# Report\ntotal = 4 + 5",
		LogOutput:  io.Discard,
		OnRender:   func() { rendered <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	a.Open()
	select {
	case <-rendered:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the initial evaluation")
	}

	line, ok := a.Editor().Document().GetLine(1)
	if !ok {
		t.Fatal("line 1 missing")
	}
	if line.Result == nil || line.Result.Value != "9" {
		t.Errorf("total = %+v, want 9", line.Result)
	}

	lines := a.View().Render(a.Editor().Document())
	if lines[1].Gutter != "= 9" {
		t.Errorf("gutter = %q, want %q", lines[1].Gutter, "= 9")
	}
}

func TestNewAppliesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "debounce_ms = 50\nline_height = 30\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := New(Options{ConfigPath: path, Text: "x = 1", LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Config().DebounceMS != 50 {
		t.Errorf("DebounceMS = %d, want 50", a.Config().DebounceMS)
	}
	if got := a.Editor().Geometry().Metrics().LineHeight; got != 30 {
		t.Errorf("LineHeight = %d, want 30", got)
	}
}

func TestNewRejectsUnreachableRemoteEngine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "engine = \"remote\"\nengine_addr = \"127.0.0.1:1\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(Options{ConfigPath: path, Text: "", LogOutput: io.Discard}); err == nil {
		t.Error("expected an engine initialization error")
	}
}

func TestConfigChangedAppliesLiveSettings(t *testing.T) {
	a, err := New(Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Text:       "x = 1",
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	cfg := a.Config()
	cfg.LineHeight = 40
	cfg.DebounceMS = 75
	a.configChanged(cfg)

	if got := a.Editor().Geometry().Metrics().LineHeight; got != 40 {
		t.Errorf("LineHeight = %d, want 40", got)
	}
	if a.Config().DebounceMS != 75 {
		t.Errorf("DebounceMS = %d, want 75", a.Config().DebounceMS)
	}
}
