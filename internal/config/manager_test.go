package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	m := NewManagerAt(t.TempDir())

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "" || cfg.Model != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
	if m.Exists() {
		t.Error("Exists should be false before Save")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := NewManagerAt(t.TempDir())

	ws := 12
	stream := false
	in := &Config{
		Provider:     "ollama",
		Model:        "llama3.1",
		BaseURL:      "http://localhost:11434/v1",
		SystemPrompt: "be brief",
		WindowSize:   &ws,
		Stream:       &stream,
		Temperature:  0.4,
	}
	if err := m.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !m.Exists() {
		t.Fatal("Exists should be true after Save")
	}

	out, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Provider != in.Provider || out.Model != in.Model || out.BaseURL != in.BaseURL {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.WindowSizeOr(-1) != 12 {
		t.Errorf("WindowSizeOr = %d, want 12", out.WindowSizeOr(-1))
	}
	if out.StreamOr(true) {
		t.Error("StreamOr should honor explicit false")
	}
}

func TestDefaultsWhenUnset(t *testing.T) {
	cfg := &Config{}
	if got := cfg.WindowSizeOr(8); got != 8 {
		t.Errorf("WindowSizeOr default = %d, want 8", got)
	}
	if !cfg.StreamOr(true) {
		t.Error("StreamOr default should be true")
	}
}

func TestSaveRestrictsPermissions(t *testing.T) {
	dir := t.TempDir()
	m := NewManagerAt(dir)
	if err := m.Save(&Config{APIKey: "secret"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}
}
