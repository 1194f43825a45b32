package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	if got := GetDuration("inter_ticker_delay"); got != 5*time.Second {
		t.Fatalf("expected 5s delay, got %v", got)
	}
	if !GetBool("repeat_alerts") {
		t.Fatal("repeat alerts should default to true")
	}
	if got := GetString("scratch_dir"); got != "temp" {
		t.Fatalf("unexpected scratch dir %q", got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HTTP_RETRIES", "7")
	if got := GetInt("http_retries"); got != 7 {
		t.Fatalf("expected env override 7, got %d", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickerwatch.yaml")
	if err := os.WriteFile(path, []byte("alert_pause: 3s\nquote_base_url: http://localhost:9999/quote\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := GetDuration("alert_pause"); got != 3*time.Second {
		t.Fatalf("expected 3s pause, got %v", got)
	}
	if got := GetString("quote_base_url"); got != "http://localhost:9999/quote" {
		t.Fatalf("unexpected base url %q", got)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestBindFlagRejectsMissingFlag(t *testing.T) {
	if err := BindFlag("inter_ticker_delay", nil); err == nil {
		t.Fatal("expected error when binding a missing flag")
	}
}
