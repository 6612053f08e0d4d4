package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesJSONToOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobfit.log")

	log, err := New(Options{JSON: true, Debug: true, Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("probing backends")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("expected a json entry, got %q: %v", data, err)
	}
	if entry["step"] != "probing backends" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewInfoLevelDropsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobfit.log")

	log, err := New(Options{JSON: true, Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("debug entries must be dropped at info level, got %q", data)
	}
}
