package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaitForUsesSleep(t *testing.T) {
	var slept time.Duration
	restore := SetSleepForTest(func(d time.Duration) { slept = d })
	defer restore()

	if err := WaitFor(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if slept != 3*time.Second {
		t.Fatalf("expected sleep of 3s, got %v", slept)
	}
}

func TestWaitForReturnsOnCancel(t *testing.T) {
	block := make(chan struct{})
	restore := SetSleepForTest(func(time.Duration) { <-block })
	defer func() {
		close(block)
		restore()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForSkipsNonPositive(t *testing.T) {
	restore := SetSleepForTest(func(time.Duration) { t.Fatalf("sleep must not be called") })
	defer restore()

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	if err := WriteFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("unexpected content: %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}
