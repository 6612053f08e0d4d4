package records

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeHandlesBOMAndShortRows(t *testing.T) {
	input := "\ufeff\"Title\",\"company\",\"description\"\n\"Go Dev\",\"Acme\"\n\"SRE\",\"Globex\",\"On call, \"\"heavy\"\"\"\n"

	table, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", table.Len())
	}

	first := table.Records[0]
	if first.Get("title") != "Go Dev" {
		t.Fatalf("BOM must not leak into the first column name, columns: %v", first.Columns())
	}
	if !first.Has("description") || first.Get("description") != "" {
		t.Fatalf("expected short row to be padded with empty description")
	}

	if got := table.Records[1].Get("Description"); got != `On call, "heavy"` {
		t.Fatalf("unexpected quoted value: %q", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	table := &Table{}
	table.Append(FromPairs("title", "Go Dev", "notes", "line1\nline2"))
	table.Append(FromPairs("title", "SRE", "score", "80"))

	var buf bytes.Buffer
	if err := Encode(&buf, table); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", decoded.Len())
	}
	if got := decoded.Records[0].Get("notes"); got != "line1\nline2" {
		t.Fatalf("multi-line value not preserved: %q", got)
	}
	if got := decoded.Records[0].Get("score"); got != "" {
		t.Fatalf("expected empty score for first row, got %q", got)
	}
	if got := decoded.Records[1].Get("score"); got != "80" {
		t.Fatalf("unexpected score: %q", got)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	table, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table")
	}
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	table := &Table{}
	table.Append(FromPairs("title", "Go Dev"))

	if err := Write(path, table); err != nil {
		t.Fatalf("write: %v", err)
	}

	read, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if read.Len() != 1 || read.Records[0].Get("title") != "Go Dev" {
		t.Fatalf("unexpected table after read")
	}
}

func TestBackups(t *testing.T) {
	original := now
	now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	defer func() { now = original }()

	dir := t.TempDir()
	path := filepath.Join(dir, "enriched.csv")

	backup, err := RenameToBackup(path)
	if err != nil || backup != "" {
		t.Fatalf("expected no backup for missing file, got %q, %v", backup, err)
	}

	if err := os.WriteFile(path, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	copied, err := CopyToBackup(path)
	if err != nil {
		t.Fatalf("copy backup: %v", err)
	}
	if copied != filepath.Join(dir, "enriched.20260102-030405.bak.csv") {
		t.Fatalf("unexpected backup name: %q", copied)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("copy must keep the original: %v", err)
	}

	if err := os.Remove(copied); err != nil {
		t.Fatalf("remove: %v", err)
	}

	moved, err := RenameToBackup(path)
	if err != nil {
		t.Fatalf("rename backup: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("rename must move the original away")
	}
	data, err := os.ReadFile(moved)
	if err != nil || string(data) != "a\n1\n" {
		t.Fatalf("backup content mismatch: %q, %v", data, err)
	}
}

func TestAcquireLockBlocksSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := AcquireLock(path); err == nil {
		t.Fatalf("expected second acquire to fail")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	again, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release()
}
