package records

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupTimeLayout = "20060102-150405"

var now = time.Now

// BackupName returns "<name>.<timestamp>.bak<ext>" next to path.
func BackupName(path string, at time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s.%s.bak%s", base, at.Format(backupTimeLayout), ext)
}

// RenameToBackup moves an existing file aside. It returns the backup path, or ""
// when there was nothing to back up.
func RenameToBackup(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	target := BackupName(path, now())
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	return target, nil
}

// CopyToBackup copies an existing file aside and leaves the original in place.
func CopyToBackup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer src.Close()

	target := BackupName(path, now())
	dst, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	return target, nil
}
