package records

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock for an output path.
var ErrLocked = errors.New("output is locked by another process")

// Lock guards an output file against concurrent writers.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes a non-blocking lock on "<path>.lock".
func AcquireLock(path string) (*Lock, error) {
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return &Lock{fl: fl}, nil
}

func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
