// Package singleton enforces that only one monitor instance runs
// against the UPS at a time, using an advisory lock on the pidfile.
// The lock dies with the process, so a crashed instance never leaves a
// stale lock behind the way a bare pidfile would.
package singleton

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lock is a held single-instance lock.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire takes the instance lock at path and records our PID in it.
// Returns ErrAlreadyRunning if another process holds it.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock pidfile %s: %w", path, err)
	}
	if !locked {
		pid := "unknown"
		if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
			pid = string(b)
		}
		return nil, fmt.Errorf("%w (pid %s)", ErrAlreadyRunning, pid)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("write pidfile %s: %w", path, err)
	}
	return &Lock{fl: fl, path: path}, nil
}

// Release drops the lock and removes the pidfile. Safe to call more
// than once.
func (l *Lock) Release() error {
	if l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}
