// Package record provides the shared machinery for cadre's single-record
// stores: an advisory exclusive lock file plus atomic replacement of the
// record contents. Both the runtime state and the task ledger are one
// durable record each, so every read-modify-write cycle runs under a lock
// held for the duration of the cycle.
package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	// ErrLockHeld is returned by a no-wait acquire when another process
	// currently holds the lock.
	ErrLockHeld = errors.New("record: lock held by another process")

	// ErrLockTimeout is returned when the lock could not be acquired
	// within the configured wait budget.
	ErrLockTimeout = errors.New("record: timed out waiting for lock")
)

const (
	retryInterval = 25 * time.Millisecond

	// staleAfter is how old a lock file may be before it is considered
	// abandoned by a crashed process and broken.
	staleAfter = 10 * time.Second
)

// Lock is an acquired advisory lock. Release removes the lock file.
type Lock struct {
	path string
}

// AcquireLock takes the advisory lock at path, waiting up to wait for a
// competing holder to release it. A zero wait means fail fast with
// ErrLockHeld instead of blocking.
func AcquireLock(path string, wait time.Duration) (*Lock, error) {
	deadline := time.Now().Add(wait)
	for {
		ok, err := tryLock(path)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{path: path}, nil
		}
		if wait == 0 {
			return nil, ErrLockHeld
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		breakIfStale(path)
		time.Sleep(retryInterval)
	}
}

// Release drops the lock. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("record: release lock: %w", err)
	}
	return nil
}

func tryLock(path string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("record: ensure %s: %w", filepath.Dir(path), err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("record: create lock %s: %w", path, err)
	}
	// The owner pid makes stale locks diagnosable.
	_, _ = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("record: write lock %s: %w", path, err)
	}
	return true, nil
}

// breakIfStale removes a lock file whose holder appears to have died. The
// mtime check keeps a healthy holder safe: live commits finish well inside
// the stale window.
func breakIfStale(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) < staleAfter {
		return
	}
	_ = os.Remove(path)
}

// LockAge reports how long the lock at path has been held, for diagnostics.
// The second return is false when no lock file exists.
func LockAge(path string) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}
