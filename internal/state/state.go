// Package state owns the authoritative runtime record: which personas are
// currently active and when rotation and reporting last happened. Every
// caller — monitor, rotation, reporting — reads and mutates the record
// through Store so concurrent commits cannot silently overwrite each other.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pmduarte/cadre/internal/record"
)

var (
	// ErrConflict is returned by a no-wait commit when another process
	// holds the record. The caller should retry the whole operation
	// against freshly read state.
	ErrConflict = errors.New("state: commit conflicts with a concurrent writer")

	// ErrStoreUnavailable is returned when the record could not be locked
	// within the wait budget.
	ErrStoreUnavailable = errors.New("state: store unavailable")
)

// DefaultLockWait bounds how long a blocking commit waits for the record.
const DefaultLockWait = 3 * time.Second

// Runtime is the persisted runtime state record.
type Runtime struct {
	ActivePersonas []string `json:"active_personas"`
	LastRotation   int64    `json:"last_rotation"`
	LastReport     int64    `json:"last_report"`
	// Version counts committed mutations; each successful Commit bumps it.
	Version int64 `json:"version,omitempty"`
	// RotationID identifies the rotation run that produced ActivePersonas.
	RotationID string `json:"rotation_id,omitempty"`
}

// Clone returns a deep copy so mutation callbacks never alias the stored slice.
func (r Runtime) Clone() Runtime {
	out := r
	out.ActivePersonas = append([]string(nil), r.ActivePersonas...)
	return out
}

// Store persists the runtime record at a fixed path.
type Store struct {
	path     string
	lockWait time.Duration
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithLockWait overrides how long blocking commits wait for the lock.
func WithLockWait(wait time.Duration) StoreOption {
	return func(s *Store) {
		s.lockWait = wait
	}
}

// NewStore builds a store for the record at path.
func NewStore(path string, opts ...StoreOption) *Store {
	store := &Store{
		path:     path,
		lockWait: DefaultLockWait,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Path returns the record location.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the advisory lock guarding the record.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Load reads the current record, returning the zero record when none exists
// yet. A missing file is not an error: first access creates the default.
func (s *Store) Load() (Runtime, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Runtime{ActivePersonas: []string{}}, nil
		}
		return Runtime{}, fmt.Errorf("state: read %s: %w", s.path, err)
	}
	var rt Runtime
	if err := json.Unmarshal(data, &rt); err != nil {
		return Runtime{}, fmt.Errorf("state: parse %s: %w", s.path, err)
	}
	if rt.ActivePersonas == nil {
		rt.ActivePersonas = []string{}
	}
	return rt, nil
}

// CommitOption adjusts a single commit call.
type CommitOption func(*commitSettings)

type commitSettings struct {
	noWait bool
}

// NoWait makes Commit fail fast with ErrConflict when the record is locked,
// instead of blocking until the holder releases it.
func NoWait() CommitOption {
	return func(cs *commitSettings) {
		cs.noWait = true
	}
}

// Commit runs a read-modify-write cycle under the record lock. The mutation
// receives the latest on-disk record and returns the new value; Commit bumps
// the version and replaces the file atomically, so a losing writer always
// recomputes against fresh state rather than overwriting blindly.
func (s *Store) Commit(mutate func(Runtime) Runtime, opts ...CommitOption) (Runtime, error) {
	var settings commitSettings
	for _, opt := range opts {
		opt(&settings)
	}
	wait := s.lockWait
	if settings.noWait {
		wait = 0
	}

	lock, err := record.AcquireLock(s.LockPath(), wait)
	if err != nil {
		switch {
		case errors.Is(err, record.ErrLockHeld):
			return Runtime{}, ErrConflict
		case errors.Is(err, record.ErrLockTimeout):
			return Runtime{}, ErrStoreUnavailable
		default:
			return Runtime{}, err
		}
	}
	defer lock.Release()

	current, err := s.Load()
	if err != nil {
		return Runtime{}, err
	}
	next := mutate(current.Clone())
	if next.ActivePersonas == nil {
		next.ActivePersonas = []string{}
	}
	next.Version = current.Version + 1

	if err := s.write(next); err != nil {
		return Runtime{}, err
	}
	return next, nil
}

// Reset removes the record. Only an explicit operator action calls this.
func (s *Store) Reset() error {
	lock, err := record.AcquireLock(s.LockPath(), s.lockWait)
	if err != nil {
		if errors.Is(err, record.ErrLockTimeout) {
			return ErrStoreUnavailable
		}
		return err
	}
	defer lock.Release()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("state: reset %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) write(rt Runtime) error {
	data, err := json.MarshalIndent(rt, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return record.WriteFileAtomic(s.path, append(data, '\n'), 0o644)
}
