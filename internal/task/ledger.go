package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/record"
)

var (
	// ErrConflict is returned by a no-wait mutation when another process
	// holds the ledger.
	ErrConflict = errors.New("task: ledger conflicts with a concurrent writer")

	// ErrStoreUnavailable is returned when the ledger could not be locked
	// within the wait budget.
	ErrStoreUnavailable = errors.New("task: ledger unavailable")
)

// DefaultLockWait bounds how long mutations wait for the ledger lock.
const DefaultLockWait = 3 * time.Second

type ledgerRecord struct {
	Tasks []Task `json:"tasks"`
}

// Ledger persists the task record and validates mutations against the
// persona registry. All mutation runs under the ledger lock; validation
// failures abort before any write.
type Ledger struct {
	cfg      *config.Config
	path     string
	lockWait time.Duration
	now      func() time.Time
}

// Option customizes a Ledger during construction.
type Option func(*Ledger)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.now = clock
	}
}

// WithLockWait overrides how long mutations wait for the ledger lock.
func WithLockWait(wait time.Duration) Option {
	return func(l *Ledger) {
		l.lockWait = wait
	}
}

// NewLedger builds a ledger stored at the project's tasks record.
func NewLedger(cfg *config.Config, opts ...Option) *Ledger {
	ledger := &Ledger{
		cfg:      cfg,
		path:     cfg.TasksPath(),
		lockWait: DefaultLockWait,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger
}

// Path returns the ledger record location.
func (l *Ledger) Path() string {
	return l.path
}

// LockPath returns the advisory lock guarding the ledger.
func (l *Ledger) LockPath() string {
	return l.path + ".lock"
}

// Add appends a new task. The id is one past the current count, the status
// starts Pending, and the assignee must exist in the registry.
func (l *Ledger) Add(description, priority, assignee string) (Task, error) {
	priority, err := normalizePriority(priority)
	if err != nil {
		return Task{}, err
	}
	persona, ok := l.cfg.PersonaByName(assignee)
	if !ok {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidAssignee, assignee)
	}

	var added Task
	err = l.mutate(func(rec *ledgerRecord) error {
		added = Task{
			ID:          len(rec.Tasks) + 1,
			Description: description,
			Priority:    priority,
			Assignee:    persona.Name,
			Status:      StatusPending,
			Created:     l.now().Format(TimeFormat),
		}
		rec.Tasks = append(rec.Tasks, added)
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return added, nil
}

// Update transitions a task to a new status. The completion timestamp is set
// iff the task moves to Completed and cleared on any other transition.
func (l *Ledger) Update(id int, status Status) (Task, error) {
	var updated Task
	err := l.mutate(func(rec *ledgerRecord) error {
		idx := findTask(rec.Tasks, id)
		if idx < 0 {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		t := rec.Tasks[idx]
		t.Status = status
		if status == StatusCompleted {
			t.Completed = l.now().Format(TimeFormat)
		} else {
			t.Completed = ""
		}
		rec.Tasks[idx] = t
		updated = t
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// EditTask applies a partial field correction to an existing task.
func (l *Ledger) EditTask(id int, edit Edit) (Task, error) {
	if edit.empty() {
		return Task{}, ErrNoFields
	}
	if edit.Priority != "" {
		normalized, err := normalizePriority(edit.Priority)
		if err != nil {
			return Task{}, err
		}
		edit.Priority = normalized
	}
	if edit.Assignee != "" {
		persona, ok := l.cfg.PersonaByName(edit.Assignee)
		if !ok {
			return Task{}, fmt.Errorf("%w: %q", ErrInvalidAssignee, edit.Assignee)
		}
		edit.Assignee = persona.Name
	}

	var edited Task
	err := l.mutate(func(rec *ledgerRecord) error {
		idx := findTask(rec.Tasks, id)
		if idx < 0 {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		t := rec.Tasks[idx]
		if edit.Description != "" {
			t.Description = edit.Description
		}
		if edit.Priority != "" {
			t.Priority = edit.Priority
		}
		if edit.Assignee != "" {
			t.Assignee = edit.Assignee
		}
		rec.Tasks[idx] = t
		edited = t
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return edited, nil
}

// List returns tasks matching the filter in stable insertion order.
func (l *Ledger) List(filter Filter) ([]Task, error) {
	rec, err := l.load()
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(rec.Tasks))
	for _, t := range rec.Tasks {
		if filter.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// All returns every task in insertion order.
func (l *Ledger) All() ([]Task, error) {
	return l.List(Filter{})
}

func (l *Ledger) load() (ledgerRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledgerRecord{}, nil
		}
		return ledgerRecord{}, fmt.Errorf("task: read %s: %w", l.path, err)
	}
	var rec ledgerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ledgerRecord{}, fmt.Errorf("task: parse %s: %w", l.path, err)
	}
	return rec, nil
}

// mutate runs a read-modify-write cycle under the ledger lock. An error from
// fn aborts the cycle before anything is written.
func (l *Ledger) mutate(fn func(*ledgerRecord) error) error {
	lock, err := record.AcquireLock(l.LockPath(), l.lockWait)
	if err != nil {
		switch {
		case errors.Is(err, record.ErrLockHeld):
			return ErrConflict
		case errors.Is(err, record.ErrLockTimeout):
			return ErrStoreUnavailable
		default:
			return err
		}
	}
	defer lock.Release()

	rec, err := l.load()
	if err != nil {
		return err
	}
	if err := fn(&rec); err != nil {
		return err
	}
	if rec.Tasks == nil {
		rec.Tasks = []Task{}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("task: encode ledger: %w", err)
	}
	return record.WriteFileAtomic(l.path, append(data, '\n'), 0o644)
}

func findTask(tasks []Task, id int) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizePriority(raw string) (string, error) {
	priority := strings.ToUpper(strings.TrimSpace(raw))
	switch priority {
	case config.PriorityP0, config.PriorityP1, config.PriorityP2:
		return priority, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
}
