// Package task tracks project tasks in a single shared ledger record.
// Tasks are keyed by a sequential id, carry a priority tier and an assignee
// validated against the persona registry, and are never physically deleted.
package task

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task: not found")

	// ErrInvalidAssignee is returned when an assignee is not in the
	// persona registry. The ledger is left unchanged.
	ErrInvalidAssignee = errors.New("task: assignee not in registry")

	// ErrInvalidPriority is returned for priorities outside P0, P1, P2.
	ErrInvalidPriority = errors.New("task: priority must be P0, P1 or P2")

	// ErrInvalidStatus is returned for unknown lifecycle states.
	ErrInvalidStatus = errors.New("task: unknown status")

	// ErrNoFields is returned by Edit when no field was provided.
	ErrNoFields = errors.New("task: no fields to edit")
)

// ParseStatus maps user input onto a Status, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "in progress", "in-progress", "inprogress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// TimeFormat is the human-readable timestamp stored on tasks.
const TimeFormat = "2006-01-02 15:04:05"

// Task is one ledger entry.
type Task struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Assignee    string `json:"assignee"`
	Status      Status `json:"status"`
	Created     string `json:"created"`
	// Completed holds the completion timestamp and is non-empty iff the
	// task status is Completed.
	Completed string `json:"completed"`
}

// Filter narrows List results. Empty fields match everything; matching is
// case-insensitive exact.
type Filter struct {
	Status   string
	Priority string
	Assignee string
}

func (f Filter) matches(t Task) bool {
	if f.Status != "" && !strings.EqualFold(f.Status, string(t.Status)) {
		return false
	}
	if f.Priority != "" && !strings.EqualFold(f.Priority, t.Priority) {
		return false
	}
	if f.Assignee != "" && !strings.EqualFold(f.Assignee, t.Assignee) {
		return false
	}
	return true
}

// Edit is a partial update; empty fields are left unchanged.
type Edit struct {
	Description string
	Priority    string
	Assignee    string
}

func (e Edit) empty() bool {
	return e.Description == "" && e.Priority == "" && e.Assignee == ""
}
