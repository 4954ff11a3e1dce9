// Package status composes the registry, the runtime record, and a ledger
// snapshot into a read-only project summary. Compute is a pure function of
// its inputs and mutates nothing, so it is safe to call concurrently with
// any other operation.
package status

import (
	"time"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/state"
	"github.com/pmduarte/cadre/internal/task"
)

// Snapshot is the human-facing project summary.
type Snapshot struct {
	Now int64

	RotationDue    bool
	ReportDue      bool
	ActivePersonas []string
	LastRotation   int64
	LastReport     int64

	TotalTasks        int
	ByStatus          map[task.Status]int
	ByPriority        map[string]int
	PendingP0         int
	CompletionPercent float64
}

// Compute builds the snapshot for one instant.
func Compute(cfg *config.Config, rt state.Runtime, tasks []task.Task, now time.Time) Snapshot {
	unix := now.Unix()
	snap := Snapshot{
		Now:            unix,
		RotationDue:    state.Due(unix, rt.LastRotation, cfg.RotationInterval()),
		ReportDue:      state.Due(unix, rt.LastReport, cfg.ReportInterval()),
		ActivePersonas: append([]string(nil), rt.ActivePersonas...),
		LastRotation:   rt.LastRotation,
		LastReport:     rt.LastReport,
		TotalTasks:     len(tasks),
		ByStatus: map[task.Status]int{
			task.StatusPending:    0,
			task.StatusInProgress: 0,
			task.StatusCompleted:  0,
		},
		ByPriority: map[string]int{
			config.PriorityP0: 0,
			config.PriorityP1: 0,
			config.PriorityP2: 0,
		},
	}

	for _, t := range tasks {
		snap.ByStatus[t.Status]++
		snap.ByPriority[t.Priority]++
		if t.Priority == config.PriorityP0 && t.Status == task.StatusPending {
			snap.PendingP0++
		}
	}
	if snap.TotalTasks > 0 {
		snap.CompletionPercent = float64(snap.ByStatus[task.StatusCompleted]) / float64(snap.TotalTasks) * 100
	}
	return snap
}
