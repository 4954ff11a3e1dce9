package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmduarte/cadre/internal/rotation"
	"github.com/pmduarte/cadre/internal/task"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the rotation, report, and task summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		snap, err := coord.Status()
		if err != nil {
			return err
		}

		roster := "none"
		if len(snap.ActivePersonas) > 0 {
			roster = strings.Join(snap.ActivePersonas, ", ")
		}
		fmt.Printf("Active personas:  %s\n", roster)
		fmt.Printf("Rotation due:     %s\n", dueWord(snap.RotationDue, snap.LastRotation))
		fmt.Printf("Reports due:      %s\n", dueWord(snap.ReportDue, snap.LastReport))
		fmt.Printf("Last rotation:    %s\n", timestampWord(snap.LastRotation))
		fmt.Printf("Last report run:  %s\n", timestampWord(snap.LastReport))
		fmt.Println()
		fmt.Printf("Tasks: %d total · %d pending · %d in progress · %d completed\n",
			snap.TotalTasks,
			snap.ByStatus[task.StatusPending],
			snap.ByStatus[task.StatusInProgress],
			snap.ByStatus[task.StatusCompleted])
		fmt.Printf("P0 pending: %d · completion %.0f%%\n", snap.PendingP0, snap.CompletionPercent)
		return nil
	},
}

var forceRotation bool

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the active persona roster if the interval has elapsed",
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		rt, err := coord.Rotate(forceRotation)
		if errors.Is(err, rotation.ErrNotDue) {
			fmt.Println("Rotation interval has not elapsed yet. Use --force to rotate anyway.")
			return nil
		}
		if err != nil {
			return err
		}
		if len(rt.ActivePersonas) == 0 {
			fmt.Println("Rotated, but the registry has no personas.")
			return nil
		}
		fmt.Printf("Active roster: %s\n", strings.Join(rt.ActivePersonas, ", "))
		return nil
	},
}

func init() {
	rotateCmd.Flags().BoolVar(&forceRotation, "force", false, "rotate even if the interval has not elapsed")
}

func dueWord(due bool, last int64) string {
	if last == 0 {
		return "yes (never run)"
	}
	if due {
		return "yes"
	}
	return "no"
}

func timestampWord(unix int64) string {
	if unix == 0 {
		return "never"
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04:05")
}
