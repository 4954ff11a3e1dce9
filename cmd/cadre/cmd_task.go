package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pmduarte/cadre/internal/task"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the shared task ledger",
	Long: `Tasks live on a single ledger shared by every persona. Each task
has a priority tier (P0, P1, P2) and an assignee from the registry.

Examples:
  cadre task add "Wire the rotation engine" --priority P0 --assignee Alice
  cadre task list --status pending
  cadre task update 3 completed
  cadre task edit 3 --assignee Bruno`,
}

var (
	addPriority string
	addAssignee string
)

var taskAddCmd = &cobra.Command{
	Use:   "add [description]",
	Short: "Add a task to the ledger",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		t, err := coord.AddTask(strings.Join(args, " "), addPriority, addAssignee)
		if err != nil {
			return err
		}
		fmt.Printf("Added task %d [%s] %s → %s\n", t.ID, t.Priority, t.Description, t.Assignee)
		return nil
	},
}

var (
	listStatus   string
	listPriority string
	listAssignee string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		filter := task.Filter{
			Priority: listPriority,
			Assignee: listAssignee,
		}
		if listStatus != "" {
			status, err := task.ParseStatus(listStatus)
			if err != nil {
				return err
			}
			filter.Status = string(status)
		}

		tasks, err := coord.ListTasks(filter)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks match.")
			return nil
		}
		for _, t := range tasks {
			fmt.Println(formatTask(t))
		}
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update [id] [status]",
	Short: "Change a task's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("cadre: task id must be a number, got %q", args[0])
		}
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		t, err := coord.UpdateTaskStatus(id, args[1])
		if err != nil {
			return err
		}
		fmt.Println(formatTask(t))
		return nil
	},
}

var (
	editDescription string
	editPriority    string
	editAssignee    string
)

var taskEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a task's description, priority, or assignee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("cadre: task id must be a number, got %q", args[0])
		}
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		t, err := coord.EditTask(id, task.Edit{
			Description: editDescription,
			Priority:    editPriority,
			Assignee:    editAssignee,
		})
		if err != nil {
			return err
		}
		fmt.Println(formatTask(t))
		return nil
	},
}

func formatTask(t task.Task) string {
	line := fmt.Sprintf("#%-3d [%s] %-12s %s → %s", t.ID, t.Priority, t.Status, t.Description, t.Assignee)
	if t.Completed != "" {
		line += fmt.Sprintf(" (done %s)", t.Completed)
	}
	return line
}

func init() {
	taskAddCmd.Flags().StringVar(&addPriority, "priority", "P1", "priority tier (P0, P1, P2)")
	taskAddCmd.Flags().StringVar(&addAssignee, "assignee", "", "persona the task belongs to")
	_ = taskAddCmd.MarkFlagRequired("assignee")

	taskListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	taskListCmd.Flags().StringVar(&listPriority, "priority", "", "filter by priority tier")
	taskListCmd.Flags().StringVar(&listAssignee, "assignee", "", "filter by assignee")

	taskEditCmd.Flags().StringVar(&editDescription, "description", "", "new description")
	taskEditCmd.Flags().StringVar(&editPriority, "priority", "", "new priority tier")
	taskEditCmd.Flags().StringVar(&editAssignee, "assignee", "", "new assignee")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskEditCmd)
}
