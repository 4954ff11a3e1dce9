// cmd/cadre/main.go
//
// This is the entry point for the Cadre CLI. Subcommands are thin wrappers
// over the coordinator; they parse flags, call one operation, and print the
// result. All state lives under the project's .cadre directory.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/coordinator"
	"github.com/pmduarte/cadre/internal/doctor"
	"github.com/pmduarte/cadre/internal/logging"
	"github.com/pmduarte/cadre/internal/notify"
	"github.com/pmduarte/cadre/internal/tui"
)

var projectDir string

var rootCmd = &cobra.Command{
	Use:   "cadre",
	Short: "Persona rotation and shared-state coordination",
	Long: `Cadre keeps a small team of personas coordinated around one project:
it rotates the active roster on a schedule, generates daily progress
reports, and tracks tasks on a shared ledger.

All state lives in the project's .cadre directory. Run "cadre init" once,
then "cadre status" to see where things stand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the .cadre directory and seed a default registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}
		if err := config.InitCadreDir(dir); err != nil {
			return err
		}
		fmt.Printf("Initialized %s\n", filepath.Join(dir, config.CadreDir))
		fmt.Println("Edit config.yaml to register your personas, then run `cadre rotate`.")
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live status dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}
		app, err := tui.NewApp(dir)
		if err != nil {
			return err
		}
		p := tea.NewProgram(app, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Check for due rotations, due reports, and stale artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()
		alerts, err := coord.Notify()
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Println("Nothing needs attention.")
			return nil
		}
		for _, alert := range alerts {
			fmt.Println(alert)
		}
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose problems with the project's .cadre tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProjectDir()
		if err != nil {
			return err
		}
		findings := doctor.Run(dir)
		for _, f := range findings {
			fmt.Printf("%-4s  %-8s %s\n", strings.ToUpper(string(f.Severity)), f.Subject, f.Detail)
		}
		if !doctor.Healthy(findings) {
			return fmt.Errorf("cadre: project has failing checks")
		}
		return nil
	},
}

// resolveProjectDir returns the --project flag value or the working directory.
func resolveProjectDir() (string, error) {
	if projectDir != "" {
		return filepath.Abs(projectDir)
	}
	return os.Getwd()
}

// loadCoordinator builds a coordinator with the activity and notification
// logs attached. The returned func closes the log file.
func loadCoordinator() (*coordinator.Coordinator, func(), error) {
	dir, err := resolveProjectDir()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, nil, err
	}

	opts := []coordinator.Option{}
	logger, err := logging.New(dir)
	if err == nil {
		opts = append(opts, coordinator.WithLogger(logger))
	}
	notifications, err := notify.New(filepath.Join(cfg.LogsDir(), "notifications.log"))
	if err == nil {
		opts = append(opts, coordinator.WithNotifications(notifications))
	}

	closeFn := func() {
		if logger != nil {
			_ = logger.Close()
		}
	}
	return coordinator.New(cfg, opts...), closeFn, nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "project directory (default: working directory)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(dashboardCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
