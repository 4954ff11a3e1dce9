// Package doctor inspects a project's .cadre tree for the problems that
// stop the coordinator from working: a missing or invalid registry,
// unparseable records, dangling roster references, and abandoned locks.
package doctor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/record"
	"github.com/pmduarte/cadre/internal/state"
	"github.com/pmduarte/cadre/internal/task"
)

// Severity grades a finding.
type Severity string

const (
	SeverityOK   Severity = "ok"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// Finding is one diagnostic result.
type Finding struct {
	Severity Severity
	Subject  string
	Detail   string
}

// Healthy reports whether no finding is a failure.
func Healthy(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityFail {
			return false
		}
	}
	return true
}

// staleLockAge is how old a lock may be before it is flagged as abandoned.
const staleLockAge = 10 * time.Second

// Run checks the project tree and returns its findings in a stable order.
func Run(projectDir string) []Finding {
	var findings []Finding

	cadreDir := filepath.Join(projectDir, config.CadreDir)
	if info, err := os.Stat(cadreDir); err != nil || !info.IsDir() {
		findings = append(findings, Finding{SeverityFail, "project", "no .cadre directory; run `cadre init` first"})
		return findings
	}
	findings = append(findings, Finding{SeverityOK, "project", ".cadre directory present"})

	cfg, err := config.NewConfig(projectDir)
	switch {
	case errors.Is(err, config.ErrConfigMissing):
		findings = append(findings, Finding{SeverityFail, "config", "config.yaml missing; run `cadre init` to seed one"})
		return findings
	case err != nil:
		findings = append(findings, Finding{SeverityFail, "config", err.Error()})
		return findings
	default:
		findings = append(findings, Finding{SeverityOK, "config", fmt.Sprintf("%d personas, rotation %ds, reports %ds",
			len(cfg.Personas()), cfg.RotationInterval(), cfg.ReportInterval())})
	}
	if len(cfg.Personas()) == 0 {
		findings = append(findings, Finding{SeverityWarn, "config", "registry has no personas; rotations will produce an empty roster"})
	}

	findings = append(findings, checkState(cfg)...)
	findings = append(findings, checkTasks(cfg)...)
	findings = append(findings, checkLocks(cfg)...)
	return findings
}

func checkState(cfg *config.Config) []Finding {
	store := state.NewStore(cfg.StatePath())
	rt, err := store.Load()
	if err != nil {
		return []Finding{{SeverityFail, "state", err.Error()}}
	}

	var findings []Finding
	var dangling []string
	for _, name := range rt.ActivePersonas {
		if !cfg.HasPersona(name) {
			dangling = append(dangling, name)
		}
	}
	if len(dangling) > 0 {
		findings = append(findings, Finding{SeverityFail, "state",
			"active roster references personas missing from the registry: " + strings.Join(dangling, ", ")})
	} else {
		findings = append(findings, Finding{SeverityOK, "state",
			fmt.Sprintf("%d active personas, version %d", len(rt.ActivePersonas), rt.Version)})
	}
	if len(rt.ActivePersonas) > 3 {
		findings = append(findings, Finding{SeverityFail, "state",
			fmt.Sprintf("active roster holds %d personas, cap is 3", len(rt.ActivePersonas))})
	}
	return findings
}

func checkTasks(cfg *config.Config) []Finding {
	ledger := task.NewLedger(cfg)
	tasks, err := ledger.All()
	if err != nil {
		return []Finding{{SeverityFail, "tasks", err.Error()}}
	}

	findings := []Finding{{SeverityOK, "tasks", fmt.Sprintf("%d tasks on the ledger", len(tasks))}}
	for _, t := range tasks {
		if !cfg.HasPersona(t.Assignee) {
			findings = append(findings, Finding{SeverityWarn, "tasks",
				fmt.Sprintf("task %d is assigned to %q, who is not in the registry", t.ID, t.Assignee)})
		}
	}
	return findings
}

func checkLocks(cfg *config.Config) []Finding {
	var findings []Finding
	for _, path := range []string{cfg.StatePath() + ".lock", cfg.TasksPath() + ".lock"} {
		age, held := record.LockAge(path)
		if !held {
			continue
		}
		if age >= staleLockAge {
			findings = append(findings, Finding{SeverityWarn, "locks",
				fmt.Sprintf("%s has been held for %s; a crashed process may have abandoned it", path, age.Round(time.Second))})
		}
	}
	return findings
}
