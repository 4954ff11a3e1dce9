package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/coordinator"
)

func newTestApp(t *testing.T, now time.Time) *App {
	t.Helper()
	projectDir := t.TempDir()
	if err := config.InitCadreDir(projectDir); err != nil {
		t.Fatalf("init cadre dir: %v", err)
	}
	app, err := NewApp(projectDir, WithCoordinatorOptions(
		coordinator.WithClock(func() time.Time { return now }),
		coordinator.WithRand(func(n int) int { return 0 }),
	))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

// step feeds one message through Update and returns the resulting model.
func step(t *testing.T, app *App, msg tea.Msg) (*App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	next, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	return next, cmd
}

func TestInitialRefreshPopulatesBoard(t *testing.T) {
	app := newTestApp(t, time.Unix(1000, 0))

	cmd := app.Init()
	if cmd == nil {
		t.Fatal("Init must schedule a refresh")
	}
	app, _ = step(t, app, cmd())

	if !app.hasData {
		t.Fatal("refresh should populate the snapshot")
	}
	if !app.snapshot.RotationDue {
		t.Fatal("fresh project should report rotation due")
	}
	view := app.View()
	for _, want := range []string{"CADRE", "Rotation due: yes (never run)", "Tasks"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRotateKeyRunsRotation(t *testing.T) {
	app := newTestApp(t, time.Unix(1000, 0))
	app, _ = step(t, app, app.Init()())

	app, cmd := step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil {
		t.Fatal("expected a rotate command")
	}
	msg := cmd()
	action, ok := msg.(actionMsg)
	if !ok {
		t.Fatalf("expected actionMsg, got %T", msg)
	}
	if !strings.HasPrefix(action.status, "Rotated: ") {
		t.Fatalf("rotation status = %q", action.status)
	}

	app, cmd = step(t, app, msg)
	app, _ = step(t, app, cmd())
	if len(app.snapshot.ActivePersonas) == 0 {
		t.Fatal("board should show the rotated roster")
	}

	// A second rotation at the same instant is not due.
	_, cmd = step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	action, ok = cmd().(actionMsg)
	if !ok {
		t.Fatal("expected actionMsg for the repeat rotation")
	}
	if !strings.Contains(action.status, "not due") {
		t.Fatalf("repeat rotation status = %q", action.status)
	}
}

func TestGenerateReportsKey(t *testing.T) {
	app := newTestApp(t, time.Unix(1000, 0))
	app, _ = step(t, app, app.Init()())

	app, cmd := step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'R'}})
	app, cmd = step(t, app, cmd())
	app, _ = step(t, app, cmd())

	_, cmd = step(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	action, ok := cmd().(actionMsg)
	if !ok {
		t.Fatal("expected actionMsg after report generation")
	}
	if !strings.Contains(action.status, "created") {
		t.Fatalf("report status = %q", action.status)
	}
}

func TestQuitKeys(t *testing.T) {
	app := newTestApp(t, time.Unix(1000, 0))
	for _, key := range []string{"q", "ctrl+c"} {
		var msg tea.KeyMsg
		if key == "q" {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}
		_, cmd := step(t, app, msg)
		if cmd == nil {
			t.Fatalf("key %s should quit", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("key %s: expected tea.QuitMsg", key)
		}
	}
}
