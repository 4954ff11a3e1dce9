// internal/tui/app.go
//
// This is the live status dashboard for Cadre. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/coordinator"
	"github.com/pmduarte/cadre/internal/notify"
	"github.com/pmduarte/cadre/internal/rotation"
	"github.com/pmduarte/cadre/internal/status"
	"github.com/pmduarte/cadre/internal/task"
)

const (
	boardRefreshInterval = 3 * time.Second
	notifyTailLines      = 6
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithCoordinatorOptions forwards options to the coordinator the dashboard drives.
func WithCoordinatorOptions(opts ...coordinator.Option) AppOption {
	return func(a *App) {
		a.coordinatorOpts = append(a.coordinatorOpts, opts...)
	}
}

type refreshMsg struct {
	snapshot status.Snapshot
	tasks    []task.Task
	alerts   []string
	err      error
}

type actionMsg struct {
	status string
}

// taskItem implements list.Item for ledger entries.
type taskItem struct {
	task task.Task
}

func (i taskItem) Title() string {
	return fmt.Sprintf("#%d [%s] %s", i.task.ID, i.task.Priority, i.task.Description)
}

func (i taskItem) Description() string {
	line := fmt.Sprintf("%s · %s", i.task.Status, i.task.Assignee)
	if i.task.Completed != "" {
		line += fmt.Sprintf(" · done %s", i.task.Completed)
	}
	return line
}

func (i taskItem) FilterValue() string { return i.task.Description }

// App is the dashboard model. In bubbletea, this holds ALL your state.
type App struct {
	config          *config.Config
	coordinator     *coordinator.Coordinator
	coordinatorOpts []coordinator.Option
	notifications   *notify.Log

	taskList  list.Model
	snapshot  status.Snapshot
	hasData   bool
	alerts    []string
	statusMsg string
	boardErr  string

	width  int
	height int
}

// NewApp builds the dashboard over an initialized project directory.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}

	taskList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	taskList.Title = "Tasks"
	taskList.SetShowStatusBar(false)
	taskList.SetFilteringEnabled(false)

	app := &App{
		config:   cfg,
		taskList: taskList,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	notifications, err := notify.New(filepath.Join(cfg.LogsDir(), "notifications.log"))
	if err != nil {
		return nil, err
	}
	app.notifications = notifications
	coordOpts := append([]coordinator.Option{coordinator.WithNotifications(app.notifications)}, app.coordinatorOpts...)
	app.coordinator = coordinator.New(cfg, coordOpts...)
	return app, nil
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.fetchRefresh()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.taskList.SetSize(max(20, msg.Width/2-6), max(8, msg.Height-14))
		return a, nil

	case refreshMsg:
		if msg.err != nil {
			a.boardErr = msg.err.Error()
		} else {
			a.boardErr = ""
			a.snapshot = msg.snapshot
			a.hasData = true
			a.alerts = msg.alerts
			a.setTaskItems(msg.tasks)
		}
		return a, a.scheduleRefresh()

	case actionMsg:
		a.statusMsg = msg.status
		return a, a.fetchRefresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "r":
			return a, a.rotateCmd(false)
		case "R":
			return a, a.rotateCmd(true)
		case "g":
			return a, a.generateReportsCmd()
		case "s":
			a.statusMsg = "Refreshing..."
			return a, a.fetchRefresh()
		}
	}

	var cmd tea.Cmd
	a.taskList, cmd = a.taskList.Update(msg)
	return a, cmd
}

func (a *App) setTaskItems(tasks []task.Task) {
	items := make([]list.Item, len(tasks))
	for i := range tasks {
		items[i] = taskItem{task: tasks[i]}
	}
	a.taskList.SetItems(items)
}

func (a *App) fetchRefresh() tea.Cmd {
	return func() tea.Msg {
		return a.buildRefresh()
	}
}

func (a *App) scheduleRefresh() tea.Cmd {
	return tea.Tick(boardRefreshInterval, func(time.Time) tea.Msg {
		return a.buildRefresh()
	})
}

func (a *App) buildRefresh() refreshMsg {
	snap, err := a.coordinator.Status()
	if err != nil {
		return refreshMsg{err: err}
	}
	tasks, err := a.coordinator.ListTasks(task.Filter{})
	if err != nil {
		return refreshMsg{err: err}
	}
	return refreshMsg{
		snapshot: snap,
		tasks:    tasks,
		alerts:   a.notifications.Tail(notifyTailLines),
	}
}

func (a *App) rotateCmd(force bool) tea.Cmd {
	return func() tea.Msg {
		rt, err := a.coordinator.Rotate(force)
		switch {
		case errors.Is(err, rotation.ErrNotDue):
			return actionMsg{status: "Rotation not due yet (press R to force)"}
		case err != nil:
			return actionMsg{status: fmt.Sprintf("Rotation failed: %v", err)}
		case len(rt.ActivePersonas) == 0:
			return actionMsg{status: "Rotated: no personas registered"}
		}
		return actionMsg{status: "Rotated: " + strings.Join(rt.ActivePersonas, ", ")}
	}
}

func (a *App) generateReportsCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := a.coordinator.GenerateReports()
		if err != nil {
			return actionMsg{status: fmt.Sprintf("Report generation failed: %v", err)}
		}
		return actionMsg{status: fmt.Sprintf("Reports: %d created, %d already present", len(res.Created), len(res.Existing))}
	}
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	leftWidth := width/2 - 2
	rightWidth := width - leftWidth - 4
	if leftWidth < 30 {
		leftWidth = width - 4
		rightWidth = 0
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ CADRE")

	leftBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, leftWidth)).
		Render(a.renderRotationPanel(leftWidth - 4))

	var body string
	if rightWidth > 0 {
		rightBox := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1).
			Width(max(20, rightWidth)).
			Render(a.taskList.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	} else {
		body = leftBox
	}

	sections := []string{header, body}
	if panel := a.renderAlertsPanel(); panel != "" {
		sections = append(sections, panel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.footerLine())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderRotationPanel(width int) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("Rotation")
	if !a.hasData {
		note := "Loading..."
		if a.boardErr != "" {
			note = "⚠ " + a.boardErr
		}
		return lipgloss.JoinVertical(lipgloss.Left, title, note)
	}

	snap := a.snapshot
	roster := "none"
	if len(snap.ActivePersonas) > 0 {
		roster = strings.Join(snap.ActivePersonas, ", ")
	}
	lines := []string{
		fmt.Sprintf("Active: %s", roster),
		fmt.Sprintf("Rotation due: %s", dueLabel(snap.RotationDue, snap.LastRotation, snap.Now)),
		fmt.Sprintf("Reports due: %s", dueLabel(snap.ReportDue, snap.LastReport, snap.Now)),
		"",
		fmt.Sprintf("Tasks: %d total · %d pending · %d in progress · %d done",
			snap.TotalTasks,
			snap.ByStatus[task.StatusPending],
			snap.ByStatus[task.StatusInProgress],
			snap.ByStatus[task.StatusCompleted]),
		fmt.Sprintf("P0 pending: %d · completion %.0f%%", snap.PendingP0, snap.CompletionPercent),
	}
	if a.boardErr != "" {
		lines = append(lines, "", "⚠ "+a.boardErr)
	}
	body := lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (a *App) renderAlertsPanel() string {
	if len(a.alerts) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("NOTIFICATIONS")
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(a.alerts, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) footerLine() string {
	hints := "r → rotate    R → force rotate    g → generate reports    s → refresh    q → quit"
	if a.statusMsg == "" {
		return hints
	}
	return a.statusMsg + "\n" + hints
}

func dueLabel(due bool, last, now int64) string {
	if last == 0 {
		return "yes (never run)"
	}
	elapsed := now - last
	if due {
		return fmt.Sprintf("yes (%ds elapsed)", elapsed)
	}
	return fmt.Sprintf("no (%ds elapsed)", elapsed)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
