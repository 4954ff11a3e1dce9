// Package coordinator is the command surface the front ends call into. It
// wires the registry, the runtime record, the rotation engine, the reporting
// coordinator, and the task ledger together, and records what it did in the
// activity log. Methods return structured results or typed failures and
// never print.
package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/logging"
	"github.com/pmduarte/cadre/internal/notify"
	"github.com/pmduarte/cadre/internal/report"
	"github.com/pmduarte/cadre/internal/rotation"
	"github.com/pmduarte/cadre/internal/state"
	"github.com/pmduarte/cadre/internal/status"
	"github.com/pmduarte/cadre/internal/task"
)

// Coordinator exposes every operation of the core against one project.
type Coordinator struct {
	cfg       *config.Config
	states    *state.Store
	rotations *rotation.Engine
	reports   *report.Coordinator
	ledger    *task.Ledger

	log           *logging.Logger
	notifications *notify.Log
	now           func() time.Time
}

// Option customizes a Coordinator during construction.
type Option func(*settings)

type settings struct {
	clock         func() time.Time
	intn          func(int) int
	log           *logging.Logger
	notifications *notify.Log
	lockWait      time.Duration
}

// WithClock overrides the wall clock used by every component.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		s.clock = clock
	}
}

// WithRand overrides the rotation random source.
func WithRand(intn func(int) int) Option {
	return func(s *settings) {
		s.intn = intn
	}
}

// WithLogger attaches an activity log.
func WithLogger(log *logging.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithNotifications attaches the notification log.
func WithNotifications(n *notify.Log) Option {
	return func(s *settings) {
		s.notifications = n
	}
}

// WithLockWait overrides the store lock wait budget.
func WithLockWait(wait time.Duration) Option {
	return func(s *settings) {
		s.lockWait = wait
	}
}

// New builds a coordinator for an already-loaded registry.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	s := settings{
		clock:    time.Now,
		lockWait: state.DefaultLockWait,
	}
	for _, opt := range opts {
		opt(&s)
	}

	states := state.NewStore(cfg.StatePath(), state.WithLockWait(s.lockWait))
	rotationOpts := []rotation.Option{rotation.WithClock(s.clock)}
	if s.intn != nil {
		rotationOpts = append(rotationOpts, rotation.WithRand(s.intn))
	}

	return &Coordinator{
		cfg:       cfg,
		states:    states,
		rotations: rotation.New(cfg, states, rotationOpts...),
		reports:   report.NewCoordinator(cfg, states, report.WithClock(s.clock)),
		ledger: task.NewLedger(cfg,
			task.WithClock(s.clock),
			task.WithLockWait(s.lockWait),
		),
		log:           s.log,
		notifications: s.notifications,
		now:           s.clock,
	}
}

// Runtime returns the current runtime record.
func (c *Coordinator) Runtime() (state.Runtime, error) {
	return c.states.Load()
}

// CheckRotationDue reports whether the rotation interval has elapsed.
func (c *Coordinator) CheckRotationDue() (bool, error) {
	rt, err := c.states.Load()
	if err != nil {
		return false, err
	}
	return c.rotations.Evaluate(rt), nil
}

// Rotate recomputes and commits the active roster. With force unset it
// fails with rotation.ErrNotDue when the interval has not elapsed.
func (c *Coordinator) Rotate(force bool) (state.Runtime, error) {
	rt, err := c.rotations.Rotate(force)
	if err != nil {
		return rt, err
	}
	c.logf("rotation committed: roster=[%s] run=%s", strings.Join(rt.ActivePersonas, ", "), rt.RotationID)
	return rt, nil
}

// CheckReportDue reports whether the report interval has elapsed.
func (c *Coordinator) CheckReportDue() (bool, error) {
	rt, err := c.states.Load()
	if err != nil {
		return false, err
	}
	return c.reports.Evaluate(rt), nil
}

// GenerateReports ensures today's artifacts exist for the active roster and
// advances the report timestamp. Due-ness is the caller's concern.
func (c *Coordinator) GenerateReports() (report.Result, error) {
	result, err := c.reports.Generate()
	if err != nil {
		return report.Result{}, err
	}
	c.logf("reports generated: created=%d existing=%d", len(result.Created), len(result.Existing))
	return result, nil
}

// UpdateReportField replaces one section of a persona's report for today.
func (c *Coordinator) UpdateReportField(persona, field, content string) (report.Artifact, error) {
	artifact, err := c.reports.UpdateField(persona, "", field, content)
	if err != nil {
		return report.Artifact{}, err
	}
	c.logf("report updated: persona=%s field=%s", artifact.Persona, field)
	return artifact, nil
}

// AddTask appends a task to the ledger.
func (c *Coordinator) AddTask(description, priority, assignee string) (task.Task, error) {
	added, err := c.ledger.Add(description, priority, assignee)
	if err != nil {
		return task.Task{}, err
	}
	c.logf("task %d added: priority=%s assignee=%s", added.ID, added.Priority, added.Assignee)
	return added, nil
}

// ListTasks returns ledger entries matching the filter.
func (c *Coordinator) ListTasks(filter task.Filter) ([]task.Task, error) {
	return c.ledger.List(filter)
}

// UpdateTaskStatus transitions a task's lifecycle state.
func (c *Coordinator) UpdateTaskStatus(id int, rawStatus string) (task.Task, error) {
	parsed, err := task.ParseStatus(rawStatus)
	if err != nil {
		return task.Task{}, err
	}
	updated, err := c.ledger.Update(id, parsed)
	if err != nil {
		return task.Task{}, err
	}
	c.logf("task %d updated: status=%s", updated.ID, updated.Status)
	return updated, nil
}

// EditTask applies a partial field correction to a task.
func (c *Coordinator) EditTask(id int, edit task.Edit) (task.Task, error) {
	edited, err := c.ledger.EditTask(id, edit)
	if err != nil {
		return task.Task{}, err
	}
	c.logf("task %d edited", edited.ID)
	return edited, nil
}

// Status composes the read-only project summary.
func (c *Coordinator) Status() (status.Snapshot, error) {
	rt, err := c.states.Load()
	if err != nil {
		return status.Snapshot{}, err
	}
	tasks, err := c.ledger.All()
	if err != nil {
		return status.Snapshot{}, err
	}
	return status.Compute(c.cfg, rt, tasks, c.now()), nil
}

// ResetState clears the runtime record. Only an explicit operator action
// reaches this.
func (c *Coordinator) ResetState() error {
	if err := c.states.Reset(); err != nil {
		return err
	}
	c.logf("runtime state reset by operator")
	return nil
}

// Notify inspects the record and raises pending alerts to the notification
// log: rotation due, reports due for the active roster, and active personas
// missing today's artifact. It returns the raised messages.
func (c *Coordinator) Notify() ([]string, error) {
	rt, err := c.states.Load()
	if err != nil {
		return nil, err
	}
	now := c.now().Unix()
	var alerts []string

	if state.Due(now, rt.LastRotation, c.cfg.RotationInterval()) {
		elapsed := time.Duration(now-rt.LastRotation) * time.Second
		if rt.LastRotation == 0 {
			alerts = append(alerts, "rotation has never run")
			c.notifications.Append(notify.KindRotationDue, "rotation has never run")
		} else {
			alerts = append(alerts, fmt.Sprintf("rotation due: interval elapsed %s ago", elapsed.Round(time.Second)))
			c.notifications.RotationDue(elapsed)
		}
	}
	if state.Due(now, rt.LastReport, c.cfg.ReportInterval()) {
		alerts = append(alerts, "reports due for active roster")
		c.notifications.ReportDue(rt.ActivePersonas)
	}

	today := c.reports.Today()
	for _, persona := range rt.ActivePersonas {
		if !c.reports.Artifacts().Exists(persona, today) {
			alerts = append(alerts, fmt.Sprintf("%s has no report for %s", persona, today))
			c.notifications.StaleReport(persona, today)
		}
	}
	return alerts, nil
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.log == nil {
		return
	}
	c.log.Printf(format, args...)
}
