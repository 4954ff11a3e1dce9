package report

import (
	"errors"
	"io/fs"
	"time"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/state"
)

// ErrUnknownPersona is returned when a report operation names a persona that
// does not exist in the registry.
var ErrUnknownPersona = errors.New("report: persona not in registry")

// DateFormat is the calendar-day key used in artifact paths and bodies.
const DateFormat = "2006-01-02"

// Coordinator decides when reporting is due and materializes the daily
// artifacts for the active roster.
type Coordinator struct {
	cfg       *config.Config
	states    *state.Store
	artifacts *Store
	now       func() time.Time
}

// Option customizes a Coordinator during construction.
type Option func(*Coordinator)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = clock
	}
}

// NewCoordinator builds a reporting coordinator over the registry and the
// shared runtime record.
func NewCoordinator(cfg *config.Config, states *state.Store, opts ...Option) *Coordinator {
	coordinator := &Coordinator{
		cfg:       cfg,
		states:    states,
		artifacts: NewStore(cfg.ReportsDir()),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(coordinator)
	}
	return coordinator
}

// Artifacts exposes the keyed artifact store.
func (c *Coordinator) Artifacts() *Store {
	return c.artifacts
}

// Today returns the current calendar-day key.
func (c *Coordinator) Today() string {
	return c.now().Format(DateFormat)
}

// Evaluate reports whether report generation is due for the given record.
func (c *Coordinator) Evaluate(rt state.Runtime) bool {
	return state.Due(c.now().Unix(), rt.LastReport, c.cfg.ReportInterval())
}

// Result describes one Generate run.
type Result struct {
	// Created lists artifacts materialized by this run.
	Created []Artifact
	// Existing lists artifacts that already covered today and were left
	// untouched.
	Existing []Artifact
	// Runtime is the committed record with the report timestamp advanced.
	Runtime state.Runtime
}

// Generate ensures every active persona has a report artifact for today and
// advances the last-report timestamp. Re-running on the same day is a no-op
// on artifact creation. Generate never re-checks due-ness: callers decide
// with Evaluate first.
func (c *Coordinator) Generate() (Result, error) {
	rt, err := c.states.Load()
	if err != nil {
		return Result{}, err
	}

	date := c.Today()
	var result Result
	for _, persona := range rt.ActivePersonas {
		if c.artifacts.Exists(persona, date) {
			existing, err := c.artifacts.Load(persona, date)
			if err != nil {
				return Result{}, err
			}
			result.Existing = append(result.Existing, existing)
			continue
		}
		artifact := NewArtifact(persona, date)
		if err := c.artifacts.Save(artifact); err != nil {
			return Result{}, err
		}
		result.Created = append(result.Created, artifact)
	}

	now := c.now().Unix()
	committed, err := c.states.Commit(func(rt state.Runtime) state.Runtime {
		rt.LastReport = now
		return rt
	})
	if err != nil {
		return Result{}, err
	}
	result.Runtime = committed
	return result, nil
}

// UpdateField replaces one section of a persona's report for the given date
// (empty date means today) with a single bullet holding content. The
// artifact is created from the template when missing.
func (c *Coordinator) UpdateField(personaName, date, rawField, content string) (Artifact, error) {
	persona, ok := c.cfg.PersonaByName(personaName)
	if !ok {
		return Artifact{}, ErrUnknownPersona
	}
	field, err := ParseField(rawField)
	if err != nil {
		return Artifact{}, err
	}
	if date == "" {
		date = c.Today()
	}

	artifact, err := c.artifacts.Load(persona.Name, date)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, err
		}
		artifact = NewArtifact(persona.Name, date)
	}
	artifact.SetSection(field, content)
	if err := c.artifacts.Save(artifact); err != nil {
		return Artifact{}, err
	}
	return artifact, nil
}
