// Package rotation decides when the active roster must be recomputed and
// performs the priority-weighted selection of the next roster. Selection
// draws uniformly at random inside each tier, so the random source is an
// injected dependency: tests seed it, production uses wall-clock entropy.
package rotation

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/state"
)

// ErrNotDue is returned by Rotate when the rotation interval has not elapsed
// and the caller did not force the rotation.
var ErrNotDue = errors.New("rotation: interval has not elapsed")

// RosterSize caps how many personas are active at once.
const RosterSize = 3

// Engine computes roster rotations against the shared runtime record.
type Engine struct {
	cfg   *config.Config
	store *state.Store
	now   func() time.Time
	intn  func(int) int
}

// Option customizes an Engine during construction.
type Option func(*Engine)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.now = clock
	}
}

// WithRand overrides the random source used for tier draws. The function
// must return a uniform value in [0, n).
func WithRand(intn func(int) int) Option {
	return func(e *Engine) {
		e.intn = intn
	}
}

// New builds a rotation engine over the persona registry and state store.
func New(cfg *config.Config, store *state.Store, opts ...Option) *Engine {
	engine := &Engine{
		cfg:   cfg,
		store: store,
		now:   time.Now,
		intn:  rand.New(rand.NewSource(time.Now().UnixNano())).Intn,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Evaluate reports whether rotation is due for the given record.
func (e *Engine) Evaluate(rt state.Runtime) bool {
	return state.Due(e.now().Unix(), rt.LastRotation, e.cfg.RotationInterval())
}

// Rotate recomputes the active roster and commits it together with the
// rotation timestamp. Unless force is set, a rotation that is not due fails
// with ErrNotDue and leaves the record untouched. Due-ness is re-checked
// against the freshly read record inside the commit, so two racing rotations
// cannot both fire off one stale timestamp.
func (e *Engine) Rotate(force bool, opts ...state.CommitOption) (state.Runtime, error) {
	now := e.now().Unix()
	interval := e.cfg.RotationInterval()

	current, err := e.store.Load()
	if err != nil {
		return state.Runtime{}, err
	}
	if !force && !state.Due(now, current.LastRotation, interval) {
		return current, ErrNotDue
	}

	skipped := false
	committed, err := e.store.Commit(func(rt state.Runtime) state.Runtime {
		if !force && !state.Due(now, rt.LastRotation, interval) {
			skipped = true
			return rt
		}
		skipped = false
		rt.ActivePersonas = e.selectRoster()
		rt.LastRotation = now
		rt.RotationID = uuid.NewString()
		return rt
	}, opts...)
	if err != nil {
		return state.Runtime{}, err
	}
	if skipped {
		return committed, ErrNotDue
	}
	return committed, nil
}

// selectRoster picks up to RosterSize personas, weighted by priority tier.
// One P0 persona is always drawn first when any exists; the remaining slots
// fill from the highest tier that still has unselected members. An empty
// registry yields an empty roster — rotation still succeeds.
func (e *Engine) selectRoster() []string {
	p0, p1, p2 := e.cfg.ByTier()
	result := make([]string, 0, RosterSize)

	if len(p0) > 0 {
		var picked string
		picked, p0 = e.draw(p0)
		result = append(result, picked)
	}

	for len(result) < RosterSize {
		var picked string
		switch {
		case len(p0) > 0:
			picked, p0 = e.draw(p0)
		case len(p1) > 0:
			picked, p1 = e.draw(p1)
		case len(p2) > 0:
			picked, p2 = e.draw(p2)
		default:
			return result
		}
		result = append(result, picked)
	}
	return result
}

// draw removes and returns a uniformly random element, so repeated draws
// can never select the same persona twice.
func (e *Engine) draw(pool []string) (string, []string) {
	idx := e.intn(len(pool))
	picked := pool[idx]
	return picked, append(pool[:idx], pool[idx+1:]...)
}
