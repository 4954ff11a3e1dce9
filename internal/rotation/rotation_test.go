package rotation

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/state"
)

func registry(personas ...config.Persona) *config.Config {
	return &config.Config{
		Settings: config.Settings{
			Version:          1,
			Personas:         personas,
			RotationInterval: 900,
			ReportInterval:   1800,
		},
	}
}

func persona(name, priority string) config.Persona {
	return config.Persona{Name: name, Priority: priority}
}

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func newEngine(t *testing.T, cfg *config.Config, nowUnix int64, seed int64) (*Engine, *state.Store) {
	t.Helper()
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	engine := New(cfg, store,
		WithClock(fixedClock(nowUnix)),
		WithRand(rand.New(rand.NewSource(seed)).Intn),
	)
	return engine, store
}

func TestEvaluateBoundaries(t *testing.T) {
	cfg := registry(persona("Alice", config.PriorityP0))
	cases := []struct {
		name         string
		now          int64
		lastRotation int64
		want         bool
	}{
		{"never rotated", 50, 0, true},
		{"just rotated", 1000, 1000, false},
		{"one short of interval", 1899, 1000, false},
		{"exactly the interval", 1900, 1000, true},
		{"well past the interval", 5000, 1000, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _ := newEngine(t, cfg, tc.now, 1)
			got := engine.Evaluate(state.Runtime{LastRotation: tc.lastRotation})
			if got != tc.want {
				t.Fatalf("Evaluate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRotateNotDueLeavesRecordUntouched(t *testing.T) {
	cfg := registry(persona("Alice", config.PriorityP0))
	engine, store := newEngine(t, cfg, 1500, 1)
	if _, err := store.Commit(func(rt state.Runtime) state.Runtime {
		rt.ActivePersonas = []string{"Alice"}
		rt.LastRotation = 1000
		return rt
	}); err != nil {
		t.Fatal(err)
	}

	_, err := engine.Rotate(false)
	if !errors.Is(err, ErrNotDue) {
		t.Fatalf("expected ErrNotDue, got %v", err)
	}
	rt, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if rt.LastRotation != 1000 || len(rt.ActivePersonas) != 1 {
		t.Fatalf("record mutated by not-due rotation: %+v", rt)
	}
}

func TestRotateSelectionProperties(t *testing.T) {
	cfg := registry(
		persona("Alice", config.PriorityP0),
		persona("Amanda", config.PriorityP0),
		persona("Bruno", config.PriorityP1),
		persona("Beatriz", config.PriorityP1),
		persona("Carla", config.PriorityP2),
	)
	for seed := int64(0); seed < 20; seed++ {
		engine, _ := newEngine(t, cfg, 10_000, seed)
		rt, err := engine.Rotate(false)
		if err != nil {
			t.Fatalf("seed %d: Rotate returned error: %v", seed, err)
		}
		if len(rt.ActivePersonas) != RosterSize {
			t.Fatalf("seed %d: expected full roster, got %v", seed, rt.ActivePersonas)
		}
		seen := map[string]bool{}
		hasP0 := false
		for _, name := range rt.ActivePersonas {
			if seen[name] {
				t.Fatalf("seed %d: duplicate persona %s", seed, name)
			}
			seen[name] = true
			if !cfg.HasPersona(name) {
				t.Fatalf("seed %d: persona %s not in registry", seed, name)
			}
			if name == "Alice" || name == "Amanda" {
				hasP0 = true
			}
		}
		if !hasP0 {
			t.Fatalf("seed %d: no P0 persona selected: %v", seed, rt.ActivePersonas)
		}
		if rt.LastRotation != 10_000 {
			t.Fatalf("seed %d: LastRotation not advanced: %d", seed, rt.LastRotation)
		}
		if rt.RotationID == "" {
			t.Fatalf("seed %d: missing rotation id", seed)
		}
	}
}

func TestRotateIsDeterministicWithSeededRand(t *testing.T) {
	cfg := registry(
		persona("Alice", config.PriorityP0),
		persona("Amanda", config.PriorityP0),
		persona("Bruno", config.PriorityP1),
		persona("Carla", config.PriorityP2),
	)
	first, _ := newEngine(t, cfg, 10_000, 42)
	second, _ := newEngine(t, cfg, 10_000, 42)

	a, err := first.Rotate(false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.Rotate(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.ActivePersonas) != len(b.ActivePersonas) {
		t.Fatalf("seeded runs diverged: %v vs %v", a.ActivePersonas, b.ActivePersonas)
	}
	for i := range a.ActivePersonas {
		if a.ActivePersonas[i] != b.ActivePersonas[i] {
			t.Fatalf("seeded runs diverged: %v vs %v", a.ActivePersonas, b.ActivePersonas)
		}
	}
}

func TestRotatePrefersHigherTiers(t *testing.T) {
	// One persona per tier: the roster must be exactly all three.
	cfg := registry(
		persona("Alice", config.PriorityP0),
		persona("Bruno", config.PriorityP1),
		persona("Carla", config.PriorityP2),
	)
	engine, _ := newEngine(t, cfg, 1000, 7)
	rt, err := engine.Rotate(false)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"Alice": true, "Bruno": true, "Carla": true}
	if len(rt.ActivePersonas) != 3 {
		t.Fatalf("expected all three personas, got %v", rt.ActivePersonas)
	}
	for _, name := range rt.ActivePersonas {
		if !want[name] {
			t.Fatalf("unexpected persona %s", name)
		}
	}
}

func TestRotateSmallRegistry(t *testing.T) {
	cfg := registry(persona("Bruno", config.PriorityP1))
	engine, _ := newEngine(t, cfg, 1000, 3)
	rt, err := engine.Rotate(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.ActivePersonas) != 1 || rt.ActivePersonas[0] != "Bruno" {
		t.Fatalf("expected single-member roster, got %v", rt.ActivePersonas)
	}
}

func TestRotateEmptyRegistryStillAdvancesTimestamp(t *testing.T) {
	cfg := registry()
	engine, store := newEngine(t, cfg, 2000, 3)
	rt, err := engine.Rotate(false)
	if err != nil {
		t.Fatalf("empty-registry rotation must succeed, got %v", err)
	}
	if len(rt.ActivePersonas) != 0 {
		t.Fatalf("expected empty roster, got %v", rt.ActivePersonas)
	}
	if rt.LastRotation != 2000 {
		t.Fatalf("expected timestamp advance, got %d", rt.LastRotation)
	}
	reloaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.LastRotation != 2000 {
		t.Fatalf("timestamp not persisted: %+v", reloaded)
	}
}

func TestRotateForceOverridesNotDue(t *testing.T) {
	cfg := registry(persona("Alice", config.PriorityP0))
	engine, store := newEngine(t, cfg, 1100, 1)
	if _, err := store.Commit(func(rt state.Runtime) state.Runtime {
		rt.LastRotation = 1000
		return rt
	}); err != nil {
		t.Fatal(err)
	}

	rt, err := engine.Rotate(true)
	if err != nil {
		t.Fatalf("forced rotation returned error: %v", err)
	}
	if rt.LastRotation != 1100 {
		t.Fatalf("forced rotation did not advance timestamp: %+v", rt)
	}
}

func TestSecondRotationSeesFreshTimestamp(t *testing.T) {
	cfg := registry(persona("Alice", config.PriorityP0))
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	engine := New(cfg, store,
		WithClock(fixedClock(1000)),
		WithRand(rand.New(rand.NewSource(1)).Intn),
	)

	if _, err := engine.Rotate(false); err != nil {
		t.Fatalf("first rotation returned error: %v", err)
	}
	// Same instant: the second rotation must observe the committed
	// timestamp and decline rather than fire off its stale read.
	if _, err := engine.Rotate(false); !errors.Is(err, ErrNotDue) {
		t.Fatalf("expected ErrNotDue on second rotation, got %v", err)
	}
}
