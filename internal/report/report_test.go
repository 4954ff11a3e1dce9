package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pmduarte/cadre/internal/config"
	"github.com/pmduarte/cadre/internal/state"
)

func testConfig(t *testing.T, personas ...config.Persona) *config.Config {
	t.Helper()
	projectDir := t.TempDir()
	return &config.Config{
		ProjectDir:      projectDir,
		CadreProjectDir: filepath.Join(projectDir, config.CadreDir),
		Settings: config.Settings{
			Version:          1,
			Personas:         personas,
			RotationInterval: 900,
			ReportInterval:   1800,
		},
	}
}

func testCoordinator(t *testing.T, cfg *config.Config, nowUnix int64) (*Coordinator, *state.Store) {
	t.Helper()
	states := state.NewStore(cfg.StatePath())
	coordinator := NewCoordinator(cfg, states, WithClock(func() time.Time {
		return time.Unix(nowUnix, 0).UTC()
	}))
	return coordinator, states
}

func TestEvaluateUsesReportInterval(t *testing.T) {
	cfg := testConfig(t, config.Persona{Name: "Alice", Priority: config.PriorityP0})
	coordinator, _ := testCoordinator(t, cfg, 5000)

	if !coordinator.Evaluate(state.Runtime{LastReport: 0}) {
		t.Fatalf("expected due when never reported")
	}
	if coordinator.Evaluate(state.Runtime{LastReport: 4000}) {
		t.Fatalf("expected not due 1000s after last report")
	}
	if !coordinator.Evaluate(state.Runtime{LastReport: 3200}) {
		t.Fatalf("expected due exactly at the interval boundary")
	}
}

func TestGenerateCreatesArtifactsForActiveRoster(t *testing.T) {
	cfg := testConfig(t,
		config.Persona{Name: "Alice", Priority: config.PriorityP0},
		config.Persona{Name: "Bruno", Priority: config.PriorityP1},
	)
	coordinator, states := testCoordinator(t, cfg, 7200)
	if _, err := states.Commit(func(rt state.Runtime) state.Runtime {
		rt.ActivePersonas = []string{"Alice", "Bruno"}
		return rt
	}); err != nil {
		t.Fatal(err)
	}

	result, err := coordinator.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Created) != 2 || len(result.Existing) != 0 {
		t.Fatalf("expected 2 created artifacts, got %+v", result)
	}
	if result.Runtime.LastReport != 7200 {
		t.Fatalf("expected last report advance, got %d", result.Runtime.LastReport)
	}

	date := coordinator.Today()
	for _, persona := range []string{"Alice", "Bruno"} {
		data, err := os.ReadFile(coordinator.Artifacts().Path(persona, date))
		if err != nil {
			t.Fatalf("expected artifact for %s: %v", persona, err)
		}
		body := string(data)
		if !strings.Contains(body, "# Progress Report - "+persona) {
			t.Fatalf("artifact missing title: %q", body)
		}
		for _, title := range []string{"## Recent Progress", "## Next Steps", "## Blockers", "## Notes"} {
			if !strings.Contains(body, title) {
				t.Fatalf("artifact missing section %q", title)
			}
		}
	}
}

func TestGenerateIsIdempotentForTheSameDay(t *testing.T) {
	cfg := testConfig(t, config.Persona{Name: "Alice", Priority: config.PriorityP0})
	coordinator, states := testCoordinator(t, cfg, 7200)
	if _, err := states.Commit(func(rt state.Runtime) state.Runtime {
		rt.ActivePersonas = []string{"Alice"}
		return rt
	}); err != nil {
		t.Fatal(err)
	}

	first, err := coordinator.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Created) != 1 {
		t.Fatalf("expected one created artifact, got %+v", first)
	}

	// A manual edit must survive the second run untouched.
	if _, err := coordinator.UpdateField("Alice", "", "progress", "Shipped the auth API."); err != nil {
		t.Fatal(err)
	}

	second, err := coordinator.Generate()
	if err != nil {
		t.Fatalf("second Generate returned error: %v", err)
	}
	if len(second.Created) != 0 || len(second.Existing) != 1 {
		t.Fatalf("expected no-op creation on second run, got %+v", second)
	}
	bullets := second.Existing[0].Sections[FieldProgress]
	if len(bullets) != 1 || bullets[0] != "Shipped the auth API." {
		t.Fatalf("second run clobbered the edited section: %v", bullets)
	}
}

func TestGenerateEmptyRosterOnlyAdvancesTimestamp(t *testing.T) {
	cfg := testConfig(t, config.Persona{Name: "Alice", Priority: config.PriorityP0})
	coordinator, _ := testCoordinator(t, cfg, 9000)

	result, err := coordinator.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Created) != 0 || len(result.Existing) != 0 {
		t.Fatalf("expected no artifacts, got %+v", result)
	}
	if result.Runtime.LastReport != 9000 {
		t.Fatalf("expected timestamp advance, got %d", result.Runtime.LastReport)
	}
}

func TestUpdateFieldLastWriteWins(t *testing.T) {
	cfg := testConfig(t, config.Persona{Name: "Alice", Priority: config.PriorityP0})
	coordinator, _ := testCoordinator(t, cfg, 7200)

	if _, err := coordinator.UpdateField("Alice", "", "blockers", "Waiting on the review."); err != nil {
		t.Fatalf("first update returned error: %v", err)
	}
	artifact, err := coordinator.UpdateField("Alice", "", "blockers", "Review landed, unblocked.")
	if err != nil {
		t.Fatalf("second update returned error: %v", err)
	}

	bullets := artifact.Sections[FieldBlockers]
	if len(bullets) != 1 || bullets[0] != "Review landed, unblocked." {
		t.Fatalf("expected only the latest bullet, got %v", bullets)
	}

	// The other sections keep their template placeholder.
	if got := artifact.Sections[FieldProgress]; len(got) != 1 || got[0] != placeholderBullet {
		t.Fatalf("unrelated section mutated: %v", got)
	}

	// And the document on disk round-trips the same shape.
	reloaded, err := coordinator.Artifacts().Load("Alice", coordinator.Today())
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Sections[FieldBlockers]; len(got) != 1 || got[0] != "Review landed, unblocked." {
		t.Fatalf("disk round-trip lost the update: %v", got)
	}
}

func TestUpdateFieldValidation(t *testing.T) {
	cfg := testConfig(t, config.Persona{Name: "Alice", Priority: config.PriorityP0})
	coordinator, _ := testCoordinator(t, cfg, 7200)

	if _, err := coordinator.UpdateField("Dora", "", "progress", "x"); !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("expected ErrUnknownPersona, got %v", err)
	}
	if _, err := coordinator.UpdateField("Alice", "", "retrospective", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	// Lookup is case-insensitive but artifacts use the canonical name.
	artifact, err := coordinator.UpdateField("alice", "", "notes", "Canonical naming.")
	if err != nil {
		t.Fatal(err)
	}
	if artifact.Persona != "Alice" {
		t.Fatalf("expected canonical persona name, got %q", artifact.Persona)
	}
}

func TestParseFieldAcceptsAllSections(t *testing.T) {
	for _, raw := range []string{"progress", "next_steps", "blockers", "NOTES"} {
		if _, err := ParseField(raw); err != nil {
			t.Fatalf("ParseField(%q) returned error: %v", raw, err)
		}
	}
}
