package notify

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	log, err := New(filepath.Join(t.TempDir(), "logs", "notifications.log"), WithClock(func() time.Time {
		return time.Unix(1_700_000_000, 0).UTC()
	}))
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func TestAppendAndTail(t *testing.T) {
	log := testLog(t)
	log.RotationDue(20 * time.Minute)
	log.ReportDue([]string{"Alice", "Bruno"})
	log.StaleReport("Alice", "2025-03-14")

	lines := log.Tail(10)
	if len(lines) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(lines))
	}
	if !strings.Contains(lines[0], string(KindRotationDue)) {
		t.Fatalf("missing rotation kind: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Alice, Bruno") {
		t.Fatalf("missing persona list: %q", lines[1])
	}
	if !strings.Contains(lines[2], "no report for 2025-03-14") {
		t.Fatalf("missing stale report message: %q", lines[2])
	}
}

func TestTailLimitsToMostRecent(t *testing.T) {
	log := testLog(t)
	for i := 0; i < 5; i++ {
		log.Append(KindInfo, "entry")
	}
	if got := len(log.Tail(2)); got != 2 {
		t.Fatalf("expected 2 lines, got %d", got)
	}
}

func TestTailWithoutFileIsEmpty(t *testing.T) {
	log := testLog(t)
	if lines := log.Tail(5); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}

func TestReportDueWithEmptyRoster(t *testing.T) {
	log := testLog(t)
	log.ReportDue(nil)
	lines := log.Tail(1)
	if len(lines) != 1 || !strings.Contains(lines[0], "no personas are active") {
		t.Fatalf("unexpected entry: %v", lines)
	}
}
