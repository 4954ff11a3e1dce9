// Package notify maintains the notification trail: human-readable alerts
// raised when rotation or reporting comes due, or when an active persona has
// not produced today's report. Alerts append to
// .cadre/logs/notifications.log so they survive the invocation that raised
// them.
package notify

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Kind labels a notification entry.
type Kind string

const (
	KindRotationDue Kind = "ROTATION-DUE"
	KindReportDue   Kind = "REPORT-DUE"
	KindStaleReport Kind = "STALE-REPORT"
	KindInfo        Kind = "INFO"
)

// Log persists notifications to a simple text file.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Option customizes a Log during construction.
type Option func(*Log)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) {
		l.now = clock
	}
}

// New creates a notification log that writes to the provided path.
func New(path string, opts ...Option) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	log := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(log)
	}
	return log, nil
}

// Path returns the file backing this log.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single notification entry.
func (l *Log) Append(kind Kind, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-12s %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(kind),
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// RotationDue records that the roster rotation interval has elapsed.
func (l *Log) RotationDue(elapsed time.Duration) {
	l.Append(KindRotationDue, fmt.Sprintf("rotation interval elapsed %s ago", elapsed.Round(time.Second)))
}

// ReportDue records that report generation is due for the given personas.
func (l *Log) ReportDue(personas []string) {
	if len(personas) == 0 {
		l.Append(KindReportDue, "reports due but no personas are active")
		return
	}
	l.Append(KindReportDue, "reports due for "+strings.Join(personas, ", "))
}

// StaleReport records that a persona has no report artifact for today.
func (l *Log) StaleReport(persona, date string) {
	l.Append(KindStaleReport, fmt.Sprintf("%s has no report for %s", persona, date))
}

// Tail returns up to maxLines of the most recent notifications.
func (l *Log) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}
