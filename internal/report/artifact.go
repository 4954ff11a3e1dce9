// Package report produces the per-persona daily progress reports and tracks
// when report generation last ran. Each artifact is keyed by (persona, date)
// and holds four fixed sections; updating a section replaces its body
// wholesale, so the visible document always shows the latest entry only.
package report

import (
	"errors"
	"fmt"
	"strings"
)

// Field identifies one of the four report sections.
type Field string

const (
	FieldProgress  Field = "progress"
	FieldNextSteps Field = "next_steps"
	FieldBlockers  Field = "blockers"
	FieldNotes     Field = "notes"
)

// Fields lists the sections in their stable document order.
var Fields = []Field{FieldProgress, FieldNextSteps, FieldBlockers, FieldNotes}

// ErrUnknownField is returned when a field name is not one of the four sections.
var ErrUnknownField = errors.New("report: unknown field")

var sectionTitles = map[Field]string{
	FieldProgress:  "Recent Progress",
	FieldNextSteps: "Next Steps",
	FieldBlockers:  "Blockers",
	FieldNotes:     "Notes",
}

const placeholderBullet = "Not yet updated."

// ParseField validates a user-supplied field name.
func ParseField(raw string) (Field, error) {
	field := Field(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := sectionTitles[field]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, raw)
	}
	return field, nil
}

// Artifact is one persona's report for one calendar day.
type Artifact struct {
	Persona  string
	Date     string // YYYY-MM-DD
	Sections map[Field][]string
}

// NewArtifact builds the template artifact for a persona and date.
func NewArtifact(persona, date string) Artifact {
	sections := make(map[Field][]string, len(Fields))
	for _, field := range Fields {
		sections[field] = []string{placeholderBullet}
	}
	return Artifact{Persona: persona, Date: date, Sections: sections}
}

// SetSection replaces the entire body of a section with a single bullet.
func (a *Artifact) SetSection(field Field, content string) {
	a.Sections[field] = []string{strings.TrimSpace(content)}
}

// Render produces the markdown document.
func (a Artifact) Render() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Progress Report - %s\n", a.Persona)
	fmt.Fprintf(&b, "**Date:** %s\n", a.Date)
	for _, field := range Fields {
		fmt.Fprintf(&b, "\n## %s\n", sectionTitles[field])
		bullets := a.Sections[field]
		if len(bullets) == 0 {
			bullets = []string{placeholderBullet}
		}
		for _, bullet := range bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}
	return []byte(b.String())
}

// parseArtifact reconstructs an artifact from its markdown document.
// Unknown sections are ignored; missing sections fall back to the template
// placeholder so SetSection always has a slot to replace.
func parseArtifact(persona, date string, data []byte) Artifact {
	artifact := NewArtifact(persona, date)
	titles := make(map[string]Field, len(sectionTitles))
	for field, title := range sectionTitles {
		titles[title] = field
	}

	var current Field
	fresh := map[Field]bool{}
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "## "):
			title := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			current = titles[title]
		case strings.HasPrefix(line, "- ") && current != "":
			bullet := strings.TrimSpace(strings.TrimPrefix(line, "- "))
			if !fresh[current] {
				artifact.Sections[current] = nil
				fresh[current] = true
			}
			artifact.Sections[current] = append(artifact.Sections[current], bullet)
		}
	}
	return artifact
}
