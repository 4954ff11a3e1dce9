package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store maps (persona, date) keys to report documents under the reports
// root. Existence and creation are single path lookups, never directory
// scans.
type Store struct {
	root string
}

// NewStore builds an artifact store rooted at dir.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the document location for a persona and date.
func (s *Store) Path(persona, date string) string {
	return filepath.Join(s.root, persona, fmt.Sprintf("report_%s.md", date))
}

// Exists reports whether the artifact for the key is on disk.
func (s *Store) Exists(persona, date string) bool {
	_, err := os.Stat(s.Path(persona, date))
	return err == nil
}

// Load reads and parses the artifact for the key.
func (s *Store) Load(persona, date string) (Artifact, error) {
	path := s.Path(persona, date)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, err
		}
		return Artifact{}, fmt.Errorf("report: read %s: %w", path, err)
	}
	return parseArtifact(persona, date, data), nil
}

// Save writes the artifact document, creating the persona directory on demand.
func (s *Store) Save(artifact Artifact) error {
	path := s.Path(artifact.Persona, artifact.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: ensure %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, artifact.Render(), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
