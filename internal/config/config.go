// internal/config/config.go
//
// This package owns the persona registry and the .cadre directory structure.
// Every project that uses cadre gets a .cadre/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// CadreDir is the name of the directory we create in each project.
	CadreDir = ".cadre"

	// DefaultRotationInterval is how often the active roster is recomputed, in seconds.
	DefaultRotationInterval = 900
	// DefaultReportInterval is how often progress reports come due, in seconds.
	DefaultReportInterval = 1800
)

// ErrConfigMissing signals that no config file exists. A missing registry is
// never interpreted as an empty roster; callers must surface this upstream.
var ErrConfigMissing = errors.New("config: config.yaml not found")

// Priority tiers for personas and tasks. P0 outranks P1 outranks P2.
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
)

const defaultConfigYAML = `# cadre persona registry
version: 1

# Personas rotate into the active roster based on priority tier.
# P0 personas are always represented when present.
personas:
  - name: Alice
    role: Project lead
    priority: P0
  - name: Bruno
    role: Backend engineer
    priority: P1
  - name: Carla
    role: UX reviewer
    priority: P2

# Seconds between roster rotations and between report generations.
rotation_interval: 900
report_interval: 1800
`

// Persona declares one entry in the registry.
type Persona struct {
	Name     string `yaml:"name"`
	Role     string `yaml:"role,omitempty"`
	Priority string `yaml:"priority"`
}

// Settings models .cadre/config.yaml.
type Settings struct {
	Version          int       `yaml:"version"`
	Personas         []Persona `yaml:"personas"`
	RotationInterval int64     `yaml:"rotation_interval"`
	ReportInterval   int64     `yaml:"report_interval"`
}

// Config holds the runtime configuration for cadre.
type Config struct {
	// ProjectDir is the directory where the user ran `cadre` from.
	ProjectDir string

	// CadreProjectDir is ProjectDir/.cadre.
	CadreProjectDir string

	Settings Settings
}

// InitCadreDir creates the .cadre directory structure in the given project
// directory and seeds a commented default config when none exists.
//
// Structure created:
// .cadre/
// ├── config.yaml   <- Persona registry and intervals
// ├── state/        <- Runtime state record
// ├── tasks/        <- Task ledger record
// ├── reports/      <- Per-persona daily progress reports
// └── logs/         <- Activity and notification logs
func InitCadreDir(projectDir string) error {
	cadreDir := filepath.Join(projectDir, CadreDir)

	dirs := []string{
		filepath.Join(cadreDir, "state"),
		filepath.Join(cadreDir, "tasks"),
		filepath.Join(cadreDir, "reports"),
		filepath.Join(cadreDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return ensureConfigFile(filepath.Join(cadreDir, "config.yaml"))
}

// NewConfig loads the persona registry for a project directory.
// It fails with ErrConfigMissing when .cadre/config.yaml does not exist.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:      projectDir,
		CadreProjectDir: filepath.Join(projectDir, CadreDir),
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of the registry file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.CadreProjectDir, "config.yaml")
}

// StateDir returns the path to the runtime state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.CadreProjectDir, "state")
}

// StatePath returns the path to the runtime state record.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir(), "state.json")
}

// TasksDir returns the path to the task ledger directory.
func (c *Config) TasksDir() string {
	return filepath.Join(c.CadreProjectDir, "tasks")
}

// TasksPath returns the path to the task ledger record.
func (c *Config) TasksPath() string {
	return filepath.Join(c.TasksDir(), "tasks.json")
}

// ReportsDir returns the root directory holding per-persona reports.
func (c *Config) ReportsDir() string {
	return filepath.Join(c.CadreProjectDir, "reports")
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.CadreProjectDir, "logs")
}

// Personas returns the configured roster.
func (c *Config) Personas() []Persona {
	return c.Settings.Personas
}

// Names returns the persona names in registry order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Settings.Personas))
	for _, p := range c.Settings.Personas {
		names = append(names, p.Name)
	}
	return names
}

// PersonaByName returns the registry entry matching name. Matching is
// case-insensitive exact, the same rule used for task assignees.
func (c *Config) PersonaByName(name string) (Persona, bool) {
	needle := strings.TrimSpace(name)
	for _, p := range c.Settings.Personas {
		if strings.EqualFold(p.Name, needle) {
			return p, true
		}
	}
	return Persona{}, false
}

// HasPersona reports whether a name exists in the registry.
func (c *Config) HasPersona(name string) bool {
	_, ok := c.PersonaByName(name)
	return ok
}

// ByTier partitions the roster into P0, P1, and P2 name pools.
func (c *Config) ByTier() (p0, p1, p2 []string) {
	for _, p := range c.Settings.Personas {
		switch p.Priority {
		case PriorityP0:
			p0 = append(p0, p.Name)
		case PriorityP1:
			p1 = append(p1, p.Name)
		case PriorityP2:
			p2 = append(p2, p.Name)
		}
	}
	return p0, p1, p2
}

// RotationInterval returns the configured rotation interval in seconds.
func (c *Config) RotationInterval() int64 {
	return c.Settings.RotationInterval
}

// ReportInterval returns the configured report interval in seconds.
func (c *Config) ReportInterval() int64 {
	return c.Settings.ReportInterval
}

func (c *Config) loadSettings() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrConfigMissing
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed Settings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Settings = parsed
	return nil
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if s.RotationInterval == 0 {
		s.RotationInterval = DefaultRotationInterval
	}
	if s.ReportInterval == 0 {
		s.ReportInterval = DefaultReportInterval
	}
}

func (s *Settings) normalize() {
	for i := range s.Personas {
		s.Personas[i].Name = strings.TrimSpace(s.Personas[i].Name)
		s.Personas[i].Role = strings.TrimSpace(s.Personas[i].Role)
		s.Personas[i].Priority = strings.ToUpper(strings.TrimSpace(s.Personas[i].Priority))
	}
}

func (s *Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if s.RotationInterval < 0 {
		return fmt.Errorf("rotation_interval must not be negative")
	}
	if s.ReportInterval < 0 {
		return fmt.Errorf("report_interval must not be negative")
	}
	seen := make(map[string]struct{}, len(s.Personas))
	for i, p := range s.Personas {
		if p.Name == "" {
			return fmt.Errorf("personas[%d]: name is required", i)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("personas[%d]: duplicate name %q", i, p.Name)
		}
		seen[key] = struct{}{}
		switch p.Priority {
		case PriorityP0, PriorityP1, PriorityP2:
		default:
			return fmt.Errorf("personas[%d]: priority must be P0, P1 or P2", i)
		}
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
