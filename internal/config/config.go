// internal/config/config.go
//
// This package handles configuration and the .titanoboa directory structure.
// Every project orchestrated by titanoboa gets a .titanoboa/ folder created
// in its root.

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
	// ProjectDir is the name of the directory we create in each project.
	ProjectDir = ".titanoboa"

	defaultExtension  = ".go"
	defaultEntrypoint = "Execute"
)

var defaultIgnore = []string{ProjectDir, ".git"}

const defaultSettingsYAML = `# titanoboa project configuration
version: 1

# Extension of files that participate in orchestration.
extension: .go

# Directory names excluded from scanning.
ignore:
  - .titanoboa
  - .git

# Function every module file must export.
entrypoint: Execute
`

// Settings models .titanoboa/config.yaml.
type Settings struct {
	Version    int      `yaml:"version"`
	Extension  string   `yaml:"extension"`
	Ignore     []string `yaml:"ignore"`
	Entrypoint string   `yaml:"entrypoint"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// Root is the project directory being orchestrated.
	Root string
	// ProjectDir is Root/.titanoboa.
	ProjectDir string

	Settings Settings
}

// InitProjectDir creates the .titanoboa directory structure in the given
// project directory and writes the default config.yaml when none exists.
//
// Structure created:
//
//	.titanoboa/
//	├── config.yaml   <- project settings
//	├── logs/         <- orchestration activity log
//	└── state/        <- last registry snapshot, for diffing between runs
func InitProjectDir(root string) error {
	projectDir := filepath.Join(root, ProjectDir)
	for _, dir := range []string{
		filepath.Join(projectDir, "logs"),
		filepath.Join(projectDir, "state"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	configPath := filepath.Join(projectDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, []byte(defaultSettingsYAML), 0o644); err != nil {
		return fmt.Errorf("config: write default config: %w", err)
	}
	return nil
}

// Load reads the project configuration, falling back to defaults when the
// file is missing.
func Load(root string) (*Config, error) {
	c := &Config{
		Root:       root,
		ProjectDir: filepath.Join(root, ProjectDir),
		Settings:   defaultSettings(),
	}
	data, err := os.ReadFile(filepath.Join(c.ProjectDir, "config.yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("config: read config.yaml: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Settings); err != nil {
		return nil, fmt.Errorf("config: parse config.yaml: %w", err)
	}
	return c, nil
}

func defaultSettings() Settings {
	return Settings{
		Version:    1,
		Extension:  defaultExtension,
		Ignore:     append([]string(nil), defaultIgnore...),
		Entrypoint: defaultEntrypoint,
	}
}

// Extension returns the configured module file extension, normalized to
// carry a leading dot.
func (c *Config) Extension() string {
	ext := strings.TrimSpace(c.Settings.Extension)
	if ext == "" {
		return defaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Ignore returns the directory names excluded from scanning. The project
// directory itself is always excluded regardless of configuration.
func (c *Config) Ignore() []string {
	names := append([]string(nil), c.Settings.Ignore...)
	for _, name := range names {
		if name == ProjectDir {
			return names
		}
	}
	return append(names, ProjectDir)
}

// Entrypoint returns the function name modules must export.
func (c *Config) Entrypoint() string {
	if strings.TrimSpace(c.Settings.Entrypoint) == "" {
		return defaultEntrypoint
	}
	return c.Settings.Entrypoint
}
