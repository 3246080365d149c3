// Package config loads host configuration for the questweave binary
// from a YAML file. Every field has a sensible default; a missing file
// is not an error.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the binary looks for configuration when no
// --config flag is given.
const DefaultPath = "questweave.yaml"

// Config is the host configuration.
type Config struct {
	// ContentDir is the directory holding .lua quest content.
	ContentDir string `yaml:"content_dir"`

	// SavePath is the file used by /save and /load.
	SavePath string `yaml:"save_path"`

	// MaxActive caps simultaneously active quests. 0 means no cap.
	MaxActive int `yaml:"max_active"`

	// AllowReplay permits restarting completed quests.
	AllowReplay bool `yaml:"allow_replay"`

	// RequireCatalog rejects quests added outside the loaded catalog.
	RequireCatalog bool `yaml:"require_catalog"`

	// AutoActivate registers every catalog quest at startup.
	AutoActivate bool `yaml:"auto_activate"`

	// Plain disables the TUI and runs the line-oriented console.
	Plain bool `yaml:"plain"`

	// Trace echoes registry counts after every console command.
	Trace bool `yaml:"trace"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ContentDir:     "content",
		SavePath:       "questweave.save.json",
		RequireCatalog: true,
		AutoActivate:   true,
	}
}

// Load reads configuration from path. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ContentDir == "" {
		return fmt.Errorf("content_dir must not be empty")
	}
	if c.SavePath == "" {
		return fmt.Errorf("save_path must not be empty")
	}
	if c.MaxActive < 0 {
		return fmt.Errorf("max_active must not be negative")
	}
	return nil
}
