// Package configfile reads and writes the per-project config.json.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/utils"
)

// Well-known names inside a project.
const (
	ProjectDirName = ".filigree"
	ConfigFileName = "config.json"
	DatabaseName   = "filigree.db"
	SummaryName    = "context.md"
	ScannersDir    = "scanners"
)

// ConfigVersion is the current config.json format version.
const ConfigVersion = 1

// Mode selects how the project is served.
type Mode string

// Project modes. Anything else falls back to ModeEthereal.
const (
	ModeEthereal Mode = "ethereal" // opened per-process, no daemon
	ModeServer   Mode = "server"   // owned by a long-lived local daemon
)

// Config is the project configuration stored in .filigree/config.json.
// Unknown keys are tolerated: they are kept on load and written back on
// save so that newer tools can round-trip through older ones.
type Config struct {
	Prefix       string   `json:"prefix"`
	Version      int      `json:"version"`
	EnabledPacks []string `json:"enabled_packs,omitempty"`
	Mode         Mode     `json:"mode,omitempty"`

	extra map[string]json.RawMessage
}

// Default returns a new config for the given issue prefix.
func Default(prefix string) *Config {
	return &Config{
		Prefix:  prefix,
		Version: ConfigVersion,
		Mode:    ModeEthereal,
	}
}

// Path returns the config file path for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, ConfigFileName)
}

// Load reads the config from a project directory. Returns (nil, nil) when
// the file does not exist.
func Load(projectDir string) (*Config, error) {
	data, err := os.ReadFile(Path(projectDir)) // #nosec G304 - controlled path
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{extra: map[string]json.RawMessage{}}
	for key, val := range raw {
		switch key {
		case "prefix":
			if err := json.Unmarshal(val, &cfg.Prefix); err != nil {
				return nil, fmt.Errorf("parsing config prefix: %w", err)
			}
		case "version":
			if err := json.Unmarshal(val, &cfg.Version); err != nil {
				return nil, fmt.Errorf("parsing config version: %w", err)
			}
		case "enabled_packs":
			if err := json.Unmarshal(val, &cfg.EnabledPacks); err != nil {
				return nil, fmt.Errorf("parsing config enabled_packs: %w", err)
			}
		case "mode":
			var m string
			if err := json.Unmarshal(val, &m); err != nil {
				return nil, fmt.Errorf("parsing config mode: %w", err)
			}
			cfg.Mode = Mode(m)
		default:
			debug.Logf("config: unknown key %q (keeping as-is)\n", key)
			cfg.extra[key] = val
		}
	}

	if cfg.Mode != ModeEthereal && cfg.Mode != ModeServer {
		if cfg.Mode != "" {
			debug.Warnf("config: unknown mode %q, falling back to %q\n", cfg.Mode, ModeEthereal)
		}
		cfg.Mode = ModeEthereal
	}
	return cfg, nil
}

// Save writes the config atomically into the project directory.
func (c *Config) Save(projectDir string) error {
	raw := map[string]json.RawMessage{}
	for key, val := range c.extra {
		raw[key] = val
	}
	put := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling config %s: %w", key, err)
		}
		raw[key] = data
		return nil
	}
	if err := put("prefix", c.Prefix); err != nil {
		return err
	}
	if err := put("version", c.Version); err != nil {
		return err
	}
	if len(c.EnabledPacks) > 0 {
		if err := put("enabled_packs", c.EnabledPacks); err != nil {
			return err
		}
	}
	if err := put("mode", c.Mode); err != nil {
		return err
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return utils.WriteFileAtomic(Path(projectDir), append(data, '\n'), 0o600)
}

// DatabasePath returns the DB file path for a project directory.
func DatabasePath(projectDir string) string {
	return filepath.Join(projectDir, DatabaseName)
}

// SummaryPath returns the summary projection path for a project directory.
func SummaryPath(projectDir string) string {
	return filepath.Join(projectDir, SummaryName)
}
