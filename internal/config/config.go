// Package config wraps the viper configuration singleton for the CLI.
//
// Precedence (highest to lowest): command-line flag (handled by the
// caller) > FILIGREE_* environment variable > config.yaml > default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/filigree-dev/filigree/internal/debug"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Optional config.yaml, looked up from CWD upward so commands work
	// from subdirectories. Per-project config.json (prefix, packs) is
	// handled by the configfile package; this file carries CLI behavior
	// settings only.
	configFileSet := false
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".filigree", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "filigree", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// FILIGREE_DB, FILIGREE_ACTOR, FILIGREE_JSON, ...
	v.SetEnvPrefix("FILIGREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("db", "")
	v.SetDefault("actor", "")
	v.SetDefault("archive.older-than", "720h") // 30 days
	v.SetDefault("compact.keep-recent", 50)
	v.SetDefault("scan.stale-after", "336h") // 14 days
	v.SetDefault("stale.threshold", "72h")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		debug.Logf("config: loaded %s\n", v.ConfigFileUsed())
	}
	return nil
}

// ResetForTesting clears the config state, allowing Initialize() to be
// called again. Not thread-safe; tests only.
func ResetForTesting() {
	v = nil
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value.
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

// ConfigFileUsed returns the path of the loaded config file, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
