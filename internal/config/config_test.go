package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func initIn(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		ResetForTesting()
	})
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
}

// TestDefaults verifies the built-in settings without any config file.
func TestDefaults(t *testing.T) {
	initIn(t, t.TempDir())

	if GetBool("json") {
		t.Error("json should default to false")
	}
	if got := GetDuration("archive.older-than"); got != 720*time.Hour {
		t.Errorf("expected 720h archive cutoff, got %s", got)
	}
	if got := GetInt("compact.keep-recent"); got != 50 {
		t.Errorf("expected keep-recent 50, got %d", got)
	}
	if got := GetDuration("stale.threshold"); got != 72*time.Hour {
		t.Errorf("expected 72h stale threshold, got %s", got)
	}
}

// TestConfigFileWalkUp verifies config.yaml is found from a subdirectory.
func TestConfigFileWalkUp(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".filigree"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "json: true\nactor: robot\ncompact:\n  keep-recent: 7\n"
	if err := os.WriteFile(filepath.Join(root, ".filigree", "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	initIn(t, sub)

	if !GetBool("json") {
		t.Error("expected json=true from config.yaml")
	}
	if got := GetString("actor"); got != "robot" {
		t.Errorf("expected actor robot, got %q", got)
	}
	if got := GetInt("compact.keep-recent"); got != 7 {
		t.Errorf("expected file to override the default, got %d", got)
	}
}

// TestEnvOverridesFile verifies FILIGREE_* wins over config.yaml.
func TestEnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".filigree"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".filigree", "config.yaml"), []byte("actor: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FILIGREE_ACTOR", "from-env")
	initIn(t, root)

	if got := GetString("actor"); got != "from-env" {
		t.Errorf("expected env to win, got %q", got)
	}
}

// TestUninitializedAccessors verifies zero values before Initialize.
func TestUninitializedAccessors(t *testing.T) {
	ResetForTesting()
	if GetString("actor") != "" || GetBool("json") || GetInt("compact.keep-recent") != 0 {
		t.Error("expected zero values before Initialize")
	}
	if ConfigFileUsed() != "" {
		t.Error("expected no config file before Initialize")
	}
}
