package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDefaultsWithoutOverrides(t *testing.T) {
	r := Load(t.TempDir(), nil)

	assert.NotNil(t, r.GetType("task"))
	assert.NotNil(t, r.GetType("milestone"))
	assert.Empty(t, r.Warnings())
}

func TestLoadEmptyDirIsBuiltin(t *testing.T) {
	r := Load("", nil)
	assert.Equal(t, "triage", r.InitialState("bug"))
}

func TestLoadDiskPackOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, filepath.Join(dir, PacksDir), "core.yaml", `
name: core
description: project core override
types:
  - name: task
    initial_state: todo
    states:
      - name: todo
        category: open
      - name: finished
        category: done
`)

	r := Load(dir, nil)
	assert.Equal(t, "todo", r.InitialState("task"))
	// The disk pack replaces the whole built-in core pack, so bug is gone
	// but planning types survive.
	assert.Nil(t, r.GetType("bug"))
	assert.NotNil(t, r.GetType("milestone"))
}

func TestLoadTemplateOutranksPacks(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, filepath.Join(dir, TemplatesDir), "task.json", `{
  "name": "task",
  "initial_state": "inbox",
  "states": [
    {"name": "inbox", "category": "open"},
    {"name": "done", "category": "done"}
  ]
}`)

	r := Load(dir, nil)
	assert.Equal(t, "inbox", r.InitialState("task"))
	// Single-type overrides touch only the named type.
	assert.Equal(t, "triage", r.InitialState("bug"))
}

func TestLoadEnabledRestrictsPacks(t *testing.T) {
	r := Load(t.TempDir(), []string{PackCore})
	assert.NotNil(t, r.GetType("task"))
	assert.Nil(t, r.GetType("milestone"))
}

func TestLoadUnknownEnabledPackWarns(t *testing.T) {
	r := Load(t.TempDir(), []string{PackCore, "no-such-pack"})

	assert.NotNil(t, r.GetType("task"))
	require.NotEmpty(t, r.Warnings())
	assert.Contains(t, r.Warnings()[0], "no-such-pack")
}

func TestLoadSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, filepath.Join(dir, PacksDir), "broken.yaml", "{{ not yaml")
	writeDefinition(t, filepath.Join(dir, PacksDir), "unnamed.yaml", `
description: forgot the name
types: []
`)

	r := Load(dir, nil)
	// Loading still succeeds on the built-ins.
	assert.NotNil(t, r.GetType("task"))
	require.Len(t, r.Warnings(), 2)
	assert.Contains(t, r.Warnings()[0], "broken.yaml")
	assert.Contains(t, r.Warnings()[1], "missing name")
}

func TestLoadIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, filepath.Join(dir, PacksDir), "README.md", "not a pack")

	r := Load(dir, nil)
	assert.Empty(t, r.Warnings())
	assert.Equal(t, "open", r.InitialState("task"))
}
