package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/filigree-dev/filigree/internal/debug"
)

// Project subdirectories holding workflow overrides.
const (
	PacksDir     = "packs"     // whole-pack definitions
	TemplatesDir = "templates" // single-type definitions, merged into a synthetic pack
)

// Load builds the registry for a project directory.
//
// Resolution order (earlier wins on type-name conflicts):
//  1. single-type overrides from <dir>/templates/
//  2. on-disk packs from <dir>/packs/, in enabled order
//  3. built-in packs, in enabled order
//
// enabled restricts which pack names are exposed; a nil or empty list
// enables the built-in defaults. Malformed files are skipped with a
// warning, never fatal.
func Load(dir string, enabled []string) *Registry {
	if len(enabled) == 0 {
		enabled = DefaultEnabledPacks
	}

	diskPacks := map[string]*Pack{}
	var warnings []string
	if dir != "" {
		var w []string
		diskPacks, w = loadPackDir(filepath.Join(dir, PacksDir))
		warnings = append(warnings, w...)
	}

	var ordered []*Pack
	if dir != "" {
		if tp, w := loadTemplateDir(filepath.Join(dir, TemplatesDir)); tp != nil {
			ordered = append(ordered, tp)
			warnings = append(warnings, w...)
		} else {
			warnings = append(warnings, w...)
		}
	}

	builtin := builtinPacks()
	for _, name := range enabled {
		if p, ok := diskPacks[name]; ok {
			ordered = append(ordered, p)
			continue
		}
		if p, ok := builtin[name]; ok {
			ordered = append(ordered, p)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("enabled pack %q not found (built-in or %s/)", name, PacksDir))
	}

	r := NewRegistry(ordered...)
	r.warnings = append(warnings, r.warnings...)
	for _, w := range r.warnings {
		debug.Logf("workflow: %s\n", w)
	}
	return r
}

// loadPackDir reads every pack definition in a directory, keyed by pack name.
func loadPackDir(dir string) (map[string]*Pack, []string) {
	packs := map[string]*Pack{}
	var warnings []string
	for _, path := range definitionFiles(dir) {
		var p Pack
		if err := decodeDefinition(path, &p); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping pack %s: %v", filepath.Base(path), err))
			continue
		}
		if p.Name == "" {
			warnings = append(warnings, fmt.Sprintf("skipping pack %s: missing name", filepath.Base(path)))
			continue
		}
		packs[p.Name] = &p
	}
	return packs, warnings
}

// loadTemplateDir reads single-type definitions into one synthetic pack
// that outranks every real pack. Returns nil when the directory holds
// no usable definitions.
func loadTemplateDir(dir string) (*Pack, []string) {
	var warnings []string
	pack := &Pack{Name: "local-templates", Description: "Project type overrides"}
	for _, path := range definitionFiles(dir) {
		var t TypeTemplate
		if err := decodeDefinition(path, &t); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping template %s: %v", filepath.Base(path), err))
			continue
		}
		pack.Types = append(pack.Types, t)
	}
	if len(pack.Types) == 0 {
		return nil, warnings
	}
	return pack, warnings
}

// definitionFiles lists .json/.yaml/.yml files in a directory, sorted for
// deterministic conflict resolution. Missing directories yield nothing.
func definitionFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

func decodeDefinition(path string, v any) error {
	data, err := os.ReadFile(path) // #nosec G304 - controlled path under the project dir
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parsing json: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	return nil
}
