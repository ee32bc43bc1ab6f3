package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ScannerDef describes an external scanner registered with the project.
// Definitions live in .filigree/scanners/*.toml; the tracker parses and
// lists them so agents know what to run, but never executes the command
// itself.
type ScannerDef struct {
	Name        string   `toml:"name"`
	Source      string   `toml:"source"`
	Command     []string `toml:"command"`
	Description string   `toml:"description"`
}

func (d *ScannerDef) validate(file string) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%s: scanner missing name", file)
	}
	if strings.TrimSpace(d.Source) == "" {
		return fmt.Errorf("%s: scanner %q missing source", file, d.Name)
	}
	return nil
}

// LoadScanners parses every *.toml under dir, sorted by filename.
// A missing directory is not an error; projects without scanners are
// common.
func LoadScanners(dir string) ([]*ScannerDef, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scanners dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	defs := make([]*ScannerDef, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		var def ScannerDef
		if _, err := toml.DecodeFile(path, &def); err != nil {
			return nil, fmt.Errorf("parsing scanner %s: %w", name, err)
		}
		if err := def.validate(name); err != nil {
			return nil, err
		}
		defs = append(defs, &def)
	}
	return defs, nil
}
