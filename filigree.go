// Package filigree provides a minimal public API for embedding the
// tracker in other Go programs.
//
// Most integrations should go through the filigree CLI or direct SQL
// against the project database. This package exports only the types and
// functions needed to open a project store programmatically.
package filigree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/filigree-dev/filigree/internal/configfile"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/storage/sqlite"
	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/workflow"
)

// Core types for working with issues
type (
	Issue       = types.Issue
	IssueUpdate = types.IssueUpdate
	IssueFilter = types.IssueFilter
	WorkFilter  = types.WorkFilter
	Category    = types.Category
)

// Status category constants
const (
	CategoryOpen = types.CategoryOpen
	CategoryWIP  = types.CategoryWIP
	CategoryDone = types.CategoryDone
)

// DepBlocks is the default dependency kind.
const DepBlocks = types.DepKindBlocks

// Store is the storage interface integrations program against.
type Store = storage.Store

// Open opens a filigree database at an explicit path with the built-in
// workflow packs. The file and schema are created when absent.
func Open(ctx context.Context, dbPath string) (Store, error) {
	return sqlite.New(ctx, dbPath, sqlite.Options{})
}

// OpenProject opens the database inside a .filigree project directory,
// honoring the project's config.json (issue prefix, enabled packs).
func OpenProject(ctx context.Context, projectDir string) (Store, error) {
	cfg, err := configfile.Load(projectDir)
	if err != nil {
		return nil, err
	}
	opts := sqlite.Options{}
	if cfg != nil {
		opts.Prefix = cfg.Prefix
		opts.Registry = workflow.Load(projectDir, cfg.EnabledPacks)
	}
	return sqlite.New(ctx, configfile.DatabasePath(projectDir), opts)
}

// FindProjectDir walks up from startDir (the working directory when
// empty) looking for a .filigree directory.
func FindProjectDir(startDir string) (string, error) {
	dir := startDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		dir = cwd
	}
	for ; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, configfile.ProjectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("no %s directory found", configfile.ProjectDirName)
		}
	}
}
