// Package sqlite implements the issue store on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/workflow"
)

// FiligreeStore implements storage.Store over a single SQLite file.
//
// The store owns its connection pool exclusively: one writer, concurrent
// readers under WAL. The workflow registry is shared by reference and is
// read-only after load.
type FiligreeStore struct {
	db       *sql.DB
	dbPath   string
	registry *workflow.Registry
	closed   atomic.Bool

	// mutationHook runs after every committed mutation (summary refresh).
	// Failures in the hook never affect the mutation itself.
	mutationHook atomic.Pointer[func()]
}

var _ storage.Store = (*FiligreeStore)(nil)

// Options configure opening a store.
type Options struct {
	// Registry resolves workflow templates. Nil falls back to the
	// built-in packs.
	Registry *workflow.Registry

	// Prefix seeds the issue id prefix into the config table on first
	// open. Ignored when the database already has one.
	Prefix string
}

// setupWASMCache configures WASM compilation caching so the embedded
// SQLite build compiles once per machine instead of once per process.
// Falls back to an in-memory cache when the user cache dir is unusable.
func setupWASMCache() string {
	cacheDir := ""
	if userCache, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(userCache, "filigree", "wasm")
	}

	var cache wazero.CompilationCache
	if cacheDir != "" {
		if c, err := wazero.NewCompilationCacheWithDir(cacheDir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
		cacheDir = ""
	}

	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
	return cacheDir
}

func init() {
	_ = setupWASMCache()
}

// connString builds the driver URI for a database path, carrying the
// pragmas every connection in the pool needs.
func connString(path string) string {
	const pragmas = "_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	switch {
	case path == ":memory:":
		// Shared cache so every pool connection sees the same data.
		// WAL does not apply to in-memory databases.
		return "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&" + pragmas
	case strings.HasPrefix(path, "file:"):
		if strings.Contains(path, "_pragma=foreign_keys") {
			return path
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + pragmas
	default:
		return "file:" + path + "?" + pragmas
	}
}

func isInMemory(path string) bool {
	return path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
}

// New opens (and if needed creates or migrates) the database at path.
//
// On open the schema version in the user_version pragma is compared to
// the target: zero gets the full current schema, older versions run the
// pending migrations in order, newer versions are refused.
func New(ctx context.Context, path string, opts Options) (*FiligreeStore, error) {
	if !isInMemory(path) && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", connString(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if isInMemory(path) {
		// In-memory databases are per-connection without shared cache;
		// a single connection keeps all statements on the same data.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// 1 writer + N readers. WAL readers never block the writer, but
		// capping the pool keeps goroutines from piling up on the write
		// lock under contention.
		db.SetMaxOpenConns(runtime.NumCPU() + 1)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)

		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = workflow.Builtin()
	}

	s := &FiligreeStore{
		db:       db,
		dbPath:   path,
		registry: registry,
	}

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.seed(ctx, opts.Prefix); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema brings the database to the target schema version.
func (s *FiligreeStore) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	switch {
	case version == 0:
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
		if err := s.stampVersion(ctx, targetVersion); err != nil {
			return err
		}
	case version > targetVersion:
		return fmt.Errorf("database is at schema v%d, this build supports up to v%d: %w",
			version, targetVersion, storage.ErrDowngrade)
	case version < targetVersion:
		applied, err := s.runMigrations(ctx, version)
		if err != nil {
			return err
		}
		debug.Logf("sqlite: applied %d migration(s), now at schema v%d\n", applied, targetVersion)
	}
	return nil
}

// seed makes the idempotent post-schema writes: the issue prefix and the
// status-category cache derived from the workflow registry.
func (s *FiligreeStore) seed(ctx context.Context, prefix string) error {
	if prefix != "" {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO config (key, value) VALUES ('issue_prefix', ?)`, prefix)
		if err != nil {
			return fmt.Errorf("seeding issue prefix: %w", err)
		}
	}
	return s.rebuildStatusCategories(ctx)
}

func (s *FiligreeStore) stampVersion(ctx context.Context, v int) error {
	// PRAGMA does not accept bound parameters.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("stamping schema version %d: %w", v, err)
	}
	return nil
}

// SchemaVersion reports the database's current user_version.
func (s *FiligreeStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

// Registry returns the workflow registry the store resolves templates with.
func (s *FiligreeStore) Registry() *workflow.Registry { return s.registry }

// Prefix returns the configured issue id prefix.
func (s *FiligreeStore) Prefix(ctx context.Context) (string, error) {
	var prefix string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE key = 'issue_prefix'`).Scan(&prefix)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("database not initialized: issue prefix missing (run 'filigree init' first)")
	}
	if err != nil {
		return "", fmt.Errorf("reading issue prefix: %w", err)
	}
	return prefix, nil
}

// SetMutationHook registers a function invoked after every committed
// mutation. Used to refresh the summary projection; the hook must tolerate
// being called concurrently.
func (s *FiligreeStore) SetMutationHook(fn func()) {
	if fn == nil {
		s.mutationHook.Store(nil)
		return
	}
	s.mutationHook.Store(&fn)
}

func (s *FiligreeStore) notifyMutation() {
	if fn := s.mutationHook.Load(); fn != nil {
		(*fn)()
	}
}

// Close releases the connection pool. Safe to call twice.
func (s *FiligreeStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// UnderlyingDB exposes the pool for tests that need raw SQL access.
func (s *FiligreeStore) UnderlyingDB() *sql.DB { return s.db }
