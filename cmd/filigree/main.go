package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/config"
	"github.com/filigree-dev/filigree/internal/configfile"
	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/storage/sqlite"
	"github.com/filigree-dev/filigree/internal/summary"
	"github.com/filigree-dev/filigree/internal/workflow"
)

var (
	dbPath     string
	actor      string
	jsonOutput bool

	verboseFlag bool
	quietFlag   bool
	noSummary   bool

	// Populated by PersistentPreRun for commands that need a database.
	store      *sqlite.FiligreeStore
	registry   *workflow.Registry
	projectDir string // the .filigree directory, "" when --db points elsewhere

	// Signal-aware context for graceful cancellation.
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// noDbCommands run without opening (or requiring) a database.
var noDbCommands = map[string]bool{
	"init":       true,
	"version":    true,
	"help":       true,
	"completion": true,
}

func isNoDbCommand(cmd *cobra.Command) bool {
	if cmd.Name() == "__complete" {
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if noDbCommands[c.Name()] {
			return true
		}
	}
	return false
}

var rootCmd = &cobra.Command{
	Use:   "filigree",
	Short: "filigree - workflow-aware local issue tracker",
	Long: `A local, file-backed issue tracker with workflow templates,
dependency-aware readiness, and scan-result ingestion. State lives in
.filigree/ next to your code; a markdown summary is projected after
every change.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		applyConfigDefaults(cmd)

		if isNoDbCommand(cmd) {
			return
		}
		openProjectStore()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
			store = nil
		}
		if rootCancel != nil {
			rootCancel()
		}
	},
}

// applyConfigDefaults fills flag-bound globals from viper when the flag
// was not set explicitly. Flags outrank FILIGREE_* env vars and
// config.yaml.
func applyConfigDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("db") && config.GetString("db") != "" {
		dbPath = config.GetString("db")
	}
	if !cmd.Flags().Changed("actor") && config.GetString("actor") != "" {
		actor = config.GetString("actor")
	}
	if !cmd.Flags().Changed("json") && config.GetBool("json") {
		jsonOutput = true
	}
}

// openProjectStore resolves the project, builds the workflow registry,
// and opens the store. Exits on failure: no command can proceed without
// a database.
func openProjectStore() {
	path := dbPath
	if path == "" {
		dir, err := findProjectDir()
		if err != nil {
			fatalf("%v (run 'filigree init' to create a project)", err)
		}
		projectDir = dir
		path = configfile.DatabasePath(dir)
	} else if filepath.Base(filepath.Dir(path)) == configfile.ProjectDirName {
		projectDir = filepath.Dir(path)
	}

	var enabled []string
	prefix := ""
	if projectDir != "" {
		if cfg, err := configfile.Load(projectDir); err != nil {
			fatalf("%v", err)
		} else if cfg != nil {
			enabled = cfg.EnabledPacks
			prefix = cfg.Prefix
		}
	}
	registry = workflow.Load(projectDir, enabled)

	s, err := sqlite.New(rootCtx, path, sqlite.Options{Registry: registry, Prefix: prefix})
	if err != nil {
		fatalf("opening store: %v", err)
	}
	store = s

	if projectDir != "" && !noSummary {
		writer := summary.New(store, registry, configfile.SummaryPath(projectDir))
		store.SetMutationHook(writer.Hook())
	}
}

// findProjectDir walks up from the working directory looking for a
// .filigree directory.
func findProjectDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, configfile.ProjectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("no %s directory found", configfile.ProjectDirName)
		}
	}
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .filigree/filigree.db)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor name for the event log (default: $FILIGREE_ACTOR, git user.name, $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noSummary, "no-summary", false, "Skip rewriting the context.md projection")

	rootCmd.AddGroup(&cobra.Group{ID: "issues", Title: "Working With Issues:"})
	rootCmd.AddGroup(&cobra.Group{ID: "views", Title: "Views & Reports:"})
	rootCmd.AddGroup(&cobra.Group{ID: "deps", Title: "Dependencies & Structure:"})
	rootCmd.AddGroup(&cobra.Group{ID: "files", Title: "Files & Scans:"})
	rootCmd.AddGroup(&cobra.Group{ID: "data", Title: "Data & Maintenance:"})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
