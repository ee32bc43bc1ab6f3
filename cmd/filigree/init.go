package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/configfile"
	"github.com/filigree-dev/filigree/internal/idgen"
	"github.com/filigree-dev/filigree/internal/storage/sqlite"
	"github.com/filigree-dev/filigree/internal/summary"
	"github.com/filigree-dev/filigree/internal/ui"
	"github.com/filigree-dev/filigree/internal/workflow"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .filigree project in the current directory",
	Long: `Create the .filigree directory, config.json, and database.

The issue prefix defaults to a slug of the current directory name; ids
look like <prefix>-<suffix>.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		prefix, _ := cmd.Flags().GetString("prefix")
		packs, _ := cmd.Flags().GetStringSlice("packs")

		cwd, err := os.Getwd()
		if err != nil {
			fatalf("getting working directory: %v", err)
		}
		dir := filepath.Join(cwd, configfile.ProjectDirName)

		existing, err := configfile.Load(dir)
		if err != nil {
			fatalf("%v", err)
		}
		if existing != nil {
			fatalf("project already initialized (%s exists)", configfile.Path(dir))
		}

		if prefix == "" {
			prefix = idgen.SuggestPrefix(filepath.Base(cwd))
		}
		if err := idgen.ValidatePrefix(prefix); err != nil {
			fatalf("%v", err)
		}

		if err := os.MkdirAll(dir, 0o750); err != nil {
			fatalf("creating %s: %v", dir, err)
		}

		cfg := configfile.Default(prefix)
		cfg.EnabledPacks = packs
		if err := cfg.Save(dir); err != nil {
			fatalf("%v", err)
		}

		reg := workflow.Load(dir, packs)
		s, err := sqlite.New(rootCtx, configfile.DatabasePath(dir), sqlite.Options{
			Registry: reg,
			Prefix:   prefix,
		})
		if err != nil {
			fatalf("creating database: %v", err)
		}
		defer func() { _ = s.Close() }()

		writer := summary.New(s, reg, configfile.SummaryPath(dir))
		if err := writer.Refresh(rootCtx); err != nil {
			fatalf("writing summary: %v", err)
		}

		if jsonOutput {
			outputJSON(map[string]string{"project_dir": dir, "prefix": prefix})
			return
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Initialized project in %s\n\n", ui.RenderPassIcon(), dir)
		fmt.Printf("  Issue prefix: %s\n", cyan(prefix))
		fmt.Printf("  Issues will be named: %s\n\n", cyan(prefix+"-a3f2, "+prefix+"-9c41, ..."))
		fmt.Printf("Next: %s\n", cyan(`filigree create "My first issue"`))
	},
}

func init() {
	initCmd.Flags().String("prefix", "", "Issue id prefix (default: derived from directory name)")
	initCmd.Flags().StringSlice("packs", nil, "Workflow packs to enable (default: core,planning)")
	rootCmd.AddCommand(initCmd)
}
