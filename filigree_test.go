package filigree_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/filigree-dev/filigree"
	"github.com/filigree-dev/filigree/internal/configfile"
)

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "embedded.db")

	ctx := context.Background()
	store, err := filigree.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	issue := &filigree.Issue{Title: "From an embedding program", Priority: 2}
	if err := store.CreateIssue(ctx, issue, "embedder"); err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	got, err := store.GetIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.StatusCategory != filigree.CategoryOpen {
		t.Errorf("expected an open issue, got %q", got.StatusCategory)
	}
}

func TestOpenProject(t *testing.T) {
	projectDir := filepath.Join(t.TempDir(), configfile.ProjectDirName)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := configfile.Default("embed").Save(projectDir); err != nil {
		t.Fatalf("seeding config: %v", err)
	}

	ctx := context.Background()
	store, err := filigree.OpenProject(ctx, projectDir)
	if err != nil {
		t.Fatalf("OpenProject failed: %v", err)
	}
	defer store.Close()

	issue := &filigree.Issue{Title: "Prefixed", Priority: 2}
	if err := store.CreateIssue(ctx, issue, "embedder"); err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if got := issue.ID[:6]; got != "embed-" {
		t.Errorf("expected the config prefix on %s", issue.ID)
	}
}

func TestFindProjectDir(t *testing.T) {
	root := t.TempDir()
	want := filepath.Join(root, configfile.ProjectDirName)
	if err := os.MkdirAll(want, 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := filigree.FindProjectDir(deep)
	if err != nil {
		t.Fatalf("FindProjectDir failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if _, err := filigree.FindProjectDir(t.TempDir()); err == nil {
		t.Error("expected an error outside any project")
	}
}
