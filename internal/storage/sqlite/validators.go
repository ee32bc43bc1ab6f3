package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/storage"
)

// issueExists checks for an issue row without loading it.
func issueExists(ctx context.Context, q dbtx, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM issues WHERE id = ?`, id).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("checking issue %s: %w", id, err)
}

// requireIssue resolves to ErrNotFound when the id has no row.
func requireIssue(ctx context.Context, q dbtx, id string) error {
	ok, err := issueExists(ctx, q, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// validateLabel rejects empty labels and names that collide with a
// registered issue type; type names are reserved so `label:bug` can never
// shadow `type:bug` in filters.
func (s *FiligreeStore) validateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("label must not be empty: %w", storage.ErrInvalidInput)
	}
	if s.registry.IsReservedTypeName(label) {
		return fmt.Errorf("label %q collides with a registered issue type: %w", label, storage.ErrInvalidInput)
	}
	return nil
}

// validateIssueID rejects blank and whitespace-padded ids before they hit
// SQL, where they would silently match nothing.
func validateIssueID(id string) error {
	if id == "" || strings.TrimSpace(id) != id {
		return fmt.Errorf("invalid issue id %q: %w", id, storage.ErrInvalidInput)
	}
	return nil
}
