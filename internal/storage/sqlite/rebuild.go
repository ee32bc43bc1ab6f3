package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// rebuildTable swaps a table for a new definition: create <table>_new,
// copy rows, drop the old table, rename, recreate indexes. This is how
// constraint changes happen, since SQLite cannot alter FK or CHECK
// constraints in place.
//
// FK enforcement is disabled for the duration. PRAGMA foreign_keys is a
// no-op inside a transaction, so the OFF/ON toggles sit outside the
// transaction that performs the swap: the region between them is NOT
// atomic with respect to enforcement. The swap itself still commits or
// rolls back as a unit, and foreign_key_check runs before enforcement is
// restored so a bad copy cannot leave dangling references behind.
func (s *FiligreeStore) rebuildTable(ctx context.Context, table, createNew, copyData string, postSQL ...string) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "PRAGMA foreign_keys=ON")
	}()

	if err := s.rebuildSwap(ctx, conn, table, createNew, copyData, postSQL); err != nil {
		return err
	}

	// Verify integrity before enforcement comes back on.
	rows, err := conn.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("running foreign_key_check: %w", err)
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		return fmt.Errorf("rebuild of %s left foreign key violations", table)
	}
	return rows.Err()
}

func (s *FiligreeStore) rebuildSwap(ctx context.Context, conn *sql.Conn, table, createNew, copyData string, postSQL []string) error {
	if err := beginImmediate(ctx, conn); err != nil {
		return fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	steps := []struct {
		what string
		sql  string
	}{
		{"creating new table", createNew},
		{"copying rows", copyData},
		{"dropping old table", fmt.Sprintf("DROP TABLE %s", table)},
		{"renaming new table", fmt.Sprintf("ALTER TABLE %s_new RENAME TO %s", table, table)},
	}
	for _, p := range postSQL {
		steps = append(steps, struct {
			what string
			sql  string
		}{"recreating index", p})
	}
	for _, step := range steps {
		if _, err := conn.ExecContext(ctx, step.sql); err != nil {
			return fmt.Errorf("%s for %s: %w", step.what, table, err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("committing rebuild of %s: %w", table, err)
	}
	committed = true
	return nil
}
