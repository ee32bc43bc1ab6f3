package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// dbtx is satisfied by *sql.DB, *sql.Conn, and *sql.Tx so query helpers
// can run both inside and outside an explicit transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection.
//
// IMMEDIATE acquires the write lock up front, so two writers never
// deadlock upgrading shared locks mid-transaction. SQLITE_BUSY on begin is
// retried with exponential backoff; once begun, the transaction either
// commits fully or rolls back fully, including on panic.
func (s *FiligreeStore) inTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediate(ctx, conn); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback still runs when ctx is done.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// beginImmediate starts an IMMEDIATE transaction, retrying busy errors.
func beginImmediate(ctx context.Context, conn *sql.Conn) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(10*time.Millisecond),
			backoff.WithMaxInterval(500*time.Millisecond),
		), 5), ctx)

	return backoff.Retry(func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if isBusy(err) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}, policy)
}

// isBusy reports whether err is SQLITE_BUSY / SQLITE_LOCKED contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "locked")
}
