package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// Batch operations apply one change-set to an explicit id list. Each item
// runs in its own transaction: a failure is captured into the structured
// error list and the batch continues, so one bad id never voids the rest.

func validateBatchIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: batch requires at least one issue id", storage.ErrInvalidInput)
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: batch ids must be non-empty strings", storage.ErrInvalidInput)
		}
	}
	return nil
}

func (s *FiligreeStore) runBatch(ids []string, apply func(id string) error) (*types.BatchResult, error) {
	if err := validateBatchIDs(ids); err != nil {
		return nil, err
	}
	result := &types.BatchResult{}
	for _, id := range ids {
		if err := apply(id); err != nil {
			result.Errors = append(result.Errors, types.BatchError{ID: id, Err: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	if len(result.Succeeded) > 0 {
		s.notifyMutation()
	}
	return result, nil
}

// BatchUpdate applies the same partial update to every id.
func (s *FiligreeStore) BatchUpdate(ctx context.Context, ids []string, upd types.IssueUpdate, actor string) (*types.BatchResult, error) {
	return s.runBatch(ids, func(id string) error {
		return s.inTx(ctx, func(conn *sql.Conn) error {
			return s.applyUpdate(ctx, conn, id, upd, actor, "")
		})
	})
}

// BatchClose closes every id with its type's closing state.
func (s *FiligreeStore) BatchClose(ctx context.Context, ids []string, reason, actor string) (*types.BatchResult, error) {
	return s.runBatch(ids, func(id string) error {
		return s.inTx(ctx, func(conn *sql.Conn) error {
			cur, err := s.loadIssueTx(ctx, conn, id)
			if err != nil {
				return err
			}
			target := s.registry.DoneState(cur.IssueType)
			return s.applyUpdate(ctx, conn, id, types.IssueUpdate{Status: &target}, actor, reason)
		})
	})
}

// BatchAddLabel attaches one label to every id.
func (s *FiligreeStore) BatchAddLabel(ctx context.Context, ids []string, label, actor string) (*types.BatchResult, error) {
	if err := s.validateLabel(label); err != nil {
		return nil, err
	}
	return s.runBatch(ids, func(id string) error {
		return s.AddLabel(ctx, id, label, actor)
	})
}

// BatchAddComment posts one comment on every id.
func (s *FiligreeStore) BatchAddComment(ctx context.Context, ids []string, text, actor string) (*types.BatchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: comment text must not be empty", storage.ErrInvalidInput)
	}
	return s.runBatch(ids, func(id string) error {
		_, err := s.AddComment(ctx, id, actor, text)
		return err
	})
}
