package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// UpdateIssue applies a partial update. Each changed column is validated
// and recorded as its own event; a failure on any column aborts the whole
// update with nothing persisted.
func (s *FiligreeStore) UpdateIssue(ctx context.Context, id string, upd types.IssueUpdate, actor string) error {
	if upd.IsEmpty() {
		return nil
	}
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		return s.applyUpdate(ctx, conn, id, upd, actor, "")
	})
	if err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// CloseIssue moves an issue to a done-category state. An empty status
// picks the type's closing state. Hard-enforced transitions still apply:
// required fields must arrive in this call or already be present.
func (s *FiligreeStore) CloseIssue(ctx context.Context, id, status string, fields map[string]any, reason, actor string) error {
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		cur, err := s.loadIssueTx(ctx, conn, id)
		if err != nil {
			return err
		}
		target := status
		if target == "" {
			target = s.registry.DoneState(cur.IssueType)
		}
		if s.registry.CategoryOrHeuristic(cur.IssueType, target) != types.CategoryDone {
			return fmt.Errorf("%w: %q is not a done-category state for type %q",
				storage.ErrInvalidInput, target, cur.IssueType)
		}
		return s.applyUpdate(ctx, conn, id, types.IssueUpdate{Status: &target, Fields: fields}, actor, reason)
	})
	if err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// ReopenIssue moves a done issue back to its type's initial open state and
// clears closed_at.
func (s *FiligreeStore) ReopenIssue(ctx context.Context, id, actor string) error {
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		cur, err := s.loadIssueTx(ctx, conn, id)
		if err != nil {
			return err
		}
		if s.registry.CategoryOrHeuristic(cur.IssueType, cur.Status) != types.CategoryDone {
			return fmt.Errorf("%w: issue %s is not closed", storage.ErrInvalidInput, id)
		}
		target := s.registry.ReopenState(cur.IssueType)
		return s.applyUpdate(ctx, conn, id, types.IssueUpdate{Status: &target}, actor, "")
	})
	if err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

func (s *FiligreeStore) loadIssueTx(ctx context.Context, q dbtx, id string) (*types.Issue, error) {
	if err := validateIssueID(id); err != nil {
		return nil, err
	}
	issue, err := scanIssue(q.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
	if err != nil {
		return nil, wrapDBErrorf(err, "loading issue %s", id)
	}
	return issue, nil
}

type columnChange struct {
	event    types.EventType
	oldValue *string
	newValue *string
}

// applyUpdate is the shared update core for UpdateIssue, CloseIssue,
// ReopenIssue, and the batch operations. Must run inside a transaction.
// The reason, when non-empty, becomes the status event's comment.
func (s *FiligreeStore) applyUpdate(ctx context.Context, conn *sql.Conn, id string, upd types.IssueUpdate, actor, reason string) error {
	cur, err := s.loadIssueTx(ctx, conn, id)
	if err != nil {
		return err
	}
	now := utcNow()

	var (
		sets     []string
		args     []any
		changes  []columnChange
		warnings []string
	)

	if upd.Title != nil && *upd.Title != cur.Title {
		if strings.TrimSpace(*upd.Title) == "" {
			return fmt.Errorf("%w: title must not be empty", storage.ErrInvalidInput)
		}
		if len(*upd.Title) > 500 {
			return fmt.Errorf("%w: title must be 500 characters or less", storage.ErrInvalidInput)
		}
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
		changes = append(changes, columnChange{types.EventTitleChanged, strPtr(cur.Title), strPtr(*upd.Title)})
	}
	if upd.Description != nil && *upd.Description != cur.Description {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
		changes = append(changes, columnChange{types.EventDescriptionChanged, strPtr(cur.Description), strPtr(*upd.Description)})
	}
	if upd.Notes != nil && *upd.Notes != cur.Notes {
		sets = append(sets, "notes = ?")
		args = append(args, *upd.Notes)
		changes = append(changes, columnChange{types.EventNotesChanged, strPtr(cur.Notes), strPtr(*upd.Notes)})
	}
	if upd.Priority != nil && *upd.Priority != cur.Priority {
		if *upd.Priority < 0 || *upd.Priority > 4 {
			return fmt.Errorf("%w: priority must be between 0 and 4 (got %d)", storage.ErrInvalidInput, *upd.Priority)
		}
		sets = append(sets, "priority = ?")
		args = append(args, *upd.Priority)
		changes = append(changes, columnChange{types.EventPriorityChanged,
			strPtr(strconv.Itoa(cur.Priority)), strPtr(strconv.Itoa(*upd.Priority))})
	}
	if upd.Assignee != nil && *upd.Assignee != cur.Assignee {
		sets = append(sets, "assignee = ?")
		args = append(args, *upd.Assignee)
		changes = append(changes, columnChange{types.EventAssigneeChanged, strPtr(cur.Assignee), strPtr(*upd.Assignee)})
	}

	switch {
	case upd.ClearParent:
		if cur.ParentID != nil {
			sets = append(sets, "parent_id = NULL")
			changes = append(changes, columnChange{types.EventParentChanged, strPtr(*cur.ParentID), strPtr("")})
		}
	case upd.ParentID != nil && (cur.ParentID == nil || *cur.ParentID != *upd.ParentID):
		if err := s.validateParent(ctx, conn, id, *upd.ParentID); err != nil {
			return err
		}
		oldParent := ""
		if cur.ParentID != nil {
			oldParent = *cur.ParentID
		}
		sets = append(sets, "parent_id = ?")
		args = append(args, *upd.ParentID)
		changes = append(changes, columnChange{types.EventParentChanged, strPtr(oldParent), strPtr(*upd.ParentID)})
	}

	mergedFields := cur.Fields
	if len(upd.Fields) > 0 {
		mergedFields = mergeFields(cur.Fields, upd.Fields)
		oldJSON, err := marshalFields(cur.Fields)
		if err != nil {
			return err
		}
		newJSON, err := marshalFields(mergedFields)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidInput, err)
		}
		if newJSON != oldJSON {
			sets = append(sets, "fields = ?")
			args = append(args, newJSON)
			changes = append(changes, columnChange{types.EventFieldsChanged, strPtr(oldJSON), strPtr(newJSON)})
		}
	}

	if upd.Status != nil && *upd.Status != cur.Status {
		newStatus := *upd.Status
		check := s.registry.ValidateTransition(cur.IssueType, cur.Status, newStatus, mergedFields)
		if !check.Allowed {
			return &storage.TransitionError{
				IssueID:       id,
				IssueType:     cur.IssueType,
				From:          cur.Status,
				To:            newStatus,
				MissingFields: check.MissingFields,
				Valid:         s.registry.ValidTransitions(cur.IssueType, cur.Status, mergedFields),
			}
		}
		warnings = check.Warnings

		sets = append(sets, "status = ?")
		args = append(args, newStatus)
		changes = append(changes, columnChange{types.EventStatusChanged, strPtr(cur.Status), strPtr(newStatus)})

		// closed_at tracks the NEW status's category.
		if s.registry.CategoryOrHeuristic(cur.IssueType, newStatus) == types.CategoryDone {
			if cur.ClosedAt == nil {
				sets = append(sets, "closed_at = ?")
				args = append(args, now)
			}
		} else if cur.ClosedAt != nil {
			sets = append(sets, "closed_at = NULL")
		}
	}

	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)

	if _, err := conn.ExecContext(ctx,
		`UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return wrapDBErrorf(err, "updating issue %s", id)
	}

	for _, c := range changes {
		var comment *string
		if c.event == types.EventStatusChanged && reason != "" {
			comment = strPtr(reason)
		}
		if err := recordEvent(ctx, conn, id, c.event, actor, c.oldValue, c.newValue, comment, now); err != nil {
			return err
		}
	}
	for _, w := range warnings {
		if err := recordEvent(ctx, conn, id, types.EventTransitionWarning, actor, nil, nil, strPtr(w), now); err != nil {
			return err
		}
	}
	return nil
}

// validateParent checks the parent exists and that linking would not make
// the parent chain circular.
func (s *FiligreeStore) validateParent(ctx context.Context, q dbtx, id, parentID string) error {
	if parentID == id {
		return fmt.Errorf("%w: issue cannot be its own parent", storage.ErrInvalidInput)
	}
	if err := requireIssue(ctx, q, parentID); err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	// Walk up from the proposed parent; hitting id means a cycle.
	cur := parentID
	for depth := 0; depth < 100; depth++ {
		var next sql.NullString
		err := q.QueryRowContext(ctx, `SELECT parent_id FROM issues WHERE id = ?`, cur).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !next.Valid) {
			return nil
		}
		if err != nil {
			return wrapDBErrorf(err, "walking parent chain from %s", parentID)
		}
		if next.String == id {
			return fmt.Errorf("%w: parent chain through %s loops back to %s", storage.ErrInvalidInput, parentID, id)
		}
		cur = next.String
	}
	return fmt.Errorf("%w: parent chain from %s exceeds depth limit", storage.ErrInvalidInput, parentID)
}
