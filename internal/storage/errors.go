package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/workflow"
)

// Sentinel errors shared by all store implementations. Callers branch with
// errors.Is; the sqlite package wraps these with per-call detail.
var (
	// ErrNotFound indicates the requested issue, file, or event does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyClaimed indicates a claim lost the race: the issue already
	// has an assignee.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrNotClaimable indicates the issue is in a done-category status and
	// cannot be claimed.
	ErrNotClaimable = errors.New("not claimable")

	// ErrCycle indicates adding the dependency would create a cycle.
	ErrCycle = errors.New("dependency cycle")

	// ErrInvalidInput indicates a request that fails validation before
	// touching the database.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDowngrade indicates the database schema version is newer than
	// this binary understands.
	ErrDowngrade = errors.New("database schema is newer than this version")

	// ErrNothingToUndo indicates the issue has no reversible event left.
	ErrNothingToUndo = errors.New("nothing to undo")
)

// TransitionError reports a status change rejected by the workflow
// template. It carries the options valid from the current state so the CLI
// can show the caller where they can actually go.
type TransitionError struct {
	IssueID       string
	IssueType     string
	From          string
	To            string
	MissingFields []string
	Valid         []workflow.TransitionOption
}

func (e *TransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: invalid transition %s -> %s for type %s", e.IssueID, e.From, e.To, e.IssueType)
	if len(e.MissingFields) > 0 {
		fmt.Fprintf(&b, " (missing required fields: %s)", strings.Join(e.MissingFields, ", "))
	}
	if len(e.Valid) > 0 {
		names := make([]string, len(e.Valid))
		for i, opt := range e.Valid {
			names[i] = opt.To
		}
		fmt.Fprintf(&b, "; valid: %s", strings.Join(names, ", "))
	}
	return b.String()
}

// MigrationError reports a failed schema migration with the version range
// being applied when it failed.
type MigrationError struct {
	FromVersion int
	ToVersion   int
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrating schema v%d -> v%d: %v", e.FromVersion, e.ToVersion, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }
