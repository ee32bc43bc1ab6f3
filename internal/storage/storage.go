// Package storage provides shared types for the issue store.
//
// The concrete implementation lives in the sqlite sub-package. This
// package holds the interface and error kinds referenced by both the
// implementation and its consumers (cmd/filigree, the summary writer).
package storage

import (
	"context"
	"io"
	"time"

	"github.com/filigree-dev/filigree/internal/scan"
	"github.com/filigree-dev/filigree/internal/types"
)

// Store is the interface satisfied by *sqlite.FiligreeStore.
// Consumers depend on this interface rather than on the concrete type so
// that alternative implementations (mocks, proxies) can be substituted.
type Store interface {
	// Issue CRUD
	CreateIssue(ctx context.Context, issue *types.Issue, actor string) error
	GetIssue(ctx context.Context, id string) (*types.Issue, error)
	UpdateIssue(ctx context.Context, id string, upd types.IssueUpdate, actor string) error
	CloseIssue(ctx context.Context, id, status string, fields map[string]any, reason, actor string) error
	ReopenIssue(ctx context.Context, id, actor string) error
	ListIssues(ctx context.Context, filter types.IssueFilter) ([]*types.Issue, error)
	SearchIssues(ctx context.Context, query string, filter types.IssueFilter) ([]*types.Issue, error)

	// Claiming
	ClaimIssue(ctx context.Context, id, assignee string) error
	ClaimNext(ctx context.Context, assignee string, filter types.WorkFilter) (*types.Issue, error)
	ReleaseIssue(ctx context.Context, id, actor string) error

	// Batch operations
	BatchUpdate(ctx context.Context, ids []string, upd types.IssueUpdate, actor string) (*types.BatchResult, error)
	BatchClose(ctx context.Context, ids []string, reason, actor string) (*types.BatchResult, error)
	BatchAddLabel(ctx context.Context, ids []string, label, actor string) (*types.BatchResult, error)
	BatchAddComment(ctx context.Context, ids []string, text, actor string) (*types.BatchResult, error)

	// Dependencies and readiness
	AddDependency(ctx context.Context, issueID, dependsOnID, kind, actor string) error
	RemoveDependency(ctx context.Context, issueID, dependsOnID, actor string) (bool, error)
	GetReadyWork(ctx context.Context, filter types.WorkFilter) ([]*types.Issue, error)
	GetBlockedIssues(ctx context.Context) ([]*types.BlockedIssue, error)
	GetCriticalPath(ctx context.Context) ([]*types.Issue, error)
	CreatePlan(ctx context.Context, plan types.PlanSpec, actor string) (*types.PlanResult, error)

	// Comments and labels
	AddComment(ctx context.Context, issueID, author, text string) (*types.Comment, error)
	GetComments(ctx context.Context, issueID string) ([]*types.Comment, error)
	AddLabel(ctx context.Context, issueID, label, actor string) error
	RemoveLabel(ctx context.Context, issueID, label, actor string) error

	// Event log, undo, archive
	GetEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error)
	GetRecentEvents(ctx context.Context, limit int) ([]*types.Event, error)
	UndoLast(ctx context.Context, issueID, actor string) (*types.Event, error)
	ArchiveClosed(ctx context.Context, olderThan time.Duration, actor string) ([]string, error)
	CompactEvents(ctx context.Context, keepRecent int) (int64, error)

	// Files and scan findings
	RegisterFile(ctx context.Context, path, language, fileType string, metadata map[string]any) (*types.FileRecord, error)
	GetFileByPath(ctx context.Context, path string) (*types.FileRecord, error)
	IngestScanResults(ctx context.Context, req scan.Request) (*scan.Result, error)
	CleanStaleFindings(ctx context.Context, olderThan time.Duration, scanSource string) (int64, error)
	ListFindings(ctx context.Context, fileID int64, status types.FindingStatus) ([]*types.ScanFinding, error)
	AddFileAssociation(ctx context.Context, fileID int64, issueID string, assocType types.AssocType) error
	GetFileTimeline(ctx context.Context, fileID int64, eventType string, limit, offset int) ([]*types.TimelineEntry, error)
	GetFileHotspots(ctx context.Context, limit int) ([]*types.FileHotspot, error)

	// Analytics
	GetStatistics(ctx context.Context) (*types.Statistics, error)
	GetStaleIssues(ctx context.Context, idle time.Duration, limit int) ([]*types.Issue, error)
	GetEpicProgress(ctx context.Context, limit int) ([]*types.EpicProgress, error)

	// Export / import
	ExportJSONL(ctx context.Context, w io.Writer) (int, error)
	ImportJSONL(ctx context.Context, r io.Reader, merge bool, actor string) (int, error)

	Close() error
}
