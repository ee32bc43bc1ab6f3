// Package types defines core data structures for the filigree issue tracker.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Category is the coarse status bucket derived from a type's state declaration.
type Category string

// Status categories
const (
	CategoryOpen Category = "open"
	CategoryWIP  Category = "wip"
	CategoryDone Category = "done"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryOpen, CategoryWIP, CategoryDone:
		return true
	}
	return false
}

// Issue represents a trackable work item.
//
// Status is a free-form state name drawn from the issue type's workflow
// template. Fields holds type-specific values keyed by field name; the
// workflow registry's field schemas are the source of truth for validation.
type Issue struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Status      string         `json:"status,omitempty"`
	Priority    int            `json:"priority"` // No omitempty: 0 is valid (P0/critical)
	IssueType   string         `json:"issue_type,omitempty"`
	ParentID    *string        `json:"parent_id,omitempty"`
	Assignee    string         `json:"assignee,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`

	// Populated for export/import
	Labels       []string      `json:"labels,omitempty"`
	Dependencies []*Dependency `json:"dependencies,omitempty"`
	Comments     []*Comment    `json:"comments,omitempty"`
	Events       []*Event      `json:"events,omitempty"`

	// Computed on read, never stored
	StatusCategory Category `json:"status_category,omitempty"`
	BlockedBy      []string `json:"blocked_by,omitempty"` // open-category blockers only
	Blocks         []string `json:"blocks,omitempty"`     // all forward edges, for audit
	Children       []string `json:"children,omitempty"`
	IsReady        bool     `json:"is_ready,omitempty"`
}

// Validate checks if the issue has valid field values.
// Status membership in the type's state set is enforced by the workflow
// registry at write time, not here.
func (i *Issue) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if i.Priority < 0 || i.Priority > 4 {
		return fmt.Errorf("priority must be between 0 and 4 (got %d)", i.Priority)
	}
	if i.IssueType == "" {
		return fmt.Errorf("issue type is required")
	}
	// closed_at invariant: set if and only if the status category is done
	if i.StatusCategory == CategoryDone && i.ClosedAt == nil {
		return fmt.Errorf("done issues must have closed_at timestamp")
	}
	if i.StatusCategory != "" && i.StatusCategory != CategoryDone && i.ClosedAt != nil {
		return fmt.Errorf("non-done issues cannot have closed_at timestamp")
	}
	return nil
}

// SetDefaults applies default values for fields omitted during JSONL import.
func (i *Issue) SetDefaults() {
	if i.IssueType == "" {
		i.IssueType = "task"
	}
	if i.Status == "" {
		i.Status = "open"
	}
}

// IssueUpdate carries a partial update. Nil pointers mean "leave unchanged".
type IssueUpdate struct {
	Title       *string
	Description *string
	Notes       *string
	Status      *string
	Priority    *int
	Assignee    *string
	ParentID    *string        // set a new parent
	ClearParent bool           // remove the parent link
	Fields      map[string]any // merged into the existing field bag
}

// IsEmpty reports whether the update changes nothing.
func (u *IssueUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Notes == nil &&
		u.Status == nil && u.Priority == nil && u.Assignee == nil &&
		u.ParentID == nil && !u.ClearParent && len(u.Fields) == 0
}

// Dependency represents a directed blocker edge between issues.
// issue_id depends on depends_on_id; the default kind is "blocks".
type Dependency struct {
	IssueID     string    `json:"issue_id"`
	DependsOnID string    `json:"depends_on_id"`
	Kind        string    `json:"kind,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DepKindBlocks is the default dependency kind.
const DepKindBlocks = "blocks"

// Label represents a tag on an issue
type Label struct {
	IssueID string `json:"issue_id"`
	Label   string `json:"label"`
}

// Comment represents a comment on an issue
type Comment struct {
	ID        int64     `json:"id"`
	IssueID   string    `json:"issue_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// IssueFilter is used to filter issue queries
type IssueFilter struct {
	Status    *string
	IssueType *string
	Priority  *int
	ParentID  *string
	Assignee  *string
	Label     *string
	Limit     int
	Offset    int
}

// WorkFilter is used to filter ready work queries
type WorkFilter struct {
	Type        string
	PriorityMin *int
	PriorityMax *int
	Assignee    *string
	Unassigned  bool
	Limit       int
}

// Statistics provides aggregate metrics over the store
type Statistics struct {
	TotalIssues      int     `json:"total_issues"`
	OpenIssues       int     `json:"open_issues"`
	InProgressIssues int     `json:"in_progress_issues"`
	ClosedIssues     int     `json:"closed_issues"`
	BlockedIssues    int     `json:"blocked_issues"`
	ReadyIssues      int     `json:"ready_issues"`
	AverageLeadTime  float64 `json:"average_lead_time_hours"`
}

// BlockedIssue extends Issue with blocking information
type BlockedIssue struct {
	Issue
	BlockedByCount int      `json:"blocked_by_count"`
	BlockedByIDs   []string `json:"blocked_by_ids"`
}

// EpicProgress reports child completion for a parent issue.
type EpicProgress struct {
	Epic           *Issue `json:"epic"`
	TotalChildren  int    `json:"total_children"`
	ClosedChildren int    `json:"closed_children"`
}

// BatchError captures a per-item failure from a batch operation.
type BatchError struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// BatchResult is the outcome of a batch operation: the ids that succeeded
// and a structured error per id that failed.
type BatchResult struct {
	Succeeded []string     `json:"succeeded"`
	Errors    []BatchError `json:"errors"`
}
