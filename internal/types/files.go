package types

import (
	"path"
	"strings"
	"time"
)

// FileRecord tracks a source file known to the project.
type FileRecord struct {
	ID        int64          `json:"id"`
	Path      string         `json:"path"`
	Language  string         `json:"language,omitempty"`
	FileType  string         `json:"file_type,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NormalizePath canonicalizes a scanner-reported path: forward slashes,
// no leading "./", collapsed separators.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	return p
}

// Severity ranks scan findings.
type Severity string

// Finding severities
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// IsValid checks if the severity value is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// CoerceSeverity maps arbitrary scanner input onto a valid severity.
// Unknown values map to info; the second return is false when coercion
// happened, so callers can surface a warning.
func CoerceSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if s.IsValid() {
		return s, true
	}
	// Common aliases seen from real scanners
	switch s {
	case "error", "blocker":
		return SeverityHigh, true
	case "warning", "warn":
		return SeverityMedium, true
	case "note", "style", "informational":
		return SeverityInfo, true
	}
	return SeverityInfo, false
}

// FindingStatus is the lifecycle state of a scan finding.
type FindingStatus string

// Finding statuses
const (
	FindingOpen          FindingStatus = "open"
	FindingAcknowledged  FindingStatus = "acknowledged"
	FindingFixed         FindingStatus = "fixed"
	FindingFalsePositive FindingStatus = "false_positive"
	FindingUnseen        FindingStatus = "unseen_in_latest"
)

// IsValid checks if the finding status value is valid
func (s FindingStatus) IsValid() bool {
	switch s {
	case FindingOpen, FindingAcknowledged, FindingFixed, FindingFalsePositive, FindingUnseen:
		return true
	}
	return false
}

// ScanFinding is one deduplicated scanner result attached to a file.
// The dedup fingerprint is (file_id, scan_source, rule_id, line_start)
// with a null line coerced to -1.
type ScanFinding struct {
	ID         int64         `json:"id"`
	FileID     int64         `json:"file_id"`
	IssueID    *string       `json:"issue_id,omitempty"`
	ScanSource string        `json:"scan_source"`
	RuleID     string        `json:"rule_id"`
	Severity   Severity      `json:"severity"`
	Status     FindingStatus `json:"status"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
	ScanRunID  string        `json:"scan_run_id,omitempty"`
	LineStart  *int          `json:"line_start,omitempty"`
	LineEnd    *int          `json:"line_end,omitempty"`
	SeenCount  int           `json:"seen_count"`
	FirstSeen  time.Time     `json:"first_seen"`
	UpdatedAt  time.Time     `json:"updated_at"`
	LastSeenAt time.Time     `json:"last_seen_at"`
}

// AssocType classifies a file-issue association.
type AssocType string

// Association types
const (
	AssocBugIn       AssocType = "bug_in"
	AssocTaskFor     AssocType = "task_for"
	AssocScanFinding AssocType = "scan_finding"
	AssocMentionedIn AssocType = "mentioned_in"
)

// IsValid checks if the association type value is valid
func (a AssocType) IsValid() bool {
	switch a {
	case AssocBugIn, AssocTaskFor, AssocScanFinding, AssocMentionedIn:
		return true
	}
	return false
}

// FileAssociation links a file to an issue.
type FileAssociation struct {
	FileID    int64     `json:"file_id"`
	IssueID   string    `json:"issue_id"`
	AssocType AssocType `json:"assoc_type"`
	CreatedAt time.Time `json:"created_at"`
}

// FileEvent is an append-only metadata change entry for a file.
type FileEvent struct {
	ID        int64     `json:"id"`
	FileID    int64     `json:"file_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineEntry is one item of a merged per-file history: file events,
// scan findings, and issue events for associated issues, in time order.
type TimelineEntry struct {
	Kind      string    `json:"kind"` // file_event | finding | issue_event
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	IssueID   string    `json:"issue_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileHotspot ranks a file by open finding weight.
type FileHotspot struct {
	FileID       int64  `json:"file_id"`
	Path         string `json:"path"`
	OpenFindings int    `json:"open_findings"`
	Critical     int    `json:"critical"`
	High         int    `json:"high"`
	Score        int    `json:"score"`
}
