// Package scan defines the scan-ingestion request/response contract.
//
// External scanners (linters, security tools, custom analyzers) submit
// results as a single JSON document per run. The store ingests the whole
// request atomically, collapsing repeat observations into existing finding
// rows, and reports counts so callers can tell new findings from
// re-observations of known ones.
package scan

import (
	"fmt"
	"net/http"
	"strings"
)

// Finding is one reported occurrence inside a Request.
type Finding struct {
	Path       string         `json:"path"`
	RuleID     string         `json:"rule_id"`
	Severity   string         `json:"severity"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	LineStart  *int           `json:"line_start,omitempty"`
	LineEnd    *int           `json:"line_end,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Request is a full scanner run. When MarkUnseen is set, open findings
// from the same source that were not re-observed by this run get moved to
// unseen_in_latest.
type Request struct {
	ScanSource string    `json:"scan_source"`
	ScanRunID  string    `json:"scan_run_id,omitempty"`
	Findings   []Finding `json:"findings"`
	MarkUnseen bool      `json:"mark_unseen,omitempty"`
}

// Validate checks the request shape before ingestion.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.ScanSource) == "" {
		return fmt.Errorf("scan request missing scan_source")
	}
	for i, f := range r.Findings {
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("finding %d missing path", i)
		}
		if strings.TrimSpace(f.RuleID) == "" {
			return fmt.Errorf("finding %d (%s) missing rule_id", i, f.Path)
		}
		if strings.TrimSpace(f.Message) == "" {
			return fmt.Errorf("finding %d (%s/%s) missing message", i, f.Path, f.RuleID)
		}
		if f.LineStart != nil && *f.LineStart < 0 {
			return fmt.Errorf("finding %d (%s/%s) has negative line_start", i, f.Path, f.RuleID)
		}
	}
	return nil
}

// Result is the ingestion response.
type Result struct {
	FilesSeen            int      `json:"files_seen"`
	FindingsNew          int      `json:"findings_new"`
	FindingsUpdated      int      `json:"findings_updated"`
	FindingsMarkedUnseen int      `json:"findings_marked_unseen"`
	Warnings             []string `json:"warnings"`

	hadFindings bool
}

// SetHadFindings records whether the ingested request carried any findings.
// An empty run is accepted but acknowledged differently, see StatusCode.
func (r *Result) SetHadFindings(had bool) { r.hadFindings = had }

// StatusCode maps the result onto the ingest API contract: 200 when the
// run carried findings, 202 when it was accepted empty.
func (r *Result) StatusCode() int {
	if r.hadFindings {
		return http.StatusOK
	}
	return http.StatusAccepted
}
