package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filigree-dev/filigree/internal/scan"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// RegisterFile upserts a file record by normalized path, merging any
// provided language, type, and metadata into an existing row.
func (s *FiligreeStore) RegisterFile(ctx context.Context, path, language, fileType string, metadata map[string]any) (*types.FileRecord, error) {
	path = types.NormalizePath(path)
	if path == "" || path == "." {
		return nil, fmt.Errorf("%w: file path must not be empty", storage.ErrInvalidInput)
	}

	var record *types.FileRecord
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		var err error
		record, err = upsertFile(ctx, conn, path, language, fileType, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func upsertFile(ctx context.Context, q dbtx, path, language, fileType string, metadata map[string]any) (*types.FileRecord, error) {
	now := utcNow()
	existing, err := fileByPath(ctx, q, path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		meta, err := marshalFields(metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", storage.ErrInvalidInput, err)
		}
		res, err := q.ExecContext(ctx, `
            INSERT INTO files (path, language, file_type, metadata, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?)`, path, language, fileType, meta, now, now)
		if err != nil {
			return nil, wrapDBErrorf(err, "inserting file %s", path)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, wrapDBErrorf(err, "inserting file %s", path)
		}
		if err := recordFileEvent(ctx, q, id, "registered", path, now); err != nil {
			return nil, err
		}
		return &types.FileRecord{ID: id, Path: path, Language: language, FileType: fileType,
			Metadata: metadata, CreatedAt: now, UpdatedAt: now}, nil
	}

	// Merge new detail into the existing record; only write when
	// something actually changed.
	changed := false
	if language != "" && language != existing.Language {
		existing.Language = language
		changed = true
	}
	if fileType != "" && fileType != existing.FileType {
		existing.FileType = fileType
		changed = true
	}
	if len(metadata) > 0 {
		existing.Metadata = mergeFields(existing.Metadata, metadata)
		changed = true
	}
	if changed {
		meta, err := marshalFields(existing.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", storage.ErrInvalidInput, err)
		}
		if _, err := q.ExecContext(ctx, `
            UPDATE files SET language = ?, file_type = ?, metadata = ?, updated_at = ?
            WHERE id = ?`, existing.Language, existing.FileType, meta, now, existing.ID); err != nil {
			return nil, wrapDBErrorf(err, "updating file %s", path)
		}
		existing.UpdatedAt = now
		if err := recordFileEvent(ctx, q, existing.ID, "updated", path, now); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

func recordFileEvent(ctx context.Context, q dbtx, fileID int64, eventType, detail string, at time.Time) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO file_events (file_id, event_type, detail, created_at)
        VALUES (?, ?, ?, ?)`, fileID, eventType, detail, at)
	return wrapDBErrorf(err, "recording file event %s", eventType)
}

func fileByPath(ctx context.Context, q dbtx, path string) (*types.FileRecord, error) {
	var (
		f    types.FileRecord
		meta string
	)
	err := q.QueryRowContext(ctx, `
        SELECT id, path, language, file_type, metadata, created_at, updated_at
        FROM files WHERE path = ?`, path).Scan(
		&f.ID, &f.Path, &f.Language, &f.FileType, &meta, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, wrapDBErrorf(err, "loading file %s", path)
	}
	f.Metadata, err = unmarshalFields(meta)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", path, err)
	}
	return &f, nil
}

// GetFileByPath loads a file record by its normalized path.
func (s *FiligreeStore) GetFileByPath(ctx context.Context, path string) (*types.FileRecord, error) {
	return fileByPath(ctx, s.db, types.NormalizePath(path))
}

// IngestScanResults processes one scanner run atomically.
//
// Per finding: the file is upserted, then the dedup key
// (file, source, rule, line) decides between inserting a new finding and
// re-observing an existing one. Re-observation bumps seen_count and
// refreshes message/severity/suggestion; a finding that had aged into
// unseen_in_latest comes back as open. With mark_unseen set, open
// findings from the same source not covered by this run's id are moved to
// unseen_in_latest.
func (s *FiligreeStore) IngestScanResults(ctx context.Context, req scan.Request) (*scan.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidInput, err)
	}

	result := &scan.Result{Warnings: []string{}}
	result.SetHadFindings(len(req.Findings) > 0)

	err := s.inTx(ctx, func(conn *sql.Conn) error {
		now := utcNow()
		seenFiles := map[string]int64{}

		for _, f := range req.Findings {
			path := types.NormalizePath(f.Path)
			fileID, ok := seenFiles[path]
			if !ok {
				record, err := upsertFile(ctx, conn, path, "", "", f.Metadata)
				if err != nil {
					return err
				}
				fileID = record.ID
				seenFiles[path] = fileID
				if err := recordFileEvent(ctx, conn, fileID, "scanned",
					req.ScanSource+":"+req.ScanRunID, now); err != nil {
					return err
				}
			}

			severity, clean := types.CoerceSeverity(f.Severity)
			if !clean {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s %s: unknown severity %q coerced to %s", path, f.RuleID, f.Severity, severity))
			}

			lineKey := -1
			if f.LineStart != nil {
				lineKey = *f.LineStart
			}

			var (
				findingID int64
				status    string
			)
			err := conn.QueryRowContext(ctx, `
                SELECT id, status FROM scan_findings
                WHERE file_id = ? AND scan_source = ? AND rule_id = ? AND COALESCE(line_start, -1) = ?`,
				fileID, req.ScanSource, f.RuleID, lineKey).Scan(&findingID, &status)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				_, err := conn.ExecContext(ctx, `
                    INSERT INTO scan_findings
                        (file_id, scan_source, rule_id, severity, status, message, suggestion,
                         scan_run_id, line_start, line_end, seen_count, first_seen, updated_at, last_seen_at)
                    VALUES (?, ?, ?, ?, 'open', ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
					fileID, req.ScanSource, f.RuleID, string(severity), f.Message, f.Suggestion,
					req.ScanRunID, intPtrArg(f.LineStart), intPtrArg(f.LineEnd), now, now, now)
				if err != nil {
					return wrapDBErrorf(err, "inserting finding %s/%s", path, f.RuleID)
				}
				result.FindingsNew++
			case err != nil:
				return wrapDBErrorf(err, "looking up finding %s/%s", path, f.RuleID)
			default:
				newStatus := status
				if status == string(types.FindingUnseen) {
					newStatus = string(types.FindingOpen)
				}
				_, err := conn.ExecContext(ctx, `
                    UPDATE scan_findings SET
                        seen_count = seen_count + 1, status = ?, message = ?, severity = ?,
                        suggestion = ?, scan_run_id = ?, line_end = ?,
                        updated_at = ?, last_seen_at = ?
                    WHERE id = ?`,
					newStatus, f.Message, string(severity), f.Suggestion, req.ScanRunID,
					intPtrArg(f.LineEnd), now, now, findingID)
				if err != nil {
					return wrapDBErrorf(err, "updating finding %s/%s", path, f.RuleID)
				}
				result.FindingsUpdated++
			}
		}
		result.FilesSeen = len(seenFiles)

		if req.MarkUnseen {
			res, err := conn.ExecContext(ctx, `
                UPDATE scan_findings SET status = ?, updated_at = ?
                WHERE scan_source = ? AND scan_run_id != ? AND status = ?`,
				string(types.FindingUnseen), now, req.ScanSource, req.ScanRunID,
				string(types.FindingOpen))
			if err != nil {
				return wrapDBError("marking unseen findings", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return wrapDBError("marking unseen findings", err)
			}
			result.FindingsMarkedUnseen = int(n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyMutation()
	return result, nil
}

func intPtrArg(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// CleanStaleFindings moves unseen_in_latest findings older than the
// cutoff to fixed. An empty scanSource cleans across all sources.
func (s *FiligreeStore) CleanStaleFindings(ctx context.Context, olderThan time.Duration, scanSource string) (int64, error) {
	cutoff := utcNow().Add(-olderThan)
	query := `UPDATE scan_findings SET status = ?, updated_at = ?
              WHERE status = ? AND updated_at < ?`
	args := []any{string(types.FindingFixed), utcNow(), string(types.FindingUnseen), cutoff}
	if scanSource != "" {
		query += " AND scan_source = ?"
		args = append(args, scanSource)
	}

	var cleaned int64
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return wrapDBError("cleaning stale findings", err)
		}
		cleaned, err = res.RowsAffected()
		return wrapDBError("cleaning stale findings", err)
	})
	if err != nil {
		return 0, err
	}
	return cleaned, nil
}

// ListFindings returns findings, optionally narrowed to one file and one
// status, newest observation first.
func (s *FiligreeStore) ListFindings(ctx context.Context, fileID int64, status types.FindingStatus) ([]*types.ScanFinding, error) {
	query := `
        SELECT id, file_id, issue_id, scan_source, rule_id, severity, status, message,
               suggestion, scan_run_id, line_start, line_end, seen_count,
               first_seen, updated_at, last_seen_at
        FROM scan_findings`
	var where []string
	var args []any
	if fileID > 0 {
		where = append(where, "file_id = ?")
		args = append(args, fileID)
	}
	if status != "" {
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: invalid finding status %q", storage.ErrInvalidInput, status)
		}
		where = append(where, "status = ?")
		args = append(args, string(status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_seen_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("querying findings", err)
	}
	var findings []*types.ScanFinding
	if err := collect(rows, func(row rowScanner) error {
		var (
			f         types.ScanFinding
			issueID   sql.NullString
			severity  string
			status    string
			lineStart sql.NullInt64
			lineEnd   sql.NullInt64
		)
		if err := row.Scan(&f.ID, &f.FileID, &issueID, &f.ScanSource, &f.RuleID, &severity,
			&status, &f.Message, &f.Suggestion, &f.ScanRunID, &lineStart, &lineEnd,
			&f.SeenCount, &f.FirstSeen, &f.UpdatedAt, &f.LastSeenAt); err != nil {
			return err
		}
		f.Severity = types.Severity(severity)
		f.Status = types.FindingStatus(status)
		if issueID.Valid {
			f.IssueID = &issueID.String
		}
		if lineStart.Valid {
			v := int(lineStart.Int64)
			f.LineStart = &v
		}
		if lineEnd.Valid {
			v := int(lineEnd.Int64)
			f.LineEnd = &v
		}
		findings = append(findings, &f)
		return nil
	}); err != nil {
		return nil, err
	}
	return findings, nil
}

// AddFileAssociation links a file to an issue. Duplicate links are no-ops.
func (s *FiligreeStore) AddFileAssociation(ctx context.Context, fileID int64, issueID string, assocType types.AssocType) error {
	if !assocType.IsValid() {
		return fmt.Errorf("%w: invalid association type %q", storage.ErrInvalidInput, assocType)
	}
	return s.inTx(ctx, func(conn *sql.Conn) error {
		if err := requireIssue(ctx, conn, issueID); err != nil {
			return err
		}
		var one int
		if err := conn.QueryRowContext(ctx,
			`SELECT 1 FROM files WHERE id = ?`, fileID).Scan(&one); err != nil {
			return wrapDBErrorf(err, "checking file %d", fileID)
		}
		_, err := conn.ExecContext(ctx, `
            INSERT OR IGNORE INTO file_associations (file_id, issue_id, assoc_type, created_at)
            VALUES (?, ?, ?, ?)`, fileID, issueID, string(assocType), utcNow())
		return wrapDBErrorf(err, "associating file %d with %s", fileID, issueID)
	})
}

// GetFileTimeline merges a file's own events, its scan findings, and the
// issue events of associated issues into one chronological stream, newest
// first. eventType narrows to one event type when non-empty.
func (s *FiligreeStore) GetFileTimeline(ctx context.Context, fileID int64, eventType string, limit, offset int) ([]*types.TimelineEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT kind, event_type, detail, issue_id, created_at FROM (
            SELECT 'file_event' AS kind, event_type, detail, '' AS issue_id, created_at
            FROM file_events WHERE file_id = ?
            UNION ALL
            SELECT 'finding' AS kind, 'finding_' || status AS event_type,
                   rule_id || ': ' || message AS detail, COALESCE(issue_id, '') AS issue_id, updated_at AS created_at
            FROM scan_findings WHERE file_id = ?
            UNION ALL
            SELECT 'issue_event' AS kind, e.event_type,
                   COALESCE(e.new_value, COALESCE(e.comment, '')) AS detail, e.issue_id, e.created_at
            FROM events e
            JOIN file_associations fa ON fa.issue_id = e.issue_id
            WHERE fa.file_id = ?
        )
        WHERE (? = '' OR event_type = ?)
        ORDER BY created_at DESC
        LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query,
		fileID, fileID, fileID, eventType, eventType, limit, offset)
	if err != nil {
		return nil, wrapDBErrorf(err, "querying timeline for file %d", fileID)
	}
	var entries []*types.TimelineEntry
	if err := collect(rows, func(row rowScanner) error {
		var e types.TimelineEntry
		if err := row.Scan(&e.Kind, &e.EventType, &e.Detail, &e.IssueID, &e.CreatedAt); err != nil {
			return err
		}
		entries = append(entries, &e)
		return nil
	}); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetFileHotspots ranks files by the weight of their open findings.
func (s *FiligreeStore) GetFileHotspots(ctx context.Context, limit int) ([]*types.FileHotspot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT f.id, f.path,
               COUNT(sf.id),
               SUM(CASE WHEN sf.severity = 'critical' THEN 1 ELSE 0 END),
               SUM(CASE WHEN sf.severity = 'high' THEN 1 ELSE 0 END),
               SUM(CASE sf.severity
                   WHEN 'critical' THEN 10 WHEN 'high' THEN 5
                   WHEN 'medium' THEN 2 ELSE 1 END)
        FROM files f
        JOIN scan_findings sf ON sf.file_id = f.id AND sf.status = 'open'
        GROUP BY f.id
        ORDER BY 6 DESC, f.path LIMIT ?`, limit)
	if err != nil {
		return nil, wrapDBError("querying file hotspots", err)
	}
	var hotspots []*types.FileHotspot
	if err := collect(rows, func(row rowScanner) error {
		var h types.FileHotspot
		if err := row.Scan(&h.FileID, &h.Path, &h.OpenFindings, &h.Critical, &h.High, &h.Score); err != nil {
			return err
		}
		hotspots = append(hotspots, &h)
		return nil
	}); err != nil {
		return nil, err
	}
	return hotspots, nil
}
