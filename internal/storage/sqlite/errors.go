package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/storage"
)

// wrapDBError adds operation context and converts sql.ErrNoRows into the
// shared not-found sentinel so callers branch with errors.Is.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return wrapDBError(fmt.Sprintf(format, args...), err)
}

// errorsIsAny reports whether err matches any of the given sentinels.
func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// isMissingFTS reports whether err means the FTS mirror does not exist
// (older file, user deleted the virtual table). Only this condition may
// downgrade search to LIKE; every other error propagates.
func isMissingFTS(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") && strings.Contains(msg, "issues_fts")
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
