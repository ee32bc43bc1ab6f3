// Package utils holds small shared helpers with no project dependencies.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// WriteFileAtomic writes data to path by writing a unique temp file in the
// same directory and renaming it over the target. Rename within one
// directory is atomic on POSIX filesystems, so readers never observe a
// partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// Best effort cleanup on any failure path
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting temp file mode: %w", err)
	}
	if err := RenameWithRetry(tmpPath, path, 3, 100*time.Millisecond); err != nil {
		return err
	}
	return nil
}

// RenameWithRetry performs an atomic file rename with retry logic for
// Windows, where renames can fail with "Access is denied" while another
// process holds a handle on the target.
func RenameWithRetry(oldPath, newPath string, maxRetries int, initialDelay time.Duration) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := os.Rename(oldPath, newPath)
		if err == nil {
			return nil
		}
		lastErr = err

		// On non-Windows, don't retry - the error is likely permanent
		if runtime.GOOS != "windows" {
			break
		}
		if attempt < maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("rename failed after %d attempt(s): %w", maxRetries+1, lastErr)
}
