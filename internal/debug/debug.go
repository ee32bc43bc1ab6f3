// Package debug provides env-gated diagnostic logging.
//
// Output goes to stderr when FILIGREE_DEBUG is set or verbose mode is on.
// When FILIGREE_LOG_FILE is set, output is additionally appended to a
// size-rotated log file.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	enabled     = os.Getenv("FILIGREE_DEBUG") != ""
	verboseMode = false
	quietMode   = false

	logMutex sync.Mutex
	fileSink io.Writer
)

func init() {
	if path := os.Getenv("FILIGREE_LOG_FILE"); path != "" {
		fileSink = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
}

// Enabled reports whether debug output is active.
func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// Logf writes a diagnostic line when debug output is active. The file
// sink, when configured, receives the line regardless of the gate.
func Logf(format string, args ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if fileSink != nil {
		fmt.Fprintf(fileSink, format, args...)
	}
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Warnf always writes to stderr unless quiet mode is on.
func Warnf(format string, args ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if fileSink != nil {
		fmt.Fprintf(fileSink, format, args...)
	}
	if !quietMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
