// Package timeparsing resolves human date expressions for CLI flags.
package timeparsing

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// Parse resolves expressions like "2 weeks ago", "yesterday", or an
// RFC3339 / YYYY-MM-DD literal into a time, relative to now.
func Parse(expr string, now time.Time) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, expr); err == nil {
			return t, nil
		}
	}
	res, err := parser.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time expression %q: %w", expr, err)
	}
	if res == nil {
		return time.Time{}, fmt.Errorf("unrecognized time expression %q", expr)
	}
	return res.Time, nil
}
