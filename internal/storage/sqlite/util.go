package sqlite

import (
	"encoding/json"
	"fmt"
	"time"
)

// nullStr maps empty strings to NULL for optional text columns.
func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// strPtr returns a pointer to s, for event old/new values.
func strPtr(s string) *string { return &s }

// nullTime maps a nil time pointer to NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// marshalFields encodes a field bag for the fields column. Nil encodes as
// the empty object so the column stays NOT NULL.
func marshalFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields decodes the fields column; empty input means no fields.
func unmarshalFields(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// mergeFields overlays updates onto base without mutating either.
// A nil value in updates deletes the key.
func mergeFields(base, updates map[string]any) map[string]any {
	if len(updates) == 0 {
		return base
	}
	merged := make(map[string]any, len(base)+len(updates))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range updates {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// utcNow returns the current time in UTC truncated to the second, the
// granularity every timestamp column uses.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
