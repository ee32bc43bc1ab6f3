package timeparsing

import (
	"strings"
	"testing"
	"time"
)

// TestParseLiterals verifies RFC3339 and date-only literals bypass the
// natural-language parser.
func TestParseLiterals(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	got, err := Parse("2026-01-15T10:30:00Z", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !got.Equal(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %s", got)
	}

	got, err = Parse("2026-01-15", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.January || got.Day() != 15 {
		t.Errorf("unexpected date %s", got)
	}
}

// TestParseRelative verifies relative expressions resolve against the
// supplied anchor.
func TestParseRelative(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	got, err := Parse("2 weeks ago", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := now.Add(-14 * 24 * time.Hour)
	if diff := got.Sub(want); diff < -time.Hour || diff > time.Hour {
		t.Errorf("expected roughly %s, got %s", want, got)
	}

	got, err = Parse("yesterday", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.After(now) || now.Sub(got) > 48*time.Hour {
		t.Errorf("yesterday resolved to %s (now %s)", got, now)
	}
}

// TestParseUnrecognized verifies garbage is an error naming the input.
func TestParseUnrecognized(t *testing.T) {
	_, err := Parse("flurble", time.Now())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "flurble") {
		t.Errorf("error should quote the expression, got %v", err)
	}
}
