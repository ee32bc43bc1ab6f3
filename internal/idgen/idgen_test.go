package idgen

import (
	"strings"
	"testing"
)

// TestNewID verifies shape, clamping, and collision resistance at width.
func TestNewID(t *testing.T) {
	id, err := NewID("app", 4)
	if err != nil {
		t.Fatalf("NewID failed: %v", err)
	}
	if !strings.HasPrefix(id, "app-") {
		t.Errorf("expected app- prefix, got %s", id)
	}
	suffix := strings.TrimPrefix(id, "app-")
	if len(suffix) != 4 {
		t.Errorf("expected 4 hex digits, got %q", suffix)
	}
	for _, r := range suffix {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("non-hex digit %q in %s", r, id)
		}
	}

	// Below the floor and above the cap get clamped.
	id, err = NewID("app", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.TrimPrefix(id, "app-")) != DefaultLength {
		t.Errorf("expected clamp to %d digits, got %s", DefaultLength, id)
	}
	id, err = NewID("app", 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.TrimPrefix(id, "app-")) != MaxLength {
		t.Errorf("expected clamp to %d digits, got %s", MaxLength, id)
	}

	// Odd widths must not round up the output.
	id, err = NewID("app", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.TrimPrefix(id, "app-")) != 5 {
		t.Errorf("expected 5 digits, got %s", id)
	}
}

// TestNewIDUniqueness samples a batch at full width and expects no repeats.
func TestNewIDUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id, err := NewID("app", MaxLength)
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s after %d draws", id, i)
		}
		seen[id] = true
	}
}

// TestSuggestPrefix covers slug derivation from directory names.
func TestSuggestPrefix(t *testing.T) {
	cases := map[string]string{
		"myproject":       "myproject",
		"My Project":      "my-project",
		"web_app.v2":      "web-app-v2",
		"---":             "fil",
		"":                "fil",
		"  spaced  ":      "spaced",
		"UPPER":           "upper",
		"déjà-vu":         "d-j-vu",
		"trailing-":       "trailing",
		"multi   spaces":  "multi-spaces",
		"2048-game":       "2048-game",
	}
	for in, want := range cases {
		if got := SuggestPrefix(in); got != want {
			t.Errorf("SuggestPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestValidatePrefix covers the accept/reject rules.
func TestValidatePrefix(t *testing.T) {
	for _, ok := range []string{"app", "my-app", "a", "x2", "twenty-char-prefix-x"} {
		if err := ValidatePrefix(ok); err != nil {
			t.Errorf("ValidatePrefix(%q) unexpectedly failed: %v", ok, err)
		}
	}
	bad := map[string]string{
		"":                      "empty",
		"UPPER":                 "lowercase",
		"has space":             "lowercase",
		"-leading":              "hyphen",
		"trailing-":             "hyphen",
		"way-too-long-prefix-over-twenty": "too long",
	}
	for prefix, fragment := range bad {
		err := ValidatePrefix(prefix)
		if err == nil {
			t.Errorf("ValidatePrefix(%q) unexpectedly passed", prefix)
			continue
		}
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("ValidatePrefix(%q): expected error mentioning %q, got %v", prefix, fragment, err)
		}
	}
}
