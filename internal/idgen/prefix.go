package idgen

import (
	"fmt"
	"strings"
)

// SuggestPrefix derives an issue prefix from a directory name: lowered,
// non-alphanumerics collapsed to hyphens, trailing hyphens stripped.
// Falls back to "fil" when nothing usable remains.
func SuggestPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	prefix := strings.Trim(b.String(), "-")
	if prefix == "" {
		return "fil"
	}
	return prefix
}

// ValidatePrefix rejects prefixes that would produce ambiguous or
// unparseable ids.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}
	if len(prefix) > 20 {
		return fmt.Errorf("prefix too long (max 20 characters)")
	}
	if strings.HasPrefix(prefix, "-") || strings.HasSuffix(prefix, "-") {
		return fmt.Errorf("prefix cannot start or end with a hyphen")
	}
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return fmt.Errorf("prefix may only contain lowercase letters, digits, and hyphens (got %q)", r)
		}
	}
	return nil
}
