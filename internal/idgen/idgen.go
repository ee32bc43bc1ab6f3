// Package idgen generates issue identifiers of the form <prefix>-<hex>.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// DefaultLength is the hex-digit count new ids start at. The store bumps
// the length when collisions persist, so id width adapts to database size.
const DefaultLength = 4

// MaxLength caps id growth; 12 hex digits is 48 bits of entropy.
const MaxLength = 12

// NewID returns a random id with the given prefix and hex-digit length.
func NewID(prefix string, length int) (string, error) {
	if length < DefaultLength {
		length = DefaultLength
	}
	if length > MaxLength {
		length = MaxLength
	}
	// Round up to whole bytes, then truncate the hex string.
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating id entropy: %w", err)
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(buf)[:length]), nil
}
