// Package runid names synthesis runs with time-ordered identifiers: a
// UUIDv7 rendered as 26 characters of Crockford base32, so that run ids sort
// by creation time.
package runid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Len is the length of an encoded id.
const Len = 26

// New returns a fresh run id.
func New() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return Encode(u), nil
}

// Encode renders u as 26 base32 digits. The 128 bits are read as one
// big-endian number with two leading zero bits.
func Encode(u uuid.UUID) string {
	var out [Len]byte
	for i := range Len {
		// digit i covers bits [5i-2, 5i+3) of the 128-bit value
		var v uint8
		for b := 5*i - 2; b < 5*i+3; b++ {
			v <<= 1
			if b >= 0 && u[b/8]&(0x80>>(b%8)) != 0 {
				v |= 1
			}
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Decode parses an id produced by Encode.
func Decode(id string) (uuid.UUID, error) {
	var u uuid.UUID
	if len(id) != Len {
		return u, fmt.Errorf("run id must be %d characters, got %d", Len, len(id))
	}
	if id[0] > '7' {
		return u, fmt.Errorf("run id must start with 0-7, got %c", id[0])
	}
	for i := range Len {
		v := strings.IndexByte(alphabet, id[i])
		if v < 0 {
			return u, fmt.Errorf("invalid character %q at position %d", id[i], i)
		}
		for k := range 5 {
			b := 5*i - 2 + k
			if b >= 0 && v&(0x10>>k) != 0 {
				u[b/8] |= 0x80 >> (b % 8)
			}
		}
	}
	return u, nil
}
