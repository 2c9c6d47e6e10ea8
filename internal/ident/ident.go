// Package ident mints the opaque identifiers entries are stored under.
package ident

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Prefixes keep the secret and file identifier spaces disjoint: an id
// minted for one namespace can never resolve against the other.
const (
	SecretPrefix = "sps-"
	FilePrefix   = "spf-"
)

// encodedLen is the length of 16 random bytes in unpadded base64url.
const encodedLen = 22

var bodyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{22}$`)

// New returns a fresh identifier under the given prefix: 128 bits from a
// cryptographically secure source, base64url-encoded. Collisions are
// prevented by construction, not detected. Fails only if the random source
// is unavailable.
func New(prefix string) (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("ident: random source unavailable: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(u[:]), nil
}

// Valid reports whether id is well formed for the given prefix. It rejects
// ids from the other namespace and anything that was never minted here,
// without touching the backing store.
func Valid(id, prefix string) bool {
	if len(id) != len(prefix)+encodedLen || id[:len(prefix)] != prefix {
		return false
	}
	return bodyPattern.MatchString(id[len(prefix):])
}
