// Package sha256 digests fetched pages for snapshot naming.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements article.Hasher.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex SHA-256 digest of data.
func (Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
