package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key builds the cache key for a query of the given shape ("graphql",
// "rest", ...) from its canonical identity.
func Key(shape, identity string) string {
	return shape + ":" + identity
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
