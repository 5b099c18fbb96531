package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLen is the length of Short ids, 64 bits of the digest.
const shortLen = 16

// Hash returns the hex SHA-256 of s.
func Hash(s string) string {
	return SumBytes([]byte(s))
}

// SumBytes returns the hex SHA-256 of b.
func SumBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Short returns a shortened content id for b, usable as a storage key.
func Short(b []byte) string {
	return SumBytes(b)[:shortLen]
}
