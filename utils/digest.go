package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the lowercase sha-256 hex digest of content. Digests are
// the engine's content pointers: entities store the 64-char digest, the blob
// store holds the bytes.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ValidDigest reports whether s is a well-formed sha-256 hex digest.
func ValidDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
