package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash generates a SHA-256 hash of the input string
func Hash(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// Fingerprint hashes the parts joined by "|", e.g. a viewer IP and a review slug.
func Fingerprint(parts ...string) string {
	return Hash(strings.Join(parts, "|"))
}
