package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex SHA-256 of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenFingerprint identifies a token in logs and listings without
// revealing it: "sha256:" plus the first 12 hex digits of its hash.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	return "sha256:" + HashToken(token)[:12]
}
