package auth

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint identifies a token in logs without leaking it.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:12]
}
