package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateToken returns a URL-safe random string carrying n bytes of entropy.
// Account tokens use n=32; uniqueness is enforced by the database and the
// caller retries on the (vanishingly rare) collision.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
