package token

import (
	"crypto/rand"
	"encoding/base64"
)

// New returns an unguessable URL-safe token (32 random bytes).
func New() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
