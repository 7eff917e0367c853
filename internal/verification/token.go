package verification

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes of entropy gives a 43 character URL-safe token.
const tokenBytes = 32

// NewToken returns an unguessable URL-safe token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
