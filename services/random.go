package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const opaqueTokenBytes = 32 // 256 bits of entropy

// generateOpaqueToken returns a URL-safe random string with 256 bits of
// entropy, used for proxy codes, downstream access tokens and PKCE verifiers.
func generateOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
