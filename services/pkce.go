package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE challenge methods per RFC 7636.
const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// ComputeS256Challenge derives the S256 code challenge for a verifier.
func ComputeS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ValidatePKCEChallenge verifies a code verifier against a stored challenge.
// An empty or unknown method is treated as S256, the only method the proxy
// advertises besides plain.
func ValidatePKCEChallenge(challenge, method, verifier string) bool {
	if challenge == "" || verifier == "" {
		return false
	}

	switch method {
	case PKCEMethodPlain:
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) == 1
	default:
		computed := ComputeS256Challenge(verifier)
		return subtle.ConstantTimeCompare([]byte(challenge), []byte(computed)) == 1
	}
}
