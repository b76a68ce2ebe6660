package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeS256Challenge(t *testing.T) {
	// Appendix B of RFC 7636.
	challenge := ComputeS256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
}

func TestValidatePKCEChallenge(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := ComputeS256Challenge(verifier)

	assert.True(t, ValidatePKCEChallenge(challenge, PKCEMethodS256, verifier))
	assert.False(t, ValidatePKCEChallenge(challenge, PKCEMethodS256, "wrong-verifier"))

	// Plain compares the verifier itself.
	assert.True(t, ValidatePKCEChallenge("plain-value", PKCEMethodPlain, "plain-value"))
	assert.False(t, ValidatePKCEChallenge("plain-value", PKCEMethodPlain, "other-value"))

	// Unset method defaults to S256.
	assert.True(t, ValidatePKCEChallenge(challenge, "", verifier))

	assert.False(t, ValidatePKCEChallenge("", PKCEMethodS256, verifier))
	assert.False(t, ValidatePKCEChallenge(challenge, PKCEMethodS256, ""))
}
