package services

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestClaimsExtract(t *testing.T) {
	extractor := NewClaimsExtractor()

	token := makeIDToken(t, jwt.MapClaims{
		"sub":   "sub-1",
		"email": "user@example.com",
	})
	claims := extractor.Extract(token)
	assert.Equal(t, "sub-1", claims["sub"])
	assert.Equal(t, "user@example.com", claims["email"])
}

func TestClaimsExtract_DegradesToEmpty(t *testing.T) {
	extractor := NewClaimsExtractor()

	assert.Empty(t, extractor.Extract(""))
	assert.Empty(t, extractor.Extract("not-a-jwt"))
	assert.Empty(t, extractor.Extract("a.b"))
}
