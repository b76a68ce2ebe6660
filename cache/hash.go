package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey hashes a credential value for use as a store key, so raw proxy
// codes and access tokens never appear as keys at rest.
func HashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
