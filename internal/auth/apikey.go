// server/internal/auth/apikey.go
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const apiKeyCost = 12

// HashAPIKey returns a bcrypt hash suitable for PHARMACY_API_KEY.
func HashAPIKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), apiKeyCost)
	return string(bytes), err
}

// APIKey checks the x-api-key header of pharmacy replies. The configured value is either the
// plaintext key or its bcrypt hash.
type APIKey struct {
	configured string
	hashed     bool
}

func NewAPIKey(configured string) *APIKey {
	return &APIKey{configured: configured, hashed: strings.HasPrefix(configured, "$2")}
}

// Match reports whether provided is the key. An unset key matches nothing.
func (k *APIKey) Match(provided string) bool {
	if k.configured == "" || provided == "" {
		return false
	}
	if k.hashed {
		return bcrypt.CompareHashAndPassword([]byte(k.configured), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(k.configured), []byte(provided)) == 1
}
