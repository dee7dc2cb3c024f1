package auth

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the original back office used
const DefaultBcryptCost = 10

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// bcrypt hash. This is the only credential scheme accepted at login; legacy
// encodings must be migrated explicitly (see MigrateLegacyPasswords).
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsBcryptHash reports whether a stored credential looks like a bcrypt hash
func IsBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// RecoverLegacyPassword recovers the plaintext from a legacy credential so
// it can be re-hashed during migration. Early accounts stored passwords as
// plaintext or base64; both are recovered here. Returns false for a value
// that is already a proper hash.
func RecoverLegacyPassword(stored string) (string, bool) {
	if IsBcryptHash(stored) {
		return "", false
	}
	if decoded, err := base64.StdEncoding.DecodeString(stored); err == nil && utf8.Valid(decoded) {
		return string(decoded), true
	}
	return stored, true
}
