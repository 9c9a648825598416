package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost matches 12 salting rounds.
const DefaultBcryptCost = 12

// PasswordHasher performs one-way password hashing with a fixed work factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a PasswordHasher; a non-positive cost falls back
// to the default work factor.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash produces a salted bcrypt digest of the plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the digest. A malformed digest
// reports false rather than an error; bcrypt's comparison does not
// short-circuit on prefix mismatch.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
