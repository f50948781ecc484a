package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the production hashing cost
const DefaultBcryptCost = 12

// PasswordHasher hashes and verifies salted passwords
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: DefaultBcryptCost}
}

// NewPasswordHasherWithCost is used by tests to keep hashing fast
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
