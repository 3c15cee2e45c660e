package oauth2

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Hashes the configured login password once and compares submitted ones against it
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Bcrypt over sha256 of the password, so passwords longer than 72 bytes still count
// Zero Cost means bcrypt.DefaultCost
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
}
