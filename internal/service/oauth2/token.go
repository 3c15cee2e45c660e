package oauth2

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	tokenLength   = 20
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateToken returns 20 random alphanumeric characters
// Collisions are not checked, the store rejects duplicates on insert
func GenerateToken() (string, error) {
	b := make([]byte, tokenLength)
	alphabetLen := big.NewInt(int64(len(tokenAlphabet)))

	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("error while generating token. Err: %w", err)
		}
		b[i] = tokenAlphabet[n.Int64()]
	}

	return string(b), nil
}
