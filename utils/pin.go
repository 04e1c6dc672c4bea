package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GeneratePIN returns a random 6-digit PIN for API authentication.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
