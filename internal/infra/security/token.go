package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a uniformly random numeric string of the given length
// without a leading zero.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	lower := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	if length == 1 {
		lower = big.NewInt(1)
	}
	span := new(big.Int).Sub(upper, lower)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	return n.Add(n, lower).String(), nil
}

// TokensEqual compares a presented secret with the expected one in constant time.
func TokensEqual(presented, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
