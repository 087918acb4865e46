package pkg

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// DefaultCodeAlphabet leaves out characters that are easy to confuse (0/O, 1/I).
const DefaultCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var ErrInvalidCodeFormat = errors.New("invalid join code alphabet or length")

// GenerateMatchID - generates a unique identifier for a match.
func GenerateMatchID() string {
	return uuid.NewString()
}

// GenerateJoinCode - generates a human-enterable code of length characters drawn from alphabet.
func GenerateJoinCode(alphabet string, length int) (string, error) {
	if length <= 0 || len(alphabet) < 2 {
		return "", ErrInvalidCodeFormat
	}

	limit := big.NewInt(int64(len(alphabet)))

	var code strings.Builder
	code.Grow(length)

	for range length {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}

		code.WriteByte(alphabet[n.Int64()])
	}

	return code.String(), nil
}

// NormalizeJoinCode - codes are case-insensitive for the people typing them.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
