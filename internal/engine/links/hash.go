package links

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// HashLength is the hex length of a webhook hash (20 random bytes).
const HashLength = 40

const maxHashAttempts = 5

var ErrHashExhausted = errors.New("failed to generate unique webhook hash")

type HashAvailabilityChecker interface {
	ExistsByHash(ctx context.Context, hash string) (bool, error)
}

// GenerateHash returns a fresh opaque hash that no stored link uses yet.
func GenerateHash(ctx context.Context, checker HashAvailabilityChecker) (string, error) {
	for i := 0; i < maxHashAttempts; i++ {
		hash, err := randomHash()
		if err != nil {
			return "", err
		}

		exists, err := checker.ExistsByHash(ctx, hash)
		if err != nil {
			return "", err
		}
		if !exists {
			return hash, nil
		}
	}
	return "", ErrHashExhausted
}

func randomHash() (string, error) {
	b := make([]byte, HashLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsValidHash reports whether s has the shape of a generated hash. Lookups
// use it to skip the store for bogus paths.
func IsValidHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
