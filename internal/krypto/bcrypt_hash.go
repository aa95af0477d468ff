package krypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptDefaultCost is used when no cost is configured.
	BcryptDefaultCost = bcrypt.DefaultCost
	BcryptMinCost     = bcrypt.MinCost
	// BcryptMaxCost is lower than bcrypt.MaxCost, stored hashes with a
	// higher cost take minutes to hours to verify and are rejected.
	BcryptMaxCost = 16

	// bcrypt only considers the first 72 bytes of its input, we refuse
	// anything longer instead of silently truncating.
	bcryptMaxInput = 72
)

// BcryptHash is a hash in the modular crypt format produced by bcrypt,
// for example $2a$10$<salt and hash>.
type BcryptHash []byte

// HashBcrypt hashes raw using bcrypt with the given cost.
func HashBcrypt(raw []byte, cost int) (BcryptHash, error) {
	if len(raw) == 0 || len(raw) > bcryptMaxInput {
		return nil, fmt.Errorf("%w: bcrypt input must be between 1 and %d bytes", ErrInvalidInput, bcryptMaxInput)
	}

	if cost < BcryptMinCost || cost > BcryptMaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range", ErrInvalidInput, cost)
	}

	h, err := bcrypt.GenerateFromPassword(raw, cost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate bcrypt hash: %w", err)
	}

	return BcryptHash(h), nil
}

// ParseBcryptHash checks s is a well formed bcrypt hash.
func ParseBcryptHash(s string) (BcryptHash, error) {
	cost, err := bcrypt.Cost([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if cost > BcryptMaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range", ErrInvalidInput, cost)
	}

	return BcryptHash(s), nil
}

// MatchBytes reports whether raw hashes to h.
func (h BcryptHash) MatchBytes(raw []byte) bool {
	if cost := h.Cost(); cost < BcryptMinCost || cost > BcryptMaxCost {
		return false
	}
	return bcrypt.CompareHashAndPassword(h, raw) == nil
}

// Cost returns the cost h was created with, or 0 if h is malformed.
func (h BcryptHash) Cost() int {
	cost, err := bcrypt.Cost(h)
	if err != nil {
		return 0
	}
	return cost
}

func (h BcryptHash) String() string {
	return string(h)
}
