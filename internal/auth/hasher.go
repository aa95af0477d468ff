package auth

import (
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strings"

	"github.com/willemschots/gatekeeper/internal/krypto"
)

// HashAlgorithm is the algorithm used to hash new passwords.
type HashAlgorithm string

const (
	HashArgon2id HashAlgorithm = "argon2id"
	HashBcrypt   HashAlgorithm = "bcrypt"
)

// ParseHashAlgorithm parses the name of a hash algorithm.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch a := HashAlgorithm(s); a {
	case HashArgon2id, HashBcrypt:
		return a, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", s)
	}
}

// PasswordHash is an encoded password hash. It is either an argon2id hash
// in PHC string format or a bcrypt hash in modular crypt format, the
// prefix tells them apart.
type PasswordHash string

// LogValue implements the slog.LogValuer interface. Hashes are not
// secrets in the strict sense, but there is no reason to log them.
func (h PasswordHash) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// Value implements the driver.Valuer interface.
func (h PasswordHash) Value() (driver.Value, error) {
	return string(h), nil
}

// HasherConfig configures a Hasher.
type HasherConfig struct {
	// Algorithm is used to hash new passwords. Defaults to argon2id.
	Algorithm HashAlgorithm
	// BcryptCost is the cost for new bcrypt hashes. Defaults to krypto.BcryptDefaultCost.
	BcryptCost int
}

// Hasher hashes passwords and verifies passwords against hashes.
//
// New hashes always use the configured algorithm, but hashes of every
// supported algorithm can be verified. This allows switching algorithms
// without invalidating existing passwords.
type Hasher struct {
	cfg HasherConfig
}

// NewHasher creates a new Hasher.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = HashArgon2id
	}

	if _, err := ParseHashAlgorithm(string(cfg.Algorithm)); err != nil {
		return nil, err
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = krypto.BcryptDefaultCost
	}

	if cfg.BcryptCost < krypto.BcryptMinCost || cfg.BcryptCost > krypto.BcryptMaxCost {
		return nil, fmt.Errorf("bcrypt cost %d not in range [%d, %d]", cfg.BcryptCost, krypto.BcryptMinCost, krypto.BcryptMaxCost)
	}

	return &Hasher{cfg: cfg}, nil
}

// Hash hashes the password with a fresh random salt. Hashing the
// same password twice gives different results.
func (h *Hasher) Hash(p Password) (PasswordHash, error) {
	if p.IsZero() {
		return "", ErrInvalidPassword
	}

	switch h.cfg.Algorithm {
	case HashBcrypt:
		hash, err := krypto.HashBcrypt(p.plain, h.cfg.BcryptCost)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidPassword, err)
		}
		return PasswordHash(hash.String()), nil
	default:
		hash, err := krypto.HashArgon2(p.plain)
		if err != nil {
			return "", err
		}
		return PasswordHash(hash.String()), nil
	}
}

// Verify reports whether the password matches the hash. Malformed hashes
// never match.
func (h *Hasher) Verify(p Password, hash PasswordHash) bool {
	if p.IsZero() {
		return false
	}

	switch algorithmOf(hash) {
	case HashArgon2id:
		parsed, err := krypto.ParseArgon2Hash(string(hash))
		if err != nil {
			return false
		}
		return parsed.MatchBytes(p.plain)
	case HashBcrypt:
		parsed, err := krypto.ParseBcryptHash(string(hash))
		if err != nil {
			return false
		}
		return parsed.MatchBytes(p.plain)
	default:
		return false
	}
}

// NeedsRehash reports whether hash was made with a different algorithm or
// different parameters than new hashes are. Malformed hashes need a rehash.
func (h *Hasher) NeedsRehash(hash PasswordHash) bool {
	alg := algorithmOf(hash)
	if alg != h.cfg.Algorithm {
		return true
	}

	switch alg {
	case HashArgon2id:
		parsed, err := krypto.ParseArgon2Hash(string(hash))
		return err != nil || !parsed.HasDefaultParams()
	case HashBcrypt:
		return krypto.BcryptHash(hash).Cost() != h.cfg.BcryptCost
	default:
		return true
	}
}

func algorithmOf(hash PasswordHash) HashAlgorithm {
	switch {
	case strings.HasPrefix(string(hash), "$argon2"):
		return HashArgon2id
	case strings.HasPrefix(string(hash), "$2"):
		return HashBcrypt
	default:
		return ""
	}
}
