package krypto

import (
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Parameters for newly created hashes. These follow the OWASP
// recommendation for argon2id: 46 MiB of memory, one iteration and
// a parallelism of one.
const (
	Argon2Variant     = "argon2id"
	Argon2MemoryKiB   = 47104
	Argon2Iterations  = 1
	Argon2Parallelism = 1

	argon2SaltLen = 16
	argon2KeyLen  = 32

	// Stored hashes are only evaluated within these bounds, anything
	// above them could stall or exhaust the process.
	argon2MaxMemoryKiB   = 1 << 20
	argon2MaxIterations  = 10
	argon2MaxParallelism = 16
	argon2MaxSaltLen     = 64
	argon2MaxKeyLen      = 64
)

// Argon2Hash is an argon2id hash together with the parameters
// that were used to create it.
//
// Its text form is the PHC string format:
//
//	$argon2id$v=19$m=47104,t=1,p=1$<salt>$<hash>
//
// where salt and hash are base64 encoded without padding.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes raw with a fresh random salt.
func HashArgon2(raw []byte) (Argon2Hash, error) {
	if len(raw) == 0 {
		return Argon2Hash{}, fmt.Errorf("%w: nothing to hash", ErrInvalidInput)
	}

	salt, err := genRandomBytes(argon2SaltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	h := Argon2Hash{
		Variant:     Argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   Argon2MemoryKiB,
		Iterations:  Argon2Iterations,
		Parallelism: Argon2Parallelism,
		Salt:        salt,
	}
	h.Hash = argon2.IDKey(raw, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, argon2KeyLen)

	return h, nil
}

// ParseArgon2Hash parses a hash in PHC string format.
func ParseArgon2Hash(s string) (Argon2Hash, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("%w: expected 5 sections in argon2 hash", ErrInvalidInput)
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	if h.Variant != Argon2Variant {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported variant %q", ErrInvalidInput, h.Variant)
	}

	_, err := fmt.Sscanf(parts[2], "v=%d", &h.Version)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: invalid version: %w", ErrInvalidInput, err)
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidInput, h.Version)
	}

	_, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: invalid parameters: %w", ErrInvalidInput, err)
	}

	h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: invalid salt", ErrInvalidInput)
	}

	h.Hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: invalid hash", ErrInvalidInput)
	}

	if !h.paramsInRange() {
		return Argon2Hash{}, fmt.Errorf("%w: parameters out of range", ErrInvalidInput)
	}

	return h, nil
}

// paramsInRange reports whether h can be evaluated by argon2.IDKey
// without panicking or using unbounded time and memory.
func (h Argon2Hash) paramsInRange() bool {
	return h.Iterations >= 1 && h.Iterations <= argon2MaxIterations &&
		h.Parallelism >= 1 && h.Parallelism <= argon2MaxParallelism &&
		h.MemoryKiB <= argon2MaxMemoryKiB &&
		len(h.Salt) >= 1 && len(h.Salt) <= argon2MaxSaltLen &&
		len(h.Hash) >= 1 && len(h.Hash) <= argon2MaxKeyLen
}

// MatchBytes reports whether raw hashes to h. A hash with unusable
// parameters never matches.
func (h Argon2Hash) MatchBytes(raw []byte) bool {
	if h.Variant != Argon2Variant || h.Version != argon2.Version {
		return false
	}

	if !h.paramsInRange() {
		return false
	}

	other := argon2.IDKey(raw, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

// HasDefaultParams reports whether h was created with the parameters
// HashArgon2 currently uses.
func (h Argon2Hash) HasDefaultParams() bool {
	return h.Variant == Argon2Variant &&
		h.Version == argon2.Version &&
		h.MemoryKiB == Argon2MemoryKiB &&
		h.Iterations == Argon2Iterations &&
		h.Parallelism == Argon2Parallelism &&
		len(h.Salt) == argon2SaltLen &&
		len(h.Hash) == argon2KeyLen
}

func (h Argon2Hash) String() string {
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant, h.Version, h.MemoryKiB, h.Iterations, h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}

// Scan implements the sql.Scanner interface.
func (h *Argon2Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into argon2 hash", src)
	}
}

// Value implements the driver.Valuer interface.
func (h Argon2Hash) Value() (driver.Value, error) {
	return h.String(), nil
}
