package krypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
)

// SecretMarker is a string we can look for in logs to see if the app
// is accidentally exposing secrets.
const SecretMarker = "<!SECRET_REDACTED!>"

// ErrInvalidInput is returned when input can't be hashed or parsed.
var ErrInvalidInput = errors.New("invalid input")

// Secret is arbitrary sensitive data that needs to be passed
// around but not exposed. Things like database DSNs or other credentials.
type Secret struct {
	value []byte
}

// NewSecret creates a new secret.
func NewSecret(raw string) Secret {
	return Secret{
		value: []byte(raw),
	}
}

func (k Secret) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (k Secret) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// LogValue implements the slog.LogValuer interface.
func (k Secret) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// IsEmpty reports whether the secret holds no data.
func (k Secret) IsEmpty() bool {
	return len(k.value) == 0
}

// SecretValue returns the secret as a byte slice. This is provided
// as an escape hatch for cases where the secret needs to be provided
// to third party packages or libraries.
func (k Secret) SecretValue() []byte {
	return k.value
}

func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
