package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/willemschots/gatekeeper/internal/krypto"
)

const (
	// We put a generous upper cap on password length, so people can use
	// passphrases but we don't allow MBs of data as a password.
	maxPasswordBytes = 512

	// SecretMarker is a string we can look for in logs to see if the app
	// is accidentally exposing secrets.
	SecretMarker = krypto.SecretMarker
)

var ErrInvalidPassword = errors.New("invalid password")

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// The only thing a Password is good for is handing it to a Hasher.
type Password struct {
	plain []byte
}

// ParsePassword creates a new Password from a plaintext string.
// It errors if the password is empty or too long.
func ParsePassword(pwd string) (Password, error) {
	if len(pwd) == 0 || len(pwd) > maxPasswordBytes {
		return Password{}, ErrInvalidPassword
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

// IsZero reports whether the password was never parsed.
func (p Password) IsZero() bool {
	return len(p.plain) == 0
}

func (p Password) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (p Password) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// UnmarshalText parses text as a password, so passwords can be
// decoded from forms.
func (p *Password) UnmarshalText(text []byte) error {
	pwd, err := ParsePassword(string(text))
	if err != nil {
		return err
	}

	*p = pwd
	return nil
}

// LogValue implements the slog.LogValuer interface.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
