package auth

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/willemschots/gatekeeper/internal/krypto"
)

var ErrInvalidToken = errors.New("invalid token")

// Token is an opaque token identifying a session or a password reset.
// The only meaningful operation on a token is comparing it for equality.
// The empty token means "no token".
type Token string

// IsZero reports whether t is the empty token.
func (t Token) IsZero() bool {
	return t == ""
}

// LogValue implements the slog.LogValuer interface. Tokens grant access
// to accounts and must never end up in logs.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// Value implements the driver.Valuer interface. The empty token is stored as NULL.
func (t Token) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return string(t), nil
}

// Scan implements the sql.Scanner interface. NULL is scanned as the empty token.
func (t *Token) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = ""
	case string:
		*t = Token(v)
	case []byte:
		*t = Token(v)
	default:
		return fmt.Errorf("cannot scan %T into token", src)
	}
	return nil
}

// UnmarshalText allows tokens to be decoded from forms.
func (t *Token) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return ErrInvalidToken
	}

	*t = Token(text)
	return nil
}

// TokenGenerator generates new unguessable tokens.
type TokenGenerator interface {
	NewToken() (Token, error)
}

// TokenFormat is the textual form of generated tokens.
type TokenFormat string

const (
	// TokenFormatHex generates 256 bit random tokens encoded as hex.
	TokenFormatHex TokenFormat = "hex"
	// TokenFormatUUID generates version 4 UUIDs (122 random bits).
	TokenFormatUUID TokenFormat = "uuid"
)

// NewTokenGenerator returns a generator for the given format.
func NewTokenGenerator(format TokenFormat) (TokenGenerator, error) {
	switch format {
	case TokenFormatHex, "":
		return HexTokens{}, nil
	case TokenFormatUUID:
		return UUIDTokens{}, nil
	default:
		return nil, fmt.Errorf("unknown token format %q", format)
	}
}

// HexTokens generates hex encoded random tokens.
type HexTokens struct{}

func (HexTokens) NewToken() (Token, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return "", err
	}
	return Token(tok.String()), nil
}

// UUIDTokens generates random UUIDs.
type UUIDTokens struct{}

func (UUIDTokens) NewToken() (Token, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return Token(id.String()), nil
}
