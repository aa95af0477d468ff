package krypto

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
)

// TokenLen is the number of random bytes in a Token.
const TokenLen = 32

var ErrInvalidToken = errors.New("invalid token")

// Token is 256 bits of randomness. Tokens identify sessions and
// password resets, so they should never end up in logs.
type Token [TokenLen]byte

// GenerateToken creates a new random token.
func GenerateToken() (Token, error) {
	b, err := genRandomBytes(TokenLen)
	if err != nil {
		return Token{}, err
	}
	return Token(b), nil
}

// ParseToken parses a hex encoded token.
func ParseToken(raw string) (Token, error) {
	if len(raw) != TokenLen*2 {
		return Token{}, ErrInvalidToken
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return Token{}, ErrInvalidToken
	}

	return Token(b), nil
}

// String returns the hex encoding of the token. Unlike passwords, tokens
// need to be handed to clients, so this is allowed.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// Equal compares two tokens in constant time.
func (t Token) Equal(other Token) bool {
	return subtle.ConstantTimeCompare(t[:], other[:]) == 1
}

// LogValue implements the slog.LogValuer interface.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
