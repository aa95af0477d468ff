package email

import (
	"errors"
	"log/slog"
	"net/mail"
	"strings"
)

// hiddenLocalPart replaces the part before the @ when an address is logged.
const hiddenLocalPart = "***"

// ErrInvalidEmail indicates an email address is not valid.
var ErrInvalidEmail = errors.New("invalid email address")

// Address is an email address, it identifies a user.
type Address string

// ParseAddress parses the given string and checks if it's shaped like an email address.
// It returns an error if the input is not a valid email address.
// Note that this doesn't guarantee the email address actually exists, it only checks the format.
func ParseAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return Address(""), ErrInvalidEmail
	}

	// mail.ParseAddress accepts addresses with names and comments:
	// "Alice <alice@example.com>(comment)".
	//
	// We only want to accept inputs that consist of the address part.
	if addr.Address != trimmed {
		return Address(""), ErrInvalidEmail
	}

	return Address(addr.Address), nil
}

// Domain returns the part after the last @.
func (a Address) Domain() string {
	i := strings.LastIndexByte(string(a), '@')
	if i < 0 {
		return ""
	}
	return string(a)[i+1:]
}

// LogValue only reveals the domain of the address, the local part
// identifies a person.
func (a Address) LogValue() slog.Value {
	if a == "" {
		return slog.StringValue("")
	}
	return slog.StringValue(hiddenLocalPart + "@" + a.Domain())
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}
