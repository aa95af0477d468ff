package auth_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/willemschots/gatekeeper/internal/auth"
)

func Test_ParsePassword(t *testing.T) {
	okParsing := map[string]string{
		"short":       "pw1",
		"single char": "x",
		"passphrase":  "correct horse battery staple",
		"non ascii":   "wachtwoord€",
		"max length":  strings.Repeat("a", 512),
	}

	for name, raw := range okParsing {
		t.Run("ok, "+name, func(t *testing.T) {
			pwd, err := auth.ParsePassword(raw)
			if err != nil {
				t.Fatalf("failed to parse password: %v", err)
			}

			if pwd.IsZero() {
				t.Errorf("expected parsed password not to be zero")
			}
		})
	}

	failParsing := map[string]string{
		"empty":    "",
		"too long": strings.Repeat("a", 513),
	}

	for name, raw := range failParsing {
		t.Run("fail, "+name, func(t *testing.T) {
			_, err := auth.ParsePassword(raw)
			if !errors.Is(err, auth.ErrInvalidPassword) {
				t.Errorf("got %v, want %v (via errors.Is)", err, auth.ErrInvalidPassword)
			}
		})
	}
}

func Test_Password_UnmarshalText(t *testing.T) {
	t.Run("ok, unmarshal", func(t *testing.T) {
		var pwd auth.Password
		err := pwd.UnmarshalText([]byte("pw1"))
		if err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}

		if pwd.IsZero() {
			t.Errorf("expected password not to be zero")
		}
	})

	t.Run("fail, empty", func(t *testing.T) {
		var pwd auth.Password
		err := pwd.UnmarshalText([]byte{})
		if !errors.Is(err, auth.ErrInvalidPassword) {
			t.Errorf("got %v, want %v (via errors.Is)", err, auth.ErrInvalidPassword)
		}
	})
}

func Test_Password_PreventExposure(t *testing.T) {
	raw := "12345678"
	pwd, err := auth.ParsePassword(raw)
	if err != nil {
		t.Fatalf("failed to parse password: %v", err)
	}

	assert := func(t *testing.T, s string) {
		t.Helper()
		if s != auth.SecretMarker {
			t.Errorf("wanted\n%s\ngot\n%s\n", auth.SecretMarker, s)
		}
	}

	t.Run("ok, fmt", func(t *testing.T) {
		assert(t, fmt.Sprintf("%s", pwd)) //nolint:gosimple
		assert(t, fmt.Sprintf("%d", pwd))
		assert(t, fmt.Sprintf("%v", pwd))
		assert(t, fmt.Sprintf("%#v", pwd))
	})

	t.Run("ok, marshal as text", func(t *testing.T) {
		b, err := pwd.MarshalText()
		if err != nil {
			t.Fatalf("failed to marshal as text: %v", err)
		}

		assert(t, string(b))
	})

	t.Run("ok, log output", func(t *testing.T) {
		var buf bytes.Buffer

		logger := slog.New(slog.NewTextHandler(&buf, nil))

		logger.Info("attempting to log a password", "password", pwd)

		s := buf.String()
		if !strings.Contains(s, auth.SecretMarker) {
			t.Errorf("log output\n%s\ndoes not contain secret marker: %s", s, auth.SecretMarker)
		}

		if strings.Contains(s, raw) {
			t.Errorf("log output\n%s\ncontains raw password: %s", s, raw)
		}
	})
}
