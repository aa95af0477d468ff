package krypto_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/willemschots/gatekeeper/internal/krypto"
)

func Test_Token(t *testing.T) {
	t.Run("ok, generate and parse", func(t *testing.T) {
		tok, err := krypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		s := tok.String()
		if len(s) != krypto.TokenLen*2 {
			t.Fatalf("got token of length %d, want %d", len(s), krypto.TokenLen*2)
		}

		parsed, err := krypto.ParseToken(s)
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}

		if !parsed.Equal(tok) {
			t.Errorf("expected parsed token to equal generated token")
		}
	})

	t.Run("ok, tokens are unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			tok, err := krypto.GenerateToken()
			if err != nil {
				t.Fatalf("failed to generate token: %v", err)
			}

			if _, ok := seen[tok.String()]; ok {
				t.Fatalf("duplicate token after %d generations", i)
			}
			seen[tok.String()] = struct{}{}
		}
	})

	for name, raw := range map[string]string{
		"fail, empty":     "",
		"fail, too short": "abcd",
		"fail, not hex":   strings.Repeat("z", krypto.TokenLen*2),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseToken(raw)
			if !errors.Is(err, krypto.ErrInvalidToken) {
				t.Errorf("expected %v, but got %v (via errors.Is)", krypto.ErrInvalidToken, err)
			}
		})
	}

	t.Run("ok, log output is redacted", func(t *testing.T) {
		tok, err := krypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		logger.Info("logging a token", "token", tok)

		if strings.Contains(buf.String(), tok.String()) {
			t.Errorf("log output\n%s\ncontains raw token", buf.String())
		}

		if !strings.Contains(buf.String(), krypto.SecretMarker) {
			t.Errorf("log output\n%s\ndoes not contain secret marker", buf.String())
		}
	})
}
