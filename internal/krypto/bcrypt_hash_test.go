package krypto_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/willemschots/gatekeeper/internal/krypto"
)

func Test_BcryptHash_HashBcryptAndMatch(t *testing.T) {
	t.Run("ok, hash and match", func(t *testing.T) {
		raw := []byte("pw1")

		h1, err := krypto.HashBcrypt(raw, krypto.BcryptMinCost)
		if err != nil {
			t.Fatalf("failed to hash bcrypt: %v", err)
		}

		h2, err := krypto.HashBcrypt(raw, krypto.BcryptMinCost)
		if err != nil {
			t.Fatalf("failed to hash bcrypt: %v", err)
		}

		if h1.String() == h2.String() {
			t.Errorf("expected different hashes because of the random salt")
		}

		if !h1.MatchBytes(raw) || !h2.MatchBytes(raw) {
			t.Errorf("expected raw value to match both hashes")
		}

		if h1.MatchBytes([]byte("pw2")) {
			t.Errorf("expected different value not to match")
		}

		if h1.Cost() != krypto.BcryptMinCost {
			t.Errorf("got cost %d, want %d", h1.Cost(), krypto.BcryptMinCost)
		}
	})

	failTests := map[string]struct {
		raw  []byte
		cost int
	}{
		"fail, empty":         {raw: []byte{}, cost: krypto.BcryptMinCost},
		"fail, too long":      {raw: []byte(strings.Repeat("a", 73)), cost: krypto.BcryptMinCost},
		"fail, cost too low":  {raw: []byte("pw1"), cost: krypto.BcryptMinCost - 1},
		"fail, cost too high": {raw: []byte("pw1"), cost: krypto.BcryptMaxCost + 1},
	}

	for name, tc := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.HashBcrypt(tc.raw, tc.cost)
			if !errors.Is(err, krypto.ErrInvalidInput) {
				t.Fatalf("expected %v, but got %v (via errors.Is)", krypto.ErrInvalidInput, err)
			}
		})
	}
}

func Test_BcryptHash_ParseBcryptHash(t *testing.T) {
	t.Run("ok, parse generated hash", func(t *testing.T) {
		h, err := krypto.HashBcrypt([]byte("pw1"), krypto.BcryptMinCost)
		if err != nil {
			t.Fatalf("failed to hash bcrypt: %v", err)
		}

		parsed, err := krypto.ParseBcryptHash(h.String())
		if err != nil {
			t.Fatalf("failed to parse bcrypt hash: %v", err)
		}

		if !parsed.MatchBytes([]byte("pw1")) {
			t.Errorf("expected parsed hash to match")
		}
	})

	for name, txt := range map[string]string{
		"fail, empty":       "",
		"fail, argon2 hash": "$argon2id$v=19$m=47104,t=1,p=1$vP9U4C5jsOzFQLj0gvUkYw$YLrSb2dGfcVohlm8syynqHs6/NHxXS9rt/t6TjL7pi0",
		"fail, garbage":     "not a hash",
		"fail, cost 31":     "$2a$31$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseBcryptHash(txt)
			if !errors.Is(err, krypto.ErrInvalidInput) {
				t.Errorf("expected %v, but got %v (via errors.Is)", krypto.ErrInvalidInput, err)
			}
		})
	}

	t.Run("ok, malformed hash never matches", func(t *testing.T) {
		if krypto.BcryptHash("garbage").MatchBytes([]byte("garbage")) {
			t.Errorf("expected malformed hash not to match")
		}

		if krypto.BcryptHash("garbage").Cost() != 0 {
			t.Errorf("expected malformed hash to have cost 0")
		}

		if krypto.BcryptHash("$2a$31$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy").MatchBytes([]byte("pw1")) {
			t.Errorf("expected hash with a cost above the maximum not to match")
		}
	})
}
