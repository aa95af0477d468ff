// Package authtest contains a test suite that every auth.Store
// implementation is expected to pass.
package authtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/email"
	"github.com/willemschots/gatekeeper/internal/errorz"
)

const testHash = auth.PasswordHash("$argon2id$v=19$m=64,t=1,p=1$c29tZXNhbHQ$ZVrRXqxlLcWfcXCnMyv0m4Rpvh/bnCi7")

// RunStoreTests runs the store test suite. newStore should return an
// empty store that is cleaned up when the test ends.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) auth.Store) {
	t.Run("ok, create and find user", func(t *testing.T) {
		store := newStore(t)

		user := TestUser(t, "alice@example.com")

		inTx(t, store, func(tx auth.Tx) error {
			return tx.CreateUser(&user)
		})

		if user.ID == 0 {
			t.Fatalf("expected store to assign an ID")
		}

		filters := map[string]auth.UserFilter{
			"by id":           {ID: user.ID},
			"by email":        {Email: user.Email},
			"by id and email": {ID: user.ID, Email: user.Email},
		}

		for name, filter := range filters {
			t.Run(name, func(t *testing.T) {
				got, err := store.FindUser(context.Background(), filter)
				if err != nil {
					t.Fatalf("failed to find user: %v", err)
				}

				AssertUser(t, got, user)
			})
		}
	})

	t.Run("ok, concurrent find or create by email creates once", func(t *testing.T) {
		store := newStore(t)

		const n = 8

		var wg sync.WaitGroup
		results := make(chan error, n)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- findOrCreate(store, "alice@example.com")
			}()
		}

		wg.Wait()
		close(results)

		created := 0
		for err := range results {
			switch {
			case err == nil:
				created++
			case errors.Is(err, errExists):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if created != 1 {
			t.Fatalf("got %d users created, want 1", created)
		}
	})

	t.Run("ok, ids are unique", func(t *testing.T) {
		store := newStore(t)

		u1 := TestUser(t, "alice@example.com")
		u2 := TestUser(t, "bob@example.com")

		inTx(t, store, func(tx auth.Tx) error {
			if err := tx.CreateUser(&u1); err != nil {
				return err
			}
			return tx.CreateUser(&u2)
		})

		if u1.ID == u2.ID {
			t.Fatalf("expected different IDs, got %d twice", u1.ID)
		}
	})

	t.Run("ok, duplicate emails are allowed by the store", func(t *testing.T) {
		store := newStore(t)

		u1 := TestUser(t, "alice@example.com")
		u2 := TestUser(t, "alice@example.com")

		inTx(t, store, func(tx auth.Tx) error {
			if err := tx.CreateUser(&u1); err != nil {
				return err
			}
			return tx.CreateUser(&u2)
		})

		// The user with the lowest ID is returned.
		got, err := store.FindUser(context.Background(), auth.UserFilter{Email: u1.Email})
		if err != nil {
			t.Fatalf("failed to find user: %v", err)
		}

		if got.ID != min(u1.ID, u2.ID) {
			t.Errorf("got user %d, want %d", got.ID, min(u1.ID, u2.ID))
		}
	})

	t.Run("ok, set and clear tokens", func(t *testing.T) {
		store := newStore(t)

		user := TestUser(t, "alice@example.com")
		inTx(t, store, func(tx auth.Tx) error {
			return tx.CreateUser(&user)
		})

		session := auth.Token("session-1")
		reset := auth.Token("reset-1")
		later := user.UpdatedAt.Add(time.Minute)

		inTx(t, store, func(tx auth.Tx) error {
			return tx.UpdateUser(user.ID, auth.UserUpdate{
				SessionID:  &session,
				ResetToken: &reset,
				UpdatedAt:  later,
			})
		})

		want := user
		want.SessionID = session
		want.ResetToken = reset
		want.UpdatedAt = later

		for name, filter := range map[string]auth.UserFilter{
			"by session":     {SessionID: session},
			"by reset token": {ResetToken: reset},
		} {
			t.Run(name, func(t *testing.T) {
				got, err := store.FindUser(context.Background(), filter)
				if err != nil {
					t.Fatalf("failed to find user: %v", err)
				}

				AssertUser(t, got, want)
			})
		}

		// Clear the session only, the reset token is left alone.
		inTx(t, store, func(tx auth.Tx) error {
			return tx.UpdateUser(user.ID, auth.UserUpdate{
				SessionID: ptr(auth.Token("")),
				UpdatedAt: later,
			})
		})

		want.SessionID = ""

		got, err := store.FindUser(context.Background(), auth.UserFilter{ID: user.ID})
		if err != nil {
			t.Fatalf("failed to find user: %v", err)
		}

		AssertUser(t, got, want)

		_, err = store.FindUser(context.Background(), auth.UserFilter{SessionID: session})
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Errorf("got %v, want %v (via errors.Is)", err, errorz.ErrNotFound)
		}
	})

	t.Run("ok, replace password hash and clear reset token in one update", func(t *testing.T) {
		store := newStore(t)

		user := TestUser(t, "alice@example.com")
		user.ResetToken = "reset-1"
		inTx(t, store, func(tx auth.Tx) error {
			return tx.CreateUser(&user)
		})

		newHash := auth.PasswordHash("$2a$04$abcdefghijklmnopqrstuu5Kq5H3cIu9EpXmMf/nq1ZVAdkFv1j7W")
		inTx(t, store, func(tx auth.Tx) error {
			return tx.UpdateUser(user.ID, auth.UserUpdate{
				PasswordHash: &newHash,
				ResetToken:   ptr(auth.Token("")),
				UpdatedAt:    user.UpdatedAt,
			})
		})

		want := user
		want.PasswordHash = newHash
		want.ResetToken = ""

		got, err := store.FindUser(context.Background(), auth.UserFilter{ID: user.ID})
		if err != nil {
			t.Fatalf("failed to find user: %v", err)
		}

		AssertUser(t, got, want)
	})

	t.Run("ok, rollback discards changes", func(t *testing.T) {
		store := newStore(t)

		user := TestUser(t, "alice@example.com")

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		err = tx.CreateUser(&user)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		// Visible within the transaction.
		_, err = tx.FindUser(auth.UserFilter{Email: user.Email})
		if err != nil {
			t.Fatalf("failed to find user in tx: %v", err)
		}

		err = tx.Rollback()
		if err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		_, err = store.FindUser(context.Background(), auth.UserFilter{Email: user.Email})
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Errorf("got %v, want %v (via errors.Is)", err, errorz.ErrNotFound)
		}
	})

	t.Run("fail, find unknown user", func(t *testing.T) {
		store := newStore(t)

		filters := map[string]auth.UserFilter{
			"by id":          {ID: 42},
			"by email":       {Email: "nobody@example.com"},
			"by session":     {SessionID: "unknown"},
			"by reset token": {ResetToken: "unknown"},
		}

		for name, filter := range filters {
			t.Run(name, func(t *testing.T) {
				_, err := store.FindUser(context.Background(), filter)
				if !errors.Is(err, errorz.ErrNotFound) {
					t.Errorf("got %v, want %v (via errors.Is)", err, errorz.ErrNotFound)
				}
			})
		}
	})

	t.Run("fail, find with empty filter", func(t *testing.T) {
		store := newStore(t)

		_, err := store.FindUser(context.Background(), auth.UserFilter{})
		if !errors.Is(err, auth.ErrEmptyFilter) {
			t.Errorf("got %v, want %v (via errors.Is)", err, auth.ErrEmptyFilter)
		}
	})

	t.Run("fail, update unknown user", func(t *testing.T) {
		store := newStore(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		err = tx.UpdateUser(42, auth.UserUpdate{SessionID: ptr(auth.Token("abc"))})
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Errorf("got %v, want %v (via errors.Is)", err, errorz.ErrNotFound)
		}

		err = tx.Rollback()
		if err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}
	})

	t.Run("fail, user without email", func(t *testing.T) {
		store := newStore(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		user := TestUser(t, "alice@example.com")
		user.Email = ""

		err = tx.CreateUser(&user)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Errorf("got %v, want %v (via errors.Is)", err, errorz.ErrConstraintViolated)
		}

		err = tx.Rollback()
		if err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}
	})

	t.Run("fail, commit twice", func(t *testing.T) {
		store := newStore(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		err = tx.Commit()
		if err != nil {
			t.Fatalf("failed to commit: %v", err)
		}

		err = tx.Commit()
		if !errors.Is(err, errorz.ErrTxBadState) {
			t.Errorf("got %v, want %v (via errors.Is)", err, errorz.ErrTxBadState)
		}
	})
}

// TestUser returns a user that is ready to be created.
func TestUser(t *testing.T, addr string) auth.User {
	t.Helper()

	parsed, err := email.ParseAddress(addr)
	if err != nil {
		t.Fatalf("failed to parse email: %v", err)
	}

	ts := time.Date(2024, 3, 20, 14, 56, 0, 0, time.UTC)

	return auth.User{
		Email:        parsed,
		PasswordHash: testHash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

// AssertUser compares two users, timestamps are compared using time.Equal.
func AssertUser(t *testing.T, got, want auth.User) {
	t.Helper()

	if got.ID != want.ID ||
		got.Email != want.Email ||
		got.PasswordHash != want.PasswordHash ||
		got.SessionID != want.SessionID ||
		got.ResetToken != want.ResetToken ||
		!got.CreatedAt.Equal(want.CreatedAt) ||
		!got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
	}
}

func inTx(t *testing.T, store auth.Store, f func(tx auth.Tx) error) {
	t.Helper()

	tx, err := store.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}

	err = f(tx)
	if err != nil {
		_ = tx.Rollback()
		t.Fatalf("failed in tx: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		t.Fatalf("failed to commit tx: %v", err)
	}
}

var errExists = errors.New("user exists")

// findOrCreate creates a user unless one with the email exists, the way
// registration does. It returns errExists if the user was found.
func findOrCreate(store auth.Store, addr email.Address) error {
	tx, err := store.BeginTx(context.Background())
	if err != nil {
		return err
	}

	_, err = tx.FindUser(auth.UserFilter{Email: addr})
	switch {
	case err == nil:
		err = errExists
	case errors.Is(err, errorz.ErrNotFound):
		// Give other transactions a chance to interleave.
		time.Sleep(5 * time.Millisecond)

		u := auth.User{
			Email:        addr,
			PasswordHash: testHash,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		err = tx.CreateUser(&u)
		if err == nil {
			return tx.Commit()
		}
	}

	_ = tx.Rollback()
	return err
}

func ptr[T any](v T) *T {
	return &v
}
