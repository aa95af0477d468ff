// Package memory provides an in-memory implementation of auth.Store.
//
// Transactions hold an exclusive lock on the store from BeginTx until
// Commit or Rollback and work on a copy of the users, so a rolled back
// transaction leaves no trace.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/errorz"
)

// Store keeps users in a map.
type Store struct {
	mu     sync.Mutex
	users  map[int]auth.User
	lastID int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users: make(map[int]auth.User),
	}
}

// BeginTx starts a new transaction. It blocks until all other
// transactions are done.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()

	return &Tx{
		store:  s,
		users:  maps.Clone(s.users),
		lastID: s.lastID,
	}, nil
}

// FindUser finds a user outside of a transaction.
func (s *Store) FindUser(ctx context.Context, filter auth.UserFilter) (auth.User, error) {
	if err := ctx.Err(); err != nil {
		return auth.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return findUser(s.users, filter)
}

// Tx is a transaction on a Store.
type Tx struct {
	store  *Store
	users  map[int]auth.User
	lastID int
	done   bool
}

func (tx *Tx) Commit() error {
	if tx.done {
		return errorz.ErrTxBadState
	}

	tx.done = true
	tx.store.users = tx.users
	tx.store.lastID = tx.lastID
	tx.store.mu.Unlock()

	return nil
}

func (tx *Tx) Rollback() error {
	if tx.done {
		return errorz.ErrTxBadState
	}

	tx.done = true
	tx.store.mu.Unlock()

	return nil
}

// CreateUser stores a new user and sets its ID.
func (tx *Tx) CreateUser(u *auth.User) error {
	if tx.done {
		return errorz.ErrTxBadState
	}

	if u.Email == "" || u.PasswordHash == "" {
		return fmt.Errorf("user without email or password hash: %w", errorz.ErrConstraintViolated)
	}

	tx.lastID++
	u.ID = tx.lastID
	tx.users[u.ID] = *u

	return nil
}

// UpdateUser applies upd to the user with the given ID.
func (tx *Tx) UpdateUser(id int, upd auth.UserUpdate) error {
	if tx.done {
		return errorz.ErrTxBadState
	}

	u, ok := tx.users[id]
	if !ok {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	upd.Apply(&u)
	tx.users[id] = u

	return nil
}

// FindUser finds a user within the transaction.
func (tx *Tx) FindUser(filter auth.UserFilter) (auth.User, error) {
	if tx.done {
		return auth.User{}, errorz.ErrTxBadState
	}

	return findUser(tx.users, filter)
}

func findUser(users map[int]auth.User, filter auth.UserFilter) (auth.User, error) {
	if filter.IsEmpty() {
		return auth.User{}, auth.ErrEmptyFilter
	}

	for _, id := range slices.Sorted(maps.Keys(users)) {
		if filter.Match(users[id]) {
			return users[id], nil
		}
	}

	return auth.User{}, fmt.Errorf("user not found: %w", errorz.ErrNotFound)
}
