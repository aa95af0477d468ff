package db

import (
	"database/sql"

	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/db"
	"github.com/willemschots/gatekeeper/internal/errorz"
)

type Tx struct {
	tx    *sql.Tx
	store *Store
}

func (t *Tx) Commit() error {
	return errorz.MapDBErr(t.tx.Commit())
}

func (t *Tx) Rollback() error {
	return errorz.MapDBErr(t.tx.Rollback())
}

// CreateUser creates a user in the database.
// It sets the users ID when successful.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(t.store.newQuery(), t.tx.QueryRow, u)
}

// UpdateUser applies the update to the user in the database.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) UpdateUser(id int, upd auth.UserUpdate) error {
	return updateUser(t.store.newQuery(), t.tx.Exec, id, upd)
}

// FindUser queries for a user based on the provided filter.
// It returns errorz.ErrNotFound if no user is found.
//
// On postgres a lookup by email first takes a transaction scoped advisory
// lock on that email, so concurrent transactions for the same email run
// one after the other. SQLite transactions are already serialized.
func (t *Tx) FindUser(filter auth.UserFilter) (auth.User, error) {
	if t.store.dialect == db.DialectPostgres && filter.Email != "" {
		err := lockEmail(t.store.newQuery(), t.tx.Exec, filter.Email)
		if err != nil {
			return auth.User{}, err
		}
	}

	return selectUser(t.store.newQuery(), t.tx.QueryRow, filter)
}
