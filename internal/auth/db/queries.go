package db

import (
	"database/sql"
	"fmt"

	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/db"
	"github.com/willemschots/gatekeeper/internal/email"
	"github.com/willemschots/gatekeeper/internal/errorz"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryRowFunc func(query string, params ...any) *sql.Row

const userColumns = `id, email, password_hash, session_id, reset_token, created_at, updated_at`

func insertUser(q *db.Query, qf queryRowFunc, u *auth.User) error {
	q.Unsafe(`INSERT INTO users (email, password_hash, session_id, reset_token, created_at, updated_at) VALUES (`)
	q.Params(string(u.Email), string(u.PasswordHash), nullable(u.SessionID), nullable(u.ResetToken), u.CreatedAt, u.UpdatedAt)
	q.Unsafe(`) RETURNING id`)

	s, params := q.Get()

	var id int
	err := qf(s, params...).Scan(&id)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	u.ID = id

	return nil
}

func updateUser(q *db.Query, ef execFunc, id int, upd auth.UserUpdate) error {
	q.Unsafe(`UPDATE users SET updated_at = `)
	q.Param(upd.UpdatedAt)

	if upd.PasswordHash != nil {
		q.Unsafe(`, password_hash = `)
		q.Param(string(*upd.PasswordHash))
	}

	if upd.SessionID != nil {
		q.Unsafe(`, session_id = `)
		q.Param(nullable(*upd.SessionID))
	}

	if upd.ResetToken != nil {
		q.Unsafe(`, reset_token = `)
		q.Param(nullable(*upd.ResetToken))
	}

	q.Unsafe(` WHERE id = `)
	q.Param(id)

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectUser(q *db.Query, qf queryRowFunc, f auth.UserFilter) (auth.User, error) {
	if f.IsEmpty() {
		return auth.User{}, auth.ErrEmptyFilter
	}

	q.Unsafe(`SELECT ` + userColumns + ` FROM users WHERE 1=1`)

	if f.ID != 0 {
		q.Unsafe(` AND id = `)
		q.Param(f.ID)
	}

	if f.Email != "" {
		q.Unsafe(` AND email = `)
		q.Param(string(f.Email))
	}

	if !f.SessionID.IsZero() {
		q.Unsafe(` AND session_id = `)
		q.Param(string(f.SessionID))
	}

	if !f.ResetToken.IsZero() {
		q.Unsafe(` AND reset_token = `)
		q.Param(string(f.ResetToken))
	}

	q.Unsafe(` ORDER BY id ASC LIMIT 1`)

	s, params := q.Get()

	var (
		u        auth.User
		rawEmail string
		rawHash  string
	)

	err := qf(s, params...).Scan(&u.ID, &rawEmail, &rawHash, &u.SessionID, &u.ResetToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return auth.User{}, errorz.MapDBErr(err)
	}

	u.Email, err = email.ParseAddress(rawEmail)
	if err != nil {
		return auth.User{}, err
	}

	u.PasswordHash = auth.PasswordHash(rawHash)

	return u, nil
}

// lockEmail blocks until no other transaction holds the lock for addr.
// The lock is released when the transaction ends. Postgres only.
func lockEmail(q *db.Query, ef execFunc, addr email.Address) error {
	q.Unsafe(`SELECT pg_advisory_xact_lock(hashtext(`)
	q.Param(string(addr))
	q.Unsafe(`))`)

	s, params := q.Get()

	_, err := ef(s, params...)
	return errorz.MapDBErr(err)
}

// nullable maps the empty token to NULL. Drivers differ in whether they
// consult driver.Valuer, so the conversion is done here.
func nullable(t auth.Token) any {
	if t.IsZero() {
		return nil
	}
	return string(t)
}
