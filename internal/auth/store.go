package auth

import (
	"context"
	"errors"
	"time"

	"github.com/willemschots/gatekeeper/internal/email"
)

// ErrEmptyFilter is returned when a user is looked up without any criteria.
var ErrEmptyFilter = errors.New("empty user filter")

// UserFilter is used to find a user.
// The found user must match all the provided fields.
// If a field is empty, it's ignored.
type UserFilter struct {
	ID         int
	Email      email.Address
	SessionID  Token
	ResetToken Token
}

// IsEmpty reports whether no field of the filter is set.
func (f UserFilter) IsEmpty() bool {
	return f.ID == 0 && f.Email == "" && f.SessionID.IsZero() && f.ResetToken.IsZero()
}

// Match reports whether u matches all set fields of the filter.
func (f UserFilter) Match(u User) bool {
	if f.ID != 0 && f.ID != u.ID {
		return false
	}

	if f.Email != "" && f.Email != u.Email {
		return false
	}

	if !f.SessionID.IsZero() && f.SessionID != u.SessionID {
		return false
	}

	if !f.ResetToken.IsZero() && f.ResetToken != u.ResetToken {
		return false
	}

	return true
}

// UserUpdate is a partial update of a user. Nil fields are left as is,
// pointers to the empty token clear the field.
type UserUpdate struct {
	PasswordHash *PasswordHash
	SessionID    *Token
	ResetToken   *Token
	UpdatedAt    time.Time
}

// Apply applies the update to u.
func (upd UserUpdate) Apply(u *User) {
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}

	if upd.SessionID != nil {
		u.SessionID = *upd.SessionID
	}

	if upd.ResetToken != nil {
		u.ResetToken = *upd.ResetToken
	}

	u.UpdatedAt = upd.UpdatedAt
}

// Store provides access to the user store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindUser finds a single user outside of a transaction.
	// It returns errorz.ErrNotFound if no user matches the filter.
	// If more than one user matches, the one with the lowest ID is returned.
	FindUser(ctx context.Context, filter UserFilter) (User, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Find methods,
// the transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	// CreateUser inserts the user and sets its ID.
	CreateUser(u *User) error
	// UpdateUser applies upd to the user with the given ID in one write.
	// It returns errorz.ErrNotFound if there is no such user.
	UpdateUser(id int, upd UserUpdate) error
	// FindUser behaves like Store.FindUser, but within the transaction.
	// After a lookup by email, other transactions looking up the same email
	// wait until this transaction ends.
	FindUser(filter UserFilter) (User, error)
}
