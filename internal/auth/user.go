package auth

import (
	"time"

	"github.com/willemschots/gatekeeper/internal/email"
)

// User contains the data for a user.
//
// SessionID is set while the user has an active session and ResetToken
// while a password reset is in progress. Both are independent of each other.
type User struct {
	ID           int
	Email        email.Address
	PasswordHash PasswordHash
	SessionID    Token
	ResetToken   Token
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials are the email and password a user authenticates with.
type Credentials struct {
	Email    email.Address `schema:"email,required"`
	Password Password      `schema:"password,required"`
}
