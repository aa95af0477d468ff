package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/willemschots/gatekeeper/internal/email"
	"github.com/willemschots/gatekeeper/internal/errorz"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidResetToken = errors.New("invalid reset token")
)

// Service is the type that provides the main rules for
// authentication. It holds no state of its own, everything
// lives in the Store.
//
// Some lookups treat a missing user as an error and others as a normal
// outcome, the doc comment of each method states which.
type Service struct {
	store  Store
	hasher *Hasher
	tokens TokenGenerator
	logger *slog.Logger

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash PasswordHash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

// NewService creates a new Service.
func NewService(s Store, h *Hasher, tokens TokenGenerator, logger *slog.Logger) (*Service, error) {
	raw, err := tokens.NewToken()
	if err != nil {
		return nil, err
	}

	pwd, err := ParsePassword(string(raw))
	if err != nil {
		return nil, err
	}

	hash, err := h.Hash(pwd)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		hasher:         h,
		tokens:         tokens,
		logger:         logger,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// RegisterUser creates a new user with the provided credentials.
// It returns ErrUserAlreadyExists if a user with the same email exists.
func (s *Service) RegisterUser(ctx context.Context, c Credentials) (User, error) {
	// Hashing is slow, do it before we start the transaction.
	pwdHash, err := s.hasher.Hash(c.Password)
	if err != nil {
		return User{}, err
	}

	now := s.NowFunc()
	user := User{
		Email:        c.Email,
		PasswordHash: pwdHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		_, txErr := tx.FindUser(UserFilter{Email: c.Email})
		switch {
		case txErr == nil:
			return ErrUserAlreadyExists
		case !errors.Is(txErr, errorz.ErrNotFound):
			return txErr
		}

		return tx.CreateUser(&user)
	})
	if err != nil {
		return User{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "userID", user.ID)

	return user, nil
}

// ValidLogin reports whether the credentials belong to a user. An unknown
// email and a wrong password are indistinguishable to the caller.
// ValidLogin does not create a session, use CreateSession for that.
func (s *Service) ValidLogin(ctx context.Context, c Credentials) (bool, error) {
	user, err := s.findByEmail(ctx, c.Email)
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			// Even if no user is found we compare to a hash to prevent timing differences
			// that could result in user enumeration attacks.
			_ = s.hasher.Verify(c.Password, s.comparisonHash)
			return false, nil
		}
		return false, err
	}

	return s.hasher.Verify(c.Password, user.PasswordHash), nil
}

// CreateSession starts a new session for the user with the given email
// and returns its token. Any previous session of the user is replaced.
// If no such user exists, ok is false and no error is returned.
func (s *Service) CreateSession(ctx context.Context, addr email.Address) (Token, bool, error) {
	if addr == "" {
		return "", false, nil
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return "", false, err
	}

	var userID int
	err = s.inTx(ctx, func(tx Tx) error {
		user, txErr := tx.FindUser(UserFilter{Email: addr})
		if txErr != nil {
			return txErr
		}

		userID = user.ID
		return tx.UpdateUser(user.ID, UserUpdate{
			SessionID: &token,
			UpdatedAt: s.NowFunc(),
		})
	})
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	s.logger.InfoContext(ctx, "session created", "userID", userID)

	return token, true, nil
}

// UserFromSession returns the user the session belongs to. If the session
// is empty or unknown, ok is false and no error is returned.
func (s *Service) UserFromSession(ctx context.Context, sessionID Token) (User, bool, error) {
	if sessionID.IsZero() {
		return User{}, false, nil
	}

	user, err := s.store.FindUser(ctx, UserFilter{SessionID: sessionID})
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			return User{}, false, nil
		}
		return User{}, false, err
	}

	return user, true, nil
}

// DestroySession ends the session of the user with the given ID.
// A zero ID is a no-op and destroying a session that was already
// destroyed is not an error. An unknown ID results in ErrUserNotFound.
func (s *Service) DestroySession(ctx context.Context, userID int) error {
	if userID <= 0 {
		return nil
	}

	err := s.inTx(ctx, func(tx Tx) error {
		return tx.UpdateUser(userID, UserUpdate{
			SessionID: ptr(Token("")),
			UpdatedAt: s.NowFunc(),
		})
	})
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.InfoContext(ctx, "session destroyed", "userID", userID)

	return nil
}

// RequestPasswordReset starts a password reset for the user with the given
// email and returns the reset token. A previous reset token is replaced.
// It returns ErrUserNotFound if no such user exists.
//
// Delivering the token to the user is up to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, addr email.Address) (Token, error) {
	if addr == "" {
		return "", ErrUserNotFound
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return "", err
	}

	var userID int
	err = s.inTx(ctx, func(tx Tx) error {
		user, txErr := tx.FindUser(UserFilter{Email: addr})
		if txErr != nil {
			return txErr
		}

		userID = user.ID
		return tx.UpdateUser(user.ID, UserUpdate{
			ResetToken: &token,
			UpdatedAt:  s.NowFunc(),
		})
	})
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	s.logger.InfoContext(ctx, "password reset requested", "userID", userID)

	return token, nil
}

// UpdatePassword replaces the password of the user with the given reset
// token and clears the token in the same write. The session of the user
// is left as is. It returns ErrInvalidResetToken if no user has the token.
func (s *Service) UpdatePassword(ctx context.Context, resetToken Token, newPassword Password) error {
	if resetToken.IsZero() {
		return ErrInvalidResetToken
	}

	pwdHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	var userID int
	err = s.inTx(ctx, func(tx Tx) error {
		user, txErr := tx.FindUser(UserFilter{ResetToken: resetToken})
		if txErr != nil {
			return txErr
		}

		userID = user.ID
		return tx.UpdateUser(user.ID, UserUpdate{
			PasswordHash: &pwdHash,
			ResetToken:   ptr(Token("")),
			UpdatedAt:    s.NowFunc(),
		})
	})
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	s.logger.InfoContext(ctx, "password updated", "userID", userID)

	return nil
}

// NeedsRehash reports whether the stored hash of the user should be
// replaced by a hash made with the current hasher settings.
func (s *Service) NeedsRehash(u User) bool {
	return s.hasher.NeedsRehash(u.PasswordHash)
}

// findByEmail finds the user with the email, no email matches no user.
func (s *Service) findByEmail(ctx context.Context, addr email.Address) (User, error) {
	if addr == "" {
		return User{}, errorz.ErrNotFound
	}
	return s.store.FindUser(ctx, UserFilter{Email: addr})
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

func ptr[T any](v T) *T {
	return &v
}
