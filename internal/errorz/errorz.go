package errorz

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConstraintViolated = errors.New("constraint violated")
	ErrTxBadState         = errors.New("transaction is in a known bad state")
)

// MapDBErr maps database errors to appropriate errorz errors.
// It understands errors from both SQLite drivers and from pgx.
// If err is nil, MapDBErr returns nil.
func MapDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	if errors.Is(err, sql.ErrTxDone) {
		return ErrTxBadState
	}

	sErr := sqlite3.Error{}
	if errors.As(err, &sErr) {
		if sErr.Code == sqlite3.ErrConstraint {
			return ErrConstraintViolated
		}
	}

	var mErr *sqlite.Error
	if errors.As(err, &mErr) {
		// Extended result codes carry the primary code in the lower byte.
		if mErr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT {
			return ErrConstraintViolated
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return ErrConstraintViolated
		}
	}

	return err
}
