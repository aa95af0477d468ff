package errorz_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/willemschots/gatekeeper/internal/errorz"
)

func Test_MapDBErr(t *testing.T) {
	otherErr := errors.New("other")

	tests := map[string]struct {
		in   error
		want error
	}{
		"ok, nil": {
			in:   nil,
			want: nil,
		},
		"ok, no rows": {
			in:   sql.ErrNoRows,
			want: errorz.ErrNotFound,
		},
		"ok, wrapped no rows": {
			in:   fmt.Errorf("query failed: %w", sql.ErrNoRows),
			want: errorz.ErrNotFound,
		},
		"ok, tx done": {
			in:   sql.ErrTxDone,
			want: errorz.ErrTxBadState,
		},
		"ok, sqlite3 constraint": {
			in:   sqlite3.Error{Code: sqlite3.ErrConstraint},
			want: errorz.ErrConstraintViolated,
		},
		"ok, postgres unique violation": {
			in:   &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			want: errorz.ErrConstraintViolated,
		},
		"ok, postgres check violation": {
			in:   fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.CheckViolation}),
			want: errorz.ErrConstraintViolated,
		},
		"ok, postgres other error is passed through": {
			in:   &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			want: nil,
		},
		"ok, unknown error is passed through": {
			in:   otherErr,
			want: otherErr,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := errorz.MapDBErr(tc.in)

			if tc.in != nil && tc.want == nil {
				// passed through unchanged.
				if got != tc.in {
					t.Errorf("got %v, want %v", got, tc.in)
				}
				return
			}

			if !errors.Is(got, tc.want) {
				t.Errorf("got %v, want %v (via errors.Is)", got, tc.want)
			}
		})
	}
}

func Test_InvalidInput(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	err := errorz.InvalidInput{
		errorz.Keyed{Key: "email", Err: errA},
		errorz.Keyed{Key: "password", Err: errB},
	}

	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected invalid input to unwrap to both errors")
	}

	want := "invalid input:\nemail: a\npassword: b\n"
	if err.Error() != want {
		t.Errorf("got\n%q\nwant\n%q", err.Error(), want)
	}
}
