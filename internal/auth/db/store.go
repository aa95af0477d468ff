package db

import (
	"context"
	"database/sql"

	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/db"
)

// Store is responsible for interacting with a database.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

// New creates a new Store. The dialect determines how queries are written.
func New(sqlDB *sql.DB, dialect db.Dialect) *Store {
	return &Store{
		db:      sqlDB,
		dialect: dialect,
	}
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx:    tx,
		store: s,
	}, nil
}

// FindUser finds a user outside of a transaction.
// It returns errorz.ErrNotFound if no user matches the filter.
func (s *Store) FindUser(ctx context.Context, filter auth.UserFilter) (auth.User, error) {
	return selectUser(s.newQuery(), func(query string, params ...any) *sql.Row {
		return s.db.QueryRowContext(ctx, query, params...)
	}, filter)
}

func (s *Store) newQuery() *db.Query {
	return db.NewQuery(s.dialect)
}
