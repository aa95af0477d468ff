package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	// database drivers, selected by name in Open.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver is the name a database/sql driver is registered under.
type Driver string

const (
	// DriverSQLite3 is the cgo SQLite driver by mattn.
	DriverSQLite3 Driver = "sqlite3"
	// DriverSQLite is the pure Go SQLite driver by modernc.
	DriverSQLite Driver = "sqlite"
	// DriverPgx is the PostgreSQL driver from pgx.
	DriverPgx Driver = "pgx"
)

// ParseDriver parses a driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(s); d {
	case DriverSQLite3, DriverSQLite, DriverPgx:
		return d, nil
	default:
		return "", fmt.Errorf("unknown database driver %q", s)
	}
}

// Dialect returns the SQL dialect spoken by the driver.
func (d Driver) Dialect() Dialect {
	if d == DriverPgx {
		return DialectPostgres
	}
	return DialectSQLite
}

// Dialect is a flavour of SQL.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Placeholder returns the bind parameter for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

const (
	// To run SQLite so that it works well with our app, we need a few options:
	// - WAL Mode so that reads and writes don't block eachother.
	// - A busy timeout, specifying the duration a connection will wait for a lock.
	// - Foreign keys are enforced.
	// - Immediate transactions so a write lock is taken at the start of a transaction.
	sqlite3Options = "_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	sqliteOptions  = "_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_txlock=immediate"
)

// Open opens a pool of connections for the given driver.
//
// SQLite only allows a single writer, so SQLite pools are limited to a
// single connection that is never closed. This also keeps in-memory
// databases alive for as long as the pool is open.
//
// See this comment for more information:
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
func Open(driver Driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite3:
		return openSQLite(driver, withOptions(dsn, sqlite3Options))
	case DriverSQLite:
		return openSQLite(driver, withOptions(dsn, sqliteOptions))
	case DriverPgx:
		db, err := sql.Open(string(driver), dsn)
		if err != nil {
			return nil, err
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxIdleTime(5 * time.Minute)

		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

func openSQLite(driver Driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return db, nil
}

func withOptions(dsn, opts string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + opts
	}
	return dsn + "?" + opts
}
