package testdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/willemschots/gatekeeper/internal/db"
	"github.com/willemschots/gatekeeper/internal/migrate"
	"github.com/willemschots/gatekeeper/migrations"
)

// SQLiteDrivers are the drivers that can run an in-memory database.
var SQLiteDrivers = []db.Driver{db.DriverSQLite3, db.DriverSQLite}

// RunWhile runs an in-memory database while the provided test is executing.
// It returns an empty database with all migrations applied.
func RunWhile(t *testing.T, driver db.Driver) *sql.DB {
	t.Helper()

	sqlDB := RunUnmigratedWhile(t, driver)
	Migrate(t, sqlDB, driver.Dialect())

	return sqlDB
}

// RunUnmigratedWhile runs an in-memory database while the provided test is executing.
// It returns an empty database without any migrations applied.
func RunUnmigratedWhile(t *testing.T, driver db.Driver) *sql.DB {
	t.Helper()

	sqlDB, err := db.Open(driver, ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		err := sqlDB.Close()
		if err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	return sqlDB
}

// Migrate applies all migrations for the dialect to sqlDB.
func Migrate(t *testing.T, sqlDB *sql.DB, dialect db.Dialect) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fsys, err := migrations.FS(dialect)
	if err != nil {
		t.Fatalf("failed to get migrations: %v", err)
	}

	_, err = migrate.RunFS(ctx, sqlDB, dialect, fsys, migrate.Metadata{})
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
}
