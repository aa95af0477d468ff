package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/willemschots/gatekeeper/internal"
	"github.com/willemschots/gatekeeper/internal/db"
	"github.com/willemschots/gatekeeper/internal/migrate"
	"github.com/willemschots/gatekeeper/migrations"
)

const helpText = `Usage: dbmigrate [driver] [dsn]

driver is one of sqlite3, sqlite or pgx.`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, helpText)
		return 1
	}

	driver, err := db.ParseDriver(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "%v\n\n%s\n", err, helpText)
		return 1
	}

	sqlDB, err := db.Open(driver, args[1])
	if err != nil {
		fmt.Fprintf(stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer sqlDB.Close()

	dialect := driver.Dialect()

	fsys, err := migrations.FS(dialect)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load migrations: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()

	meta := migrate.Metadata{
		AppVersion: internal.BuildRevision,
		Timestamp:  internal.BuildRevisionTime,
	}

	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	ran, err := migrate.RunFS(ctx, sqlDB, dialect, fsys, meta)
	if err != nil {
		fmt.Fprintf(stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	for _, migration := range ran {
		fmt.Fprintf(stdout, "%d: %s\n", migration.Sequence, migration.Filename)
	}

	return 0
}
