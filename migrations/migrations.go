// Package migrations embeds the SQL migrations for every supported dialect.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/willemschots/gatekeeper/internal/db"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// FS returns the migrations for the given dialect.
func FS(d db.Dialect) (fs.FS, error) {
	switch d {
	case db.DialectSQLite, db.DialectPostgres:
		return fs.Sub(embedded, string(d))
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", d)
	}
}
