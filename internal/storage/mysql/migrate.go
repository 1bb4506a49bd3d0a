package mysql

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"sort"

	"github.com/cockroachdb/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every embedded migration in file-name order. Each file
// holds one idempotent statement.
func Migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return errors.Wrap(err, "list migrations")
	}
	sort.Strings(names)
	for _, name := range names {
		stmt, err := migrationFS.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return errors.Wrapf(err, "apply %s", name)
		}
	}
	return nil
}
