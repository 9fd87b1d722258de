package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds every schema change; bun orders them by the registering
// file's name, so each change lives in its own timestamped file.
var Migrations = migrate.NewMigrations()

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}

func dropTable(table string) migrate.MigrationFunc {
	return execSQL("DROP TABLE IF EXISTS " + table)
}
