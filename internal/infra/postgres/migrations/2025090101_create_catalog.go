package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createCatalogSQL = `
CREATE TABLE IF NOT EXISTS content_items (
	id   TEXT PRIMARY KEY,
	data JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS categories (
	name TEXT PRIMARY KEY,
	data JSONB NOT NULL
);`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createCatalogSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS content_items; DROP TABLE IF EXISTS categories`)
			return err
		},
	)
}
