package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var (
	//go:embed 0001_init.up.sql
	initUpSQL string
	//go:embed 0001_init.down.sql
	initDownSQL string
)

// Migrations is the portal schema history.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.Add(migrate.Migration{
		Name:    "20240301000001",
		Comment: "init",
		Up: func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, initUpSQL)
			return err
		},
		Down: func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, initDownSQL)
			return err
		},
	})
}
