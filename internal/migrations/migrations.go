package migrations

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var files embed.FS

// Up applies every embedded migration that has not run yet.
func Up(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.New("nil db provided")
	}

	sub, err := fs.Sub(files, "sql")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, sub)
	if err != nil {
		return err
	}

	_, err = provider.Up(ctx)
	return err
}
