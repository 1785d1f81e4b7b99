package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE books (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				status TEXT NOT NULL,
				rating DOUBLE PRECISION NOT NULL DEFAULT 0,
				number INTEGER NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Quotes reference books by title only. There is deliberately no
		// foreign key: a book can be deleted while its quotes remain.
		_, err = db.Exec(`
			CREATE TABLE quotes (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_title TEXT NOT NULL,
				text TEXT NOT NULL DEFAULT '',
				user_id INTEGER NOT NULL,
				discussion TEXT NOT NULL DEFAULT ''
			)
`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS quotes")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS books")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
