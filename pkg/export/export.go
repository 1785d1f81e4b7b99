// Package export dumps the whole store as a single JSON document for backups.
package export

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfmates/shelfmates/pkg/models"
	"github.com/uptrace/bun"
)

// Snapshot is every book and quote at one point in time. Unlike the API it
// isn't capped by the list limit.
type Snapshot struct {
	ExportedAt time.Time       `json:"exported_at"`
	Books      []*models.Book  `json:"books"`
	Quotes     []*models.Quote `json:"quotes"`
}

// Take reads both tables inside one transaction so the snapshot is
// consistent.
func Take(ctx context.Context, db *bun.DB) (*Snapshot, error) {
	snap := &Snapshot{
		ExportedAt: time.Now().UTC(),
		Books:      []*models.Book{},
		Quotes:     []*models.Quote{},
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.
			NewSelect().
			Model(&snap.Books).
			Order("b.number ASC", "b.created_at ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		err = tx.
			NewSelect().
			Model(&snap.Quotes).
			Order("q.created_at ASC", "q.id ASC").
			Scan(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return snap, nil
}

// Write takes a snapshot and writes it to w as indented JSON.
func Write(ctx context.Context, db *bun.DB, w io.Writer) (*Snapshot, error) {
	snap, err := Take(ctx, db)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, errors.WithStack(err)
	}
	return snap, nil
}
