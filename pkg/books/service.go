package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/shelfmates/shelfmates/pkg/database"
	"github.com/shelfmates/shelfmates/pkg/errcodes"
	"github.com/shelfmates/shelfmates/pkg/models"
	"github.com/shelfmates/shelfmates/pkg/quotes"
	"github.com/shelfmates/shelfmates/pkg/tracing"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ListBooksOptions struct {
	Status *string
}

// UpdateBookOptions holds the fields of a partial update. Nil fields are left
// as stored. Number and CreatedAt can't be changed.
type UpdateBookOptions struct {
	Title  *string
	Status *string
	Rating *float64
}

func (opts UpdateBookOptions) apply(book *models.Book) []string {
	columns := []string{}
	columns = models.MergeField(columns, "title", &book.Title, opts.Title)
	columns = models.MergeField(columns, "status", &book.Status, opts.Status)
	columns = models.MergeField(columns, "rating", &book.Rating, opts.Rating)
	return columns
}

func (opts UpdateBookOptions) empty() bool {
	return len(opts.apply(&models.Book{})) == 0
}

type Service struct {
	db     *bun.DB
	cfg    *config.Config
	tracer trace.Tracer
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		tracer: otel.Tracer("shelfmates/books"),
	}
}

// ListBooks returns books ordered by number.
func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) (books []*models.Book, err error) {
	ctx, span := svc.tracer.Start(ctx, "books.list")
	defer tracing.End(span, &err)

	books = []*models.Book{}
	q := svc.db.
		NewSelect().
		Model(&books).
		Order("b.number ASC", "b.created_at ASC").
		Limit(svc.cfg.ListLimit)

	if opts.Status != nil {
		q = q.Where("b.status = ?", *opts.Status)
	}

	err = q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	span.SetAttributes(attribute.Int("books.count", len(books)))
	return books, nil
}

// CreateBook appends book to the end of the list and adds its companion quote
// in the same transaction. The book's ID, CreatedAt, and Number are set.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) (err error) {
	ctx, span := svc.tracer.Start(ctx, "books.create", trace.WithAttributes(
		attribute.String("book.title", book.Title),
	))
	defer tracing.End(span, &err)

	err = svc.db.RunInTx(ctx, database.TxOptions(svc.db), func(ctx context.Context, tx bun.Tx) error {
		var maxNumber int
		err := tx.
			NewSelect().
			Model((*models.Book)(nil)).
			ColumnExpr("COALESCE(MAX(b.number), 0)").
			Scan(ctx, &maxNumber)
		if err != nil {
			return errors.WithStack(err)
		}

		id, err := uuid.NewRandom()
		if err != nil {
			return errors.WithStack(err)
		}
		book.ID = id.String()
		book.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
		book.Number = maxNumber + 1

		_, err = tx.
			NewInsert().
			Model(book).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return quotes.Insert(ctx, tx, models.NewCompanionQuote(book.Title))
	})
	if err != nil {
		return errors.WithStack(err)
	}

	span.SetAttributes(attribute.Int("book.number", book.Number))
	return nil
}

// UpdateBook applies opts to the first book titled title and returns it as
// stored afterwards.
func (svc *Service) UpdateBook(ctx context.Context, title string, opts UpdateBookOptions) (book *models.Book, err error) {
	ctx, span := svc.tracer.Start(ctx, "books.update", trace.WithAttributes(
		attribute.String("book.title", title),
	))
	defer tracing.End(span, &err)

	if opts.empty() {
		return nil, errcodes.NoFieldsToUpdate()
	}

	err = svc.db.RunInTx(ctx, database.TxOptions(svc.db), func(ctx context.Context, tx bun.Tx) error {
		var err error
		book, err = findBook(ctx, tx, title)
		if err != nil {
			return err
		}

		columns := opts.apply(book)
		_, err = tx.
			NewUpdate().
			Model(book).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// DeleteBook deletes the first book titled title and closes the gap it leaves
// in the numbering. Its quotes are kept unless the quote delete policy is
// cascade.
func (svc *Service) DeleteBook(ctx context.Context, title string) (err error) {
	ctx, span := svc.tracer.Start(ctx, "books.delete", trace.WithAttributes(
		attribute.String("book.title", title),
		attribute.Bool("quotes.cascade", svc.cfg.CascadeQuoteDeletes()),
	))
	defer tracing.End(span, &err)

	var renumbered, quotesDeleted int
	err = svc.db.RunInTx(ctx, database.TxOptions(svc.db), func(ctx context.Context, tx bun.Tx) error {
		book, err := findBook(ctx, tx, title)
		if err != nil {
			return err
		}

		_, err = tx.
			NewDelete().
			Model(book).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		renumbered, err = renumber(ctx, tx)
		if err != nil {
			return err
		}

		if svc.cfg.CascadeQuoteDeletes() {
			quotesDeleted, err = quotes.DeleteByBook(ctx, tx, book.Title)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	span.SetAttributes(
		attribute.Int("books.renumbered", renumbered),
		attribute.Int("quotes.deleted", quotesDeleted),
	)
	logger.FromContext(ctx).Info("deleted book", logger.Data{
		"title":          title,
		"renumbered":     renumbered,
		"quotes_deleted": quotesDeleted,
	})
	return nil
}

// Renumber reassigns numbers 1..N to the books in their current order. It
// repairs a list whose numbers were edited by hand.
func (svc *Service) Renumber(ctx context.Context) (err error) {
	ctx, span := svc.tracer.Start(ctx, "books.renumber")
	defer tracing.End(span, &err)

	var renumbered int
	err = svc.db.RunInTx(ctx, database.TxOptions(svc.db), func(ctx context.Context, tx bun.Tx) error {
		var err error
		renumbered, err = renumber(ctx, tx)
		return err
	})
	if err != nil {
		return errors.WithStack(err)
	}

	span.SetAttributes(attribute.Int("books.renumbered", renumbered))
	return nil
}

// renumber walks the books in number order and rewrites each number that
// doesn't match its position. It returns how many rows changed.
func renumber(ctx context.Context, db bun.IDB) (int, error) {
	books := []*models.Book{}
	err := db.
		NewSelect().
		Model(&books).
		Column("id", "number").
		Order("b.number ASC", "b.created_at ASC").
		Scan(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	changed := 0
	for i, book := range books {
		if book.Number == i+1 {
			continue
		}
		book.Number = i + 1
		_, err = db.
			NewUpdate().
			Model(book).
			Column("number").
			WherePK().
			Exec(ctx)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		changed++
	}

	return changed, nil
}

// findBook returns the lowest-numbered book with the given title. Titles
// aren't unique, so later duplicates are only reachable once it's gone.
func findBook(ctx context.Context, db bun.IDB, title string) (*models.Book, error) {
	book := &models.Book{}
	err := db.
		NewSelect().
		Model(book).
		Where("b.title = ?", title).
		Order("b.number ASC", "b.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}
