package quotes

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/shelfmates/shelfmates/pkg/database"
	"github.com/shelfmates/shelfmates/pkg/errcodes"
	"github.com/shelfmates/shelfmates/pkg/models"
	"github.com/shelfmates/shelfmates/pkg/tracing"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ListQuotesOptions struct {
	BookTitle *string
	UserID    *int
}

// UpdateQuoteOptions holds the fields of a partial update. Nil fields are left
// as stored.
type UpdateQuoteOptions struct {
	Text       *string
	Discussion *string
}

func (opts UpdateQuoteOptions) apply(quote *models.Quote) []string {
	columns := []string{}
	columns = models.MergeField(columns, "text", &quote.Text, opts.Text)
	columns = models.MergeField(columns, "discussion", &quote.Discussion, opts.Discussion)
	return columns
}

func (opts UpdateQuoteOptions) empty() bool {
	return len(opts.apply(&models.Quote{})) == 0
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
		tracer: otel.Tracer("shelfmates/quotes"),
	}
}

// ListQuotes returns quotes in the order they were created.
func (svc *Service) ListQuotes(ctx context.Context, opts ListQuotesOptions) (quotes []*models.Quote, err error) {
	ctx, span := svc.tracer.Start(ctx, "quotes.list")
	defer tracing.End(span, &err)

	quotes = []*models.Quote{}
	q := svc.db.
		NewSelect().
		Model(&quotes).
		Order("q.created_at ASC", "q.id ASC").
		Limit(svc.cfg.ListLimit)

	if opts.BookTitle != nil {
		q = q.Where("q.book_title = ?", *opts.BookTitle)
	}
	if opts.UserID != nil {
		q = q.Where("q.user_id = ?", *opts.UserID)
	}

	err = q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	span.SetAttributes(attribute.Int("quotes.count", len(quotes)))
	return quotes, nil
}

// ListQuotesByBook returns the quotes citing bookTitle. A title nothing cites
// yields an empty list, whether or not the book exists.
func (svc *Service) ListQuotesByBook(ctx context.Context, bookTitle string) ([]*models.Quote, error) {
	return svc.ListQuotes(ctx, ListQuotesOptions{BookTitle: &bookTitle})
}

// CreateQuote stores quote as given. The book it cites isn't checked.
func (svc *Service) CreateQuote(ctx context.Context, quote *models.Quote) (err error) {
	ctx, span := svc.tracer.Start(ctx, "quotes.create", trace.WithAttributes(
		attribute.String("quote.book_title", quote.BookTitle),
		attribute.Int("quote.user_id", quote.UserID),
	))
	defer tracing.End(span, &err)

	return Insert(ctx, svc.db, quote)
}

func (svc *Service) UpdateQuote(ctx context.Context, bookTitle, text string, opts UpdateQuoteOptions) (quote *models.Quote, err error) {
	ctx, span := svc.tracer.Start(ctx, "quotes.update", trace.WithAttributes(
		attribute.String("quote.book_title", bookTitle),
	))
	defer tracing.End(span, &err)

	if opts.empty() {
		return nil, errcodes.NoFieldsToUpdate()
	}

	err = svc.db.RunInTx(ctx, database.TxOptions(svc.db), func(ctx context.Context, tx bun.Tx) error {
		var err error
		quote, err = findQuote(ctx, tx, bookTitle, text)
		if err != nil {
			return err
		}

		columns := opts.apply(quote)
		_, err = tx.
			NewUpdate().
			Model(quote).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return quote, nil
}

func (svc *Service) DeleteQuote(ctx context.Context, bookTitle, text string) (err error) {
	ctx, span := svc.tracer.Start(ctx, "quotes.delete", trace.WithAttributes(
		attribute.String("quote.book_title", bookTitle),
	))
	defer tracing.End(span, &err)

	err = svc.db.RunInTx(ctx, database.TxOptions(svc.db), func(ctx context.Context, tx bun.Tx) error {
		quote, err := findQuote(ctx, tx, bookTitle, text)
		if err != nil {
			return err
		}

		_, err = tx.
			NewDelete().
			Model(quote).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	return errors.WithStack(err)
}

// ListBookTitlesWithQuotes returns every distinct title cited by a quote,
// sorted. Titles of deleted books are included.
func (svc *Service) ListBookTitlesWithQuotes(ctx context.Context) (titles []string, err error) {
	ctx, span := svc.tracer.Start(ctx, "quotes.list_book_titles")
	defer tracing.End(span, &err)

	titles = []string{}
	err = svc.db.
		NewSelect().
		Model((*models.Quote)(nil)).
		Distinct().
		ColumnExpr("q.book_title").
		Order("q.book_title ASC").
		Limit(svc.cfg.ListLimit).
		Scan(ctx, &titles)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	span.SetAttributes(attribute.Int("quotes.titles", len(titles)))
	return titles, nil
}

// Insert assigns quote an id and creation time and stores it through db,
// which may be a transaction.
func Insert(ctx context.Context, db bun.IDB, quote *models.Quote) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return errors.WithStack(err)
	}
	quote.ID = id.String()
	// Both stores keep microsecond precision.
	quote.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err = db.
		NewInsert().
		Model(quote).
		Exec(ctx)
	return errors.WithStack(err)
}

// DeleteByBook deletes every quote citing bookTitle and returns how many were
// removed.
func DeleteByBook(ctx context.Context, db bun.IDB, bookTitle string) (int, error) {
	res, err := db.
		NewDelete().
		Model((*models.Quote)(nil)).
		Where("book_title = ?", bookTitle).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int(n), nil
}

// findQuote returns the earliest quote matching the pair. Duplicates are
// allowed, so later ones are only reachable once it's gone.
func findQuote(ctx context.Context, db bun.IDB, bookTitle, text string) (*models.Quote, error) {
	quote := &models.Quote{}
	err := db.
		NewSelect().
		Model(quote).
		Where("q.book_title = ?", bookTitle).
		Where("q.text = ?", text).
		Order("q.created_at ASC", "q.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Quote")
		}
		return nil, errors.WithStack(err)
	}
	return quote, nil
}
