package quotes

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/shelfmates/shelfmates/pkg/errcodes"
	"github.com/shelfmates/shelfmates/pkg/migrations"
	"github.com/shelfmates/shelfmates/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createQuote(t *testing.T, svc *Service, bookTitle, text string, userID int) *models.Quote {
	t.Helper()
	quote := &models.Quote{BookTitle: bookTitle, Text: text, UserID: userID}
	require.NoError(t, svc.CreateQuote(context.Background(), quote))
	return quote
}

func strPtr(s string) *string {
	return &s
}

func TestCreateQuote(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db, config.NewForTest())
	ctx := context.Background()

	quote := &models.Quote{BookTitle: "Nowhere", Text: "hello", UserID: models.QuoteUserSecond}
	err := svc.CreateQuote(ctx, quote)
	require.NoError(t, err)

	assert.NotEmpty(t, quote.ID)
	assert.False(t, quote.CreatedAt.IsZero())
	assert.Empty(t, quote.Discussion)

	// There's no book called "Nowhere"; quotes don't need one.
	quotes, err := svc.ListQuotesByBook(ctx, "Nowhere")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "hello", quotes[0].Text)
	assert.Equal(t, models.QuoteUserSecond, quotes[0].UserID)
}

func TestListQuotes(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db, config.NewForTest())
	ctx := context.Background()

	t.Run("empty store", func(tt *testing.T) {
		quotes, err := svc.ListQuotes(ctx, ListQuotesOptions{})
		require.NoError(tt, err)
		assert.NotNil(tt, quotes)
		assert.Empty(tt, quotes)
	})

	createQuote(t, svc, "A", "first", models.QuoteUserFirst)
	createQuote(t, svc, "B", "second", models.QuoteUserSecond)
	createQuote(t, svc, "A", "third", models.QuoteUserSecond)

	t.Run("insertion order", func(tt *testing.T) {
		quotes, err := svc.ListQuotes(ctx, ListQuotesOptions{})
		require.NoError(tt, err)
		require.Len(tt, quotes, 3)
		assert.Equal(tt, "first", quotes[0].Text)
		assert.Equal(tt, "second", quotes[1].Text)
		assert.Equal(tt, "third", quotes[2].Text)
	})

	t.Run("by book", func(tt *testing.T) {
		quotes, err := svc.ListQuotesByBook(ctx, "A")
		require.NoError(tt, err)
		require.Len(tt, quotes, 2)
		assert.Equal(tt, "first", quotes[0].Text)
		assert.Equal(tt, "third", quotes[1].Text)
	})

	t.Run("by user", func(tt *testing.T) {
		userID := models.QuoteUserSecond
		quotes, err := svc.ListQuotes(ctx, ListQuotesOptions{UserID: &userID})
		require.NoError(tt, err)
		require.Len(tt, quotes, 2)
		assert.Equal(tt, "second", quotes[0].Text)
		assert.Equal(tt, "third", quotes[1].Text)
	})

	t.Run("unknown book", func(tt *testing.T) {
		quotes, err := svc.ListQuotesByBook(ctx, "Missing")
		require.NoError(tt, err)
		assert.NotNil(tt, quotes)
		assert.Empty(tt, quotes)
	})
}

func TestListQuotes_Limit(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	cfg := config.NewForTest()
	cfg.ListLimit = 2
	svc := NewService(db, cfg)

	createQuote(t, svc, "A", "1", models.QuoteUserFirst)
	createQuote(t, svc, "A", "2", models.QuoteUserFirst)
	createQuote(t, svc, "A", "3", models.QuoteUserFirst)

	quotes, err := svc.ListQuotes(context.Background(), ListQuotesOptions{})
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
}

func TestUpdateQuote(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db, config.NewForTest())
	ctx := context.Background()

	createQuote(t, svc, "A", "hello", models.QuoteUserFirst)

	t.Run("updates only the given fields", func(tt *testing.T) {
		quote, err := svc.UpdateQuote(ctx, "A", "hello", UpdateQuoteOptions{
			Discussion: strPtr("we both liked this"),
		})
		require.NoError(tt, err)
		assert.Equal(tt, "hello", quote.Text)
		assert.Equal(tt, "we both liked this", quote.Discussion)
		assert.Equal(tt, models.QuoteUserFirst, quote.UserID)
	})

	t.Run("can change the text", func(tt *testing.T) {
		quote, err := svc.UpdateQuote(ctx, "A", "hello", UpdateQuoteOptions{
			Text: strPtr("hello there"),
		})
		require.NoError(tt, err)
		assert.Equal(tt, "hello there", quote.Text)
		assert.Equal(tt, "we both liked this", quote.Discussion)

		quotes, err := svc.ListQuotesByBook(ctx, "A")
		require.NoError(tt, err)
		require.Len(tt, quotes, 1)
		assert.Equal(tt, "hello there", quotes[0].Text)
	})

	t.Run("not found", func(tt *testing.T) {
		_, err := svc.UpdateQuote(ctx, "A", "hello", UpdateQuoteOptions{Text: strPtr("x")})
		require.Error(tt, err)
		assert.ErrorIs(tt, err, errcodes.NotFound("Quote"))
	})

	t.Run("no fields", func(tt *testing.T) {
		_, err := svc.UpdateQuote(ctx, "A", "hello there", UpdateQuoteOptions{})
		require.Error(tt, err)
		assert.ErrorIs(tt, err, errcodes.NoFieldsToUpdate())

		quotes, err := svc.ListQuotesByBook(ctx, "A")
		require.NoError(tt, err)
		require.Len(tt, quotes, 1)
		assert.Equal(tt, "hello there", quotes[0].Text)
		assert.Equal(tt, "we both liked this", quotes[0].Discussion)
	})

	t.Run("empty strings are values", func(tt *testing.T) {
		quote, err := svc.UpdateQuote(ctx, "A", "hello there", UpdateQuoteOptions{Discussion: strPtr("")})
		require.NoError(tt, err)
		assert.Empty(tt, quote.Discussion)
	})
}

func TestUpdateQuote_FirstMatchWins(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db, config.NewForTest())
	ctx := context.Background()

	first := createQuote(t, svc, "A", "same", models.QuoteUserFirst)
	createQuote(t, svc, "A", "same", models.QuoteUserSecond)

	quote, err := svc.UpdateQuote(ctx, "A", "same", UpdateQuoteOptions{Discussion: strPtr("picked")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, quote.ID)

	quotes, err := svc.ListQuotesByBook(ctx, "A")
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "picked", quotes[0].Discussion)
	assert.Empty(t, quotes[1].Discussion)
}

func TestDeleteQuote(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db, config.NewForTest())
	ctx := context.Background()

	createQuote(t, svc, "A", "same", models.QuoteUserFirst)
	second := createQuote(t, svc, "A", "same", models.QuoteUserSecond)
	createQuote(t, svc, "B", "same", models.QuoteUserFirst)

	err := svc.DeleteQuote(ctx, "A", "same")
	require.NoError(t, err)

	quotes, err := svc.ListQuotesByBook(ctx, "A")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, second.ID, quotes[0].ID)

	err = svc.DeleteQuote(ctx, "A", "same")
	require.NoError(t, err)

	err = svc.DeleteQuote(ctx, "A", "same")
	assert.ErrorIs(t, err, errcodes.NotFound("Quote"))

	quotes, err = svc.ListQuotesByBook(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
}

func TestListBookTitlesWithQuotes(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db, config.NewForTest())
	ctx := context.Background()

	titles, err := svc.ListBookTitlesWithQuotes(ctx)
	require.NoError(t, err)
	assert.NotNil(t, titles)
	assert.Empty(t, titles)

	createQuote(t, svc, "Dune", "fear", models.QuoteUserFirst)
	createQuote(t, svc, "Beloved", "", models.QuoteUserFirst)
	createQuote(t, svc, "Dune", "spice", models.QuoteUserSecond)

	titles, err = svc.ListBookTitlesWithQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Beloved", "Dune"}, titles)
}

func TestDeleteByBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db, config.NewForTest())
	ctx := context.Background()

	createQuote(t, svc, "A", "1", models.QuoteUserFirst)
	createQuote(t, svc, "A", "2", models.QuoteUserSecond)
	createQuote(t, svc, "B", "3", models.QuoteUserFirst)

	n, err := DeleteByBook(ctx, db, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	quotes, err := svc.ListQuotes(ctx, ListQuotesOptions{})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "B", quotes[0].BookTitle)
}
