package quotes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmates/shelfmates/pkg/binder"
	"github.com/shelfmates/shelfmates/pkg/errcodes"
	"github.com/shelfmates/shelfmates/pkg/models"
)

type handler struct {
	quoteService *Service
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListQuotesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	quotes, err := h.quoteService.ListQuotes(ctx, ListQuotesOptions{
		UserID: params.UserID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, quotes))
}

func (h *handler) listByBook(c echo.Context) error {
	ctx := c.Request().Context()
	bookTitle, err := binder.PathParam(c, "book_title")
	if err != nil {
		return errcodes.NotFound("Book")
	}

	quotes, err := h.quoteService.ListQuotesByBook(ctx, bookTitle)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, quotes))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateQuotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	quote := &models.Quote{
		BookTitle:  params.BookTitle,
		Text:       params.Text,
		UserID:     params.UserID,
		Discussion: params.Discussion,
	}
	if err := h.quoteService.CreateQuote(ctx, quote); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, quote))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	bookTitle, text, err := quoteKey(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := UpdateQuotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	quote, err := h.quoteService.UpdateQuote(ctx, bookTitle, text, UpdateQuoteOptions{
		Text:       params.Text,
		Discussion: params.Discussion,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, quote))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	bookTitle, text, err := quoteKey(c)
	if err != nil {
		return err
	}

	if err := h.quoteService.DeleteQuote(ctx, bookTitle, text); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, messageResponse{"Quote deleted successfully"}))
}

func (h *handler) listBookTitles(c echo.Context) error {
	ctx := c.Request().Context()

	titles, err := h.quoteService.ListBookTitlesWithQuotes(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, titles))
}

func quoteKey(c echo.Context) (string, string, error) {
	bookTitle, err := binder.PathParam(c, "book_title")
	if err != nil {
		return "", "", errcodes.NotFound("Quote")
	}
	text, err := binder.PathParam(c, "quote_text")
	if err != nil {
		return "", "", errcodes.NotFound("Quote")
	}
	return bookTitle, text, nil
}
