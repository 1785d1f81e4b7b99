package testutils

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmates/shelfmates/pkg/database"
	"github.com/shelfmates/shelfmates/pkg/models"
	"github.com/uptrace/bun"
)

type handler struct {
	db *bun.DB
}

// deleteAllDataResponse is the response body for wiping the store.
type deleteAllDataResponse struct {
	Books  int `json:"books"`
	Quotes int `json:"quotes"`
}

// deleteAllData deletes every book and quote.
// DELETE /test/data.
func (h *handler) deleteAllData(c echo.Context) error {
	ctx := c.Request().Context()

	resp := deleteAllDataResponse{}
	err := h.db.RunInTx(ctx, database.TxOptions(h.db), func(ctx context.Context, tx bun.Tx) error {
		var err error
		resp.Quotes, err = deleteAll(ctx, tx, (*models.Quote)(nil))
		if err != nil {
			return errors.Wrap(err, "failed to delete quotes")
		}
		resp.Books, err = deleteAll(ctx, tx, (*models.Book)(nil))
		if err != nil {
			return errors.Wrap(err, "failed to delete books")
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, resp)
}

func deleteAll(ctx context.Context, db bun.IDB, model interface{}) (int, error) {
	result, err := db.NewDelete().
		Model(model).
		Where("1=1").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}
