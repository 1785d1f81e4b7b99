package quotes

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers quote routes on the API group. The list of
// cited titles lives beside /books since it answers a question about books.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{
		quoteService: NewService(db, cfg),
	}

	g.GET("/quotes", h.list)
	g.POST("/quotes", h.create)
	g.GET("/quotes/:book_title", h.listByBook)
	g.PUT("/quotes/:book_title/:quote_text", h.update)
	g.DELETE("/quotes/:book_title/:quote_text", h.delete)
	g.GET("/books-with-quotes", h.listBookTitles)
}
