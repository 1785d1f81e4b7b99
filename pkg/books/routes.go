package books

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{
		bookService: NewService(db, cfg),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:book_title", h.update)
	g.DELETE("/:book_title", h.delete)
}
