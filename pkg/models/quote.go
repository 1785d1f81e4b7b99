package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	//tygo:emit export type QuoteUserID = typeof QuoteUserFirst | typeof QuoteUserSecond;
	QuoteUserFirst  = 1
	QuoteUserSecond = 2
)

// Quote is identified by the pair (BookTitle, Text). BookTitle is a soft
// reference: the book it names may have been deleted.
type Quote struct {
	bun.BaseModel `bun:"table:quotes,alias:q" tstype:"-"`

	ID         string    `bun:",pk" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	BookTitle  string    `json:"book_title"`
	Text       string    `json:"text"`
	UserID     int       `json:"user_id" tstype:"QuoteUserID"`
	Discussion string    `json:"discussion"`
}

// NewCompanionQuote returns the blank placeholder quote that accompanies a
// newly created book.
func NewCompanionQuote(bookTitle string) *Quote {
	return &Quote{
		BookTitle: bookTitle,
		UserID:    QuoteUserFirst,
	}
}
