package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	//tygo:emit export type BookStatus = typeof BookStatusToRead | typeof BookStatusReading | typeof BookStatusCompleted;
	BookStatusToRead    = "To Read"
	BookStatusReading   = "Reading"
	BookStatusCompleted = "Completed"
)

// BookStatuses lists every valid Book.Status in display order.
var BookStatuses = []string{BookStatusToRead, BookStatusReading, BookStatusCompleted}

// Book is identified by its Title. Number is the book's 1-based position in
// the list; the numbers of all books always form 1..N.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b" tstype:"-"`

	ID        string    `bun:",pk" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Status    string    `json:"status" tstype:"BookStatus"`
	Rating    float64   `json:"rating"`
	Number    int       `json:"number"`
}
