package quotes

type ListQuotesQuery struct {
	UserID *int `query:"user_id" json:"user_id,omitempty" validate:"omitnil,oneof=1 2" tstype:"QuoteUserID"`
}

type CreateQuotePayload struct {
	BookTitle  string `json:"book_title" mod:"trim" validate:"required,max=300"`
	Text       string `json:"text" validate:"max=5000"`
	UserID     int    `json:"user_id" validate:"required,oneof=1 2" tstype:"QuoteUserID"`
	Discussion string `json:"discussion" validate:"max=20000"`
}

type UpdateQuotePayload struct {
	Text       *string `json:"text,omitempty" validate:"omitnil,max=5000"`
	Discussion *string `json:"discussion,omitempty" validate:"omitnil,max=20000"`
}
