package books

type ListBooksQuery struct {
	Status *string `query:"status" json:"status,omitempty" validate:"omitnil,oneof='To Read' Reading Completed" tstype:"BookStatus"`
}

type CreateBookPayload struct {
	Title  string   `json:"title" mod:"trim" validate:"required,max=300"`
	Status string   `json:"status" validate:"required,oneof='To Read' Reading Completed" tstype:"BookStatus"`
	Rating *float64 `json:"rating" validate:"required" tstype:"number"`
}

type UpdateBookPayload struct {
	Title  *string  `json:"title,omitempty" mod:"trim" validate:"omitnil,notblank,max=300"`
	Status *string  `json:"status,omitempty" validate:"omitnil,oneof='To Read' Reading Completed" tstype:"BookStatus"`
	Rating *float64 `json:"rating,omitempty" tstype:"number"`
}
