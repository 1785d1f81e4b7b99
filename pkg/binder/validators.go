package binder

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const notblank = "notblank"

// notBlankValidator rejects strings that are empty or only whitespace. Nil
// pointers pass; pair it with omitempty for optional fields.
func notBlankValidator(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
