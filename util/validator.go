package util

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	rgxClock = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("clock", validateClock)
}

// validateClock accepts 24h "HH:MM" meeting times.
func validateClock(fl validator.FieldLevel) bool {
	return rgxClock.MatchString(fl.Field().String())
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
