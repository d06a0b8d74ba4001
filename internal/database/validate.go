package database

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the struct tags of entity and wraps any failure in ErrValidation.
func Validate(entity any) error {
	if entity == nil {
		return fmt.Errorf("%w: nil entity", ErrValidation)
	}
	if v := reflect.ValueOf(entity); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("%w: nil %T", ErrValidation, entity)
	}
	if err := validate.Struct(entity); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
