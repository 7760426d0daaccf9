// Package validator adapts go-playground/validator to echo's Validator
// interface. Request DTOs declare their constraints with `validate` tags.
package validator

import (
	"github.com/go-playground/validator/v10"

	domainerrors "tailor/internal/domain/errors"
)

// Validator wraps a shared validator instance; it is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New builds the echo validator.
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate implements echo.Validator. Constraint violations surface as the
// validation error kind so the error handler renders a structured 400.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidation.WithDetails(err.Error())
	}

	return nil
}
