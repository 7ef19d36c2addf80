package service

import (
	"errors"
	"strings"

	"go-pos-ledger/pkg/validator"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
)

// ValidationError is returned before any mutation when input is malformed.
type ValidationError struct {
	Message string
	Fields  []*validator.ErrorResponse
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.FailedField+" failed on '"+f.Tag+"'")
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

func validationFailed(message string, fields ...*validator.ErrorResponse) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// validate runs struct tags and wraps the result in a ValidationError.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return validationFailed("Validation failed", errs...)
	}
	return nil
}
