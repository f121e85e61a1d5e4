package currency

import "errors"

// ErrValidation input failed a local business rule before reaching the API
var ErrValidation = errors.New("validation error")

// ErrNotFound a currency id or code is not in the table
var ErrNotFound = errors.New("currency not found")

// ErrMultipleBase more than one currency is flagged as the base currency
var ErrMultipleBase = errors.New("more than one base currency")

// FieldError one rejected form field, worded for the end user. It matches ErrValidation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return "Error en " + e.Field + ": " + e.Message }

func (e *FieldError) Unwrap() error { return ErrValidation }
