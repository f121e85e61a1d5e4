package currency

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = func() *validator.Validate {
	v := validator.New()
	// report fields by their wire name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}()

// RateUpdate the form submitted to change a currency's rate
type RateUpdate struct {
	NewRate      string     `json:"new_rate" validate:"required"`
	ChangeReason string     `json:"change_reason" validate:"max=500"`
	ChangeType   ChangeType `json:"change_type" validate:"required,oneof=manual automatic_api scheduled correction"`
	ChangeSource string     `json:"change_source" validate:"max=100"`
}

// Validate checks the form and the rate itself. NewRate is trimmed but otherwise sent as typed.
func (u *RateUpdate) Validate() error {
	u.NewRate = strings.TrimSpace(u.NewRate)
	if u.ChangeType == "" {
		u.ChangeType = ChangeManual
	}
	if err := validate.Struct(u); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return &FieldError{Field: fields[0].Field(), Message: fieldMessage(fields[0])}
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := ParseRate(u.NewRate); err != nil {
		var rejected *FieldError
		if errors.As(err, &rejected) {
			rejected.Field = "new_rate"
		}
		return err
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obligatorio"
	case "max":
		return fmt.Sprintf("máximo %s caracteres", fe.Param())
	case "oneof":
		return "debe ser uno de: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "valor no válido"
	}
}

// ParseRate parses a positive rate with at most RatePrecision fraction digits.
// Failures are *FieldError on the "rate" field.
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rate{}, &FieldError{Field: "rate", Message: "campo obligatorio"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, &FieldError{Field: "rate", Message: fmt.Sprintf("%q no es un número", s)}
	}
	if !d.IsPositive() {
		return Rate{}, &FieldError{Field: "rate", Message: "la tasa debe ser mayor que cero"}
	}
	if -d.Exponent() > RatePrecision {
		return Rate{}, &FieldError{Field: "rate", Message: fmt.Sprintf("máximo %d decimales", RatePrecision)}
	}
	return Rate{d}, nil
}

// RateVariationPercent is (new-old)/old*100 rounded to 4 places; a zero old rate gives zero.
func RateVariationPercent(oldRate, newRate Rate) decimal.Decimal {
	if oldRate.IsZero() {
		return decimal.Zero
	}
	return newRate.Sub(oldRate.Decimal).
		Div(oldRate.Decimal).
		Mul(decimal.NewFromInt(100)).
		Round(4)
}
