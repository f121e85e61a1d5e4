package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	currency "go-erp-currency"
	"go-erp-currency/api"
)

// Service converts amounts between currencies
type Service interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (currency.Conversion, error)
}

// SourceIdentity is the rate source reported for a conversion into the same currency
const SourceIdentity = "identity"

// service converts through the ERP API, the only authority on rates
type service struct {
	// apiService to run conversions against
	apiService api.Service
}

// NewService constructs a valid Service
func NewService(s api.Service) Service {
	return &service{
		apiService: s,
	}
}

// Convert asks the API for a conversion from one currency to another.
// Converting a currency into itself returns the amount unchanged without a request.
func (s *service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (currency.Conversion, error) {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return currency.Conversion{}, fmt.Errorf("%w: both currencies are required", currency.ErrValidation)
	}

	if from == to {
		return currency.Conversion{
			OriginalAmount:   amount,
			OriginalCurrency: from,
			ConvertedAmount:  amount,
			TargetCurrency:   to,
			RateMetadata: currency.RateMetadata{
				Rate:   currency.One(),
				Method: currency.MethodDirect,
				Source: SourceIdentity,
			},
			ConversionMethod: currency.MethodDirect,
		}, nil
	}

	conversion, err := s.apiService.Convert(ctx, from, to, amount)
	if err != nil {
		return currency.Conversion{}, fmt.Errorf("convert [%v -> %v]: %w", from, to, err)
	}
	return conversion, nil
}
