package api

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/shopspring/decimal"

	currency "go-erp-currency"
)

// loggingService decorates a Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService return a new logging service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) ListCurrencies(ctx context.Context, filter currency.Filter) (currencies currency.Currencies, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "list_currencies",
			"filter", filter,
			"count", len(currencies),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListCurrencies(ctx, filter)
}

func (s *loggingService) ConversionFactors(ctx context.Context) (factors []currency.ConversionFactor, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "conversion_factors",
			"count", len(factors),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ConversionFactors(ctx)
}

func (s *loggingService) RateHistory(ctx context.Context, id currency.ID) (history []currency.RateHistory, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "rate_history",
			"currency_id", id,
			"count", len(history),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.RateHistory(ctx, id)
}

func (s *loggingService) UpdateRate(ctx context.Context, id currency.ID, form currency.RateUpdate) (updated currency.Currency, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "update_rate",
			"currency_id", id,
			"new_rate", form.NewRate,
			"change_type", form.ChangeType,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.UpdateRate(ctx, id, form)
}

func (s *loggingService) TodayRate(ctx context.Context, from, to string) (rate currency.TodayRate, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "today_rate",
			"from", from,
			"to", to,
			"source", rate.Source,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.TodayRate(ctx, from, to)
}

func (s *loggingService) SyncBCV(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "sync_bcv",
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SyncBCV(ctx)
}

func (s *loggingService) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (conversion currency.Conversion, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "convert",
			"from", from,
			"to", to,
			"amount", amount,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Convert(ctx, from, to, amount)
}
