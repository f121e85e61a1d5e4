package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	currency "go-erp-currency"
)

// DefaultTimeout applied to every request when no other timeout is configured
const DefaultTimeout = 10 * time.Second

// Service wraps the ERP currency REST API
type Service interface {
	ListCurrencies(ctx context.Context, filter currency.Filter) (currency.Currencies, error)
	ConversionFactors(ctx context.Context) ([]currency.ConversionFactor, error)
	RateHistory(ctx context.Context, id currency.ID) ([]currency.RateHistory, error)
	UpdateRate(ctx context.Context, id currency.ID, form currency.RateUpdate) (currency.Currency, error)
	TodayRate(ctx context.Context, from, to string) (currency.TodayRate, error)
	SyncBCV(ctx context.Context) error
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (currency.Conversion, error)
}

// service ERP REST API
type service struct {
	// url base API url
	url string

	// token bearer token, if any
	token string

	// tenant sent as X-Tenant-ID, if any
	tenant string

	// client for HTTP requests
	client http.Client
}

// Option configures a Service built by NewService
type Option func(*service)

// WithTimeout sets the fixed request timeout
func WithTimeout(d time.Duration) Option {
	return func(s *service) { s.client.Timeout = d }
}

// WithToken authenticates every request with a bearer token
func WithToken(token string) Option {
	return func(s *service) { s.token = token }
}

// WithTenant scopes every request to a tenant
func WithTenant(tenant string) Option {
	return func(s *service) { s.tenant = tenant }
}

// WithTransport swaps the HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(s *service) { s.client.Transport = rt }
}

// NewService constructs a valid Service against the API rooted at baseURL.
func NewService(baseURL string, opts ...Option) Service {
	s := &service{
		url: strings.TrimRight(baseURL, "/"),
		client: http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ListCurrencies(ctx context.Context, filter currency.Filter) (currency.Currencies, error) {
	query := url.Values{}
	if q := filter.Query(); q != "" {
		query.Set("is_active", q)
	}
	currencies := currency.Currencies{}
	if err := s.do(ctx, http.MethodGet, "/currencies", query, nil, &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}

func (s *service) ConversionFactors(ctx context.Context) ([]currency.ConversionFactor, error) {
	factors := []currency.ConversionFactor{}
	if err := s.do(ctx, http.MethodGet, "/currencies/rates/conversion-factors", nil, nil, &factors); err != nil {
		return nil, err
	}
	return factors, nil
}

func (s *service) RateHistory(ctx context.Context, id currency.ID) ([]currency.RateHistory, error) {
	history := []currency.RateHistory{}
	path := fmt.Sprintf("/currencies/%s/rate-history", url.PathEscape(string(id)))
	if err := s.do(ctx, http.MethodGet, path, nil, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *service) UpdateRate(ctx context.Context, id currency.ID, form currency.RateUpdate) (currency.Currency, error) {
	var updated currency.Currency
	path := fmt.Sprintf("/currencies/%s/rate", url.PathEscape(string(id)))
	if err := s.do(ctx, http.MethodPost, path, nil, form, &updated); err != nil {
		return currency.Currency{}, err
	}
	return updated, nil
}

func (s *service) TodayRate(ctx context.Context, from, to string) (currency.TodayRate, error) {
	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)
	var rate currency.TodayRate
	if err := s.do(ctx, http.MethodGet, "/rates/today", query, nil, &rate); err != nil {
		return currency.TodayRate{}, err
	}
	if rate.From == "" {
		rate.From = from
	}
	if rate.To == "" {
		rate.To = to
	}
	return rate, nil
}

func (s *service) SyncBCV(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/rates/sync-bcv", nil, nil, nil)
}

func (s *service) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (currency.Conversion, error) {
	type request struct {
		From   string          `json:"from"`
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	}
	var conversion currency.Conversion
	err := s.do(ctx, http.MethodPost, "/currencies/convert", nil, request{From: from, To: to, Amount: amount}, &conversion)
	if err != nil {
		return currency.Conversion{}, err
	}
	return conversion, nil
}

// do sends one request and decodes the JSON response into out.
func (s *service) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	addr := s.url + path
	if len(query) > 0 {
		addr += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, method, addr, body)
	if err != nil {
		return fmt.Errorf("building http request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		request.Header.Set("Authorization", "Bearer "+s.token)
	}
	if s.tenant != "" {
		request.Header.Set("X-Tenant-ID", s.tenant)
	}

	httpResponse, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer httpResponse.Body.Close()

	raw, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return fmt.Errorf("reading json: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return &Error{Method: method, Path: path, StatusCode: httpResponse.StatusCode, body: raw}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrap(raw), out); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}
	return nil
}

// unwrap strips a {"data": ...} envelope when the API sends one.
func unwrap(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return raw
	}
	if data, ok := envelope["data"]; ok && len(envelope) <= 3 {
		return data
	}
	return raw
}
