// Package apitest runs an in-memory ERP currency API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	currency "go-erp-currency"
)

// Server a fake ERP backend holding one tenant's currency table
type Server struct {
	*httptest.Server

	// BCVRate is what SyncBCV sets the VES rate to
	BCVRate currency.Rate

	// Delay is slept before answering every request
	Delay time.Duration

	currencies currency.Currencies
	history    map[currency.ID][]currency.RateHistory
	calls      map[string]int
	failures   map[string]failure
	headers    []http.Header
	nextID     int

	lock sync.Mutex
}

type failure struct {
	status int
	body   string
}

// NewServer starts a fake backend seeded with currencies
func NewServer(seed currency.Currencies) *Server {
	s := &Server{
		BCVRate:    currency.MustRate("36.5"),
		currencies: append(currency.Currencies{}, seed...),
		history:    map[currency.ID][]currency.RateHistory{},
		calls:      map[string]int{},
		failures:   map[string]failure{},
		nextID:     1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /currencies", s.route("list", s.list))
	mux.HandleFunc("GET /currencies/rates/conversion-factors", s.route("factors", s.factors))
	mux.HandleFunc("GET /currencies/{id}/rate-history", s.route("history", s.rateHistory))
	mux.HandleFunc("POST /currencies/{id}/rate", s.route("update", s.update))
	mux.HandleFunc("POST /currencies/convert", s.route("convert", s.convert))
	mux.HandleFunc("GET /rates/today", s.route("today", s.today))
	mux.HandleFunc("POST /rates/sync-bcv", s.route("sync", s.sync))
	s.Server = httptest.NewServer(mux)
	return s
}

// Calls reports how many requests reached route (list, factors, history, update, convert, today, sync)
func (s *Server) Calls(route string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[route]
}

// Fail makes every following request to route answer status with body
func (s *Server) Fail(route string, status int, body string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

// Recover clears a failure set by Fail
func (s *Server) Recover(route string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.failures, route)
}

// Headers returns the headers of every request received so far
func (s *Server) Headers() []http.Header {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]http.Header{}, s.headers...)
}

// Currency returns the server side copy of a currency
func (s *Server) Currency(id currency.ID) (currency.Currency, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.currencies.ByID(id)
}

func (s *Server) route(name string, h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		if s.Delay > 0 {
			time.Sleep(s.Delay)
		}
		s.lock.Lock()
		s.calls[name]++
		s.headers = append(s.headers, req.Header.Clone())
		f, failing := s.failures[name]
		s.lock.Unlock()

		if failing {
			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(f.status)
			_, _ = rw.Write([]byte(f.body))
			return
		}
		h(rw, req)
	}
}

func (s *Server) list(rw http.ResponseWriter, req *http.Request) {
	filter, err := currency.ParseFilter(req.URL.Query().Get("is_active"))
	if err != nil {
		writeDetail(rw, http.StatusUnprocessableEntity, "query", "is_active", err.Error())
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	out := currency.Currencies{}
	for _, c := range s.currencies {
		if filter == currency.All || (filter == currency.Active) == c.IsActive {
			out = append(out, c)
		}
	}
	writeJSON(rw, http.StatusOK, out)
}

func (s *Server) factors(rw http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := []currency.ConversionFactor{}
	for _, c := range s.currencies {
		rate := c.EffectiveRate()
		out = append(out, currency.ConversionFactor{
			CurrencyID:       c.ID,
			Code:             c.Code,
			ExchangeRate:     rate,
			ConversionFactor: &rate,
			ConversionMethod: currency.MethodDirect,
			AppliesIGTF:      c.AppliesIGTF,
			IGTFRate:         c.IGTFRate,
		})
	}
	writeJSON(rw, http.StatusOK, out)
}

func (s *Server) rateHistory(rw http.ResponseWriter, req *http.Request) {
	id := currency.ID(req.PathValue("id"))
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.currencies.ByID(id); !ok {
		writeJSON(rw, http.StatusNotFound, map[string]string{"detail": "Moneda no encontrada"})
		return
	}
	out := append([]currency.RateHistory{}, s.history[id]...)
	writeJSON(rw, http.StatusOK, out)
}

func (s *Server) update(rw http.ResponseWriter, req *http.Request) {
	id := currency.ID(req.PathValue("id"))
	var form currency.RateUpdate
	if err := json.NewDecoder(req.Body).Decode(&form); err != nil {
		writeDetail(rw, http.StatusUnprocessableEntity, "body", "", "JSON inválido")
		return
	}
	rate, err := currency.ParseRate(form.NewRate)
	if err != nil {
		writeDetail(rw, http.StatusUnprocessableEntity, "body", "new_rate", "La tasa debe ser un número positivo")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	i := s.index(id)
	if i < 0 {
		writeJSON(rw, http.StatusNotFound, map[string]string{"detail": "Moneda no encontrada"})
		return
	}
	if s.currencies[i].IsBaseCurrency {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"detail": "No se puede modificar la tasa de la moneda base"})
		return
	}
	changeType := form.ChangeType
	if changeType == "" {
		changeType = currency.ChangeManual
	}
	s.apply(i, rate, changeType, form.ChangeSource, form.ChangeReason)
	writeJSON(rw, http.StatusOK, s.currencies[i])
}

func (s *Server) convert(rw http.ResponseWriter, req *http.Request) {
	var in struct {
		From   string          `json:"from"`
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeDetail(rw, http.StatusUnprocessableEntity, "body", "amount", "Monto inválido")
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	from, okFrom := s.currencies.ByCode(in.From)
	to, okTo := s.currencies.ByCode(in.To)
	if !okFrom || !okTo {
		writeJSON(rw, http.StatusNotFound, map[string]string{"detail": "Moneda no encontrada"})
		return
	}
	rate := to.EffectiveRate().Div(from.EffectiveRate().Decimal)
	writeJSON(rw, http.StatusOK, currency.Conversion{
		OriginalAmount:   in.Amount,
		OriginalCurrency: from.Code,
		ConvertedAmount:  in.Amount.Mul(rate).Round(2),
		TargetCurrency:   to.Code,
		RateMetadata: currency.RateMetadata{
			Rate:          currency.Rate{Decimal: rate},
			Method:        currency.MethodDirect,
			Source:        "database",
			CurrencyID:    to.ID,
			DecimalPlaces: 2,
			LastUpdate:    to.LastRateUpdate,
		},
		ConversionMethod: currency.MethodDirect,
	})
}

func (s *Server) today(rw http.ResponseWriter, req *http.Request) {
	from, to := req.URL.Query().Get("from"), req.URL.Query().Get("to")
	s.lock.Lock()
	defer s.lock.Unlock()
	src, okFrom := s.currencies.ByCode(from)
	dst, okTo := s.currencies.ByCode(to)
	if !okFrom || !okTo {
		writeJSON(rw, http.StatusNotFound, map[string]string{"detail": "No hay tasa para " + from + "/" + to})
		return
	}
	rate := dst.EffectiveRate().Div(src.EffectiveRate().Decimal)
	writeJSON(rw, http.StatusOK, currency.TodayRate{
		From:        from,
		To:          to,
		Rate:        currency.Rate{Decimal: rate},
		RateDate:    currency.Timestamp{Time: time.Now().UTC().Truncate(24 * time.Hour)},
		Source:      "BCV",
		InverseRate: currency.Rate{Decimal: decimal.NewFromInt(1).DivRound(rate, currency.RatePrecision)},
	})
}

func (s *Server) sync(rw http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if i := s.indexCode("VES"); i >= 0 {
		s.apply(i, s.BCVRate, currency.ChangeAutomaticAPI, "BCV", "Sincronización automática")
	}
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

// apply sets a new rate and records history, newest first. Holds lock.
func (s *Server) apply(i int, rate currency.Rate, changeType currency.ChangeType, source, reason string) {
	c := &s.currencies[i]
	now := currency.Timestamp{Time: time.Now().UTC()}
	record := currency.RateHistory{
		ID:                   currency.ID(strconv.Itoa(s.nextID)),
		CurrencyID:           c.ID,
		OldRate:              c.ExchangeRate,
		NewRate:              rate,
		RateVariationPercent: currency.RateVariationPercent(c.ExchangeRate, rate),
		ChangeType:           changeType,
		ChangeSource:         source,
		ChangeReason:         reason,
		ChangedBy:            "1",
		ChangedAt:            now,
	}
	s.nextID++
	s.history[c.ID] = append([]currency.RateHistory{record}, s.history[c.ID]...)
	c.ExchangeRate = rate
	c.LastRateUpdate = &now
}

func (s *Server) index(id currency.ID) int {
	for i, c := range s.currencies {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) indexCode(code string) int {
	for i, c := range s.currencies {
		if strings.EqualFold(c.Code, code) {
			return i
		}
	}
	return -1
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// writeDetail answers with a validation error shaped {"detail": [{"loc": [...], "msg": ...}]}
func writeDetail(rw http.ResponseWriter, status int, where, field, msg string) {
	loc := []string{where}
	if field != "" {
		loc = append(loc, field)
	}
	writeJSON(rw, status, map[string]any{
		"detail": []map[string]any{{"loc": loc, "msg": msg, "type": "value_error"}},
	})
}
