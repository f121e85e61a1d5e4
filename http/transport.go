package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	currency "go-erp-currency"
	"go-erp-currency/api"
	"go-erp-currency/display"
	"go-erp-currency/errmsg"
	"go-erp-currency/exchange"
	"go-erp-currency/refprice"
	"go-erp-currency/store"
)

// Server dependencies for HTTP Server functions
type Server struct {
	API      api.Service
	Exchange exchange.Service
	logger   log.Logger
	router   *gin.Engine
}

// NewServer builds the view host. apiService should be the shared caching service
// so that every widget on a page reads one copy of the rate table.
func NewServer(apiService api.Service, exchangeService exchange.Service, logger log.Logger) *Server {
	server := &Server{
		API:      apiService,
		Exchange: exchangeService,
		logger:   logger,
		router:   gin.New(),
	}
	server.router.Use(gin.Recovery(), server.requestLogging())
	server.routes()
	return server
}

func (s *Server) routes() {
	r := s.router.Group("/api")
	r.GET("/currencies", s.currencies())
	r.GET("/currencies/:id/badge", s.badge())
	r.GET("/currencies/:id/history", s.history())
	r.POST("/currencies/:id/rate", s.updateRate())
	r.GET("/conversion-factors", s.conversionFactors())
	r.GET("/options", s.options())
	r.GET("/amount", s.amount())
	r.GET("/ref-price", s.refPrice())
	r.GET("/rates/today", s.todayRate())
	r.POST("/rates/sync-bcv", s.syncBCV())
	r.POST("/convert", s.convert())
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// widget a fresh store per request over the shared services
func (s *Server) widget(c *gin.Context) *store.Store {
	return store.New(s.API, store.WithExchange(s.Exchange), store.WithLogger(requestLogger(c, s.logger)))
}

// currencies lists the tenant currencies, ?is_active=true|false narrows the list
func (s *Server) currencies() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := currency.ParseFilter(c.Query("is_active"))
		if err != nil {
			fail(c, err)
			return
		}
		list, err := s.widget(c).FetchCurrencies(c.Request.Context(), filter)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (s *Server) badge() gin.HandlerFunc {
	type response struct {
		ID    currency.ID `json:"id"`
		Badge string      `json:"badge"`
	}

	return func(c *gin.Context) {
		list, err := s.widget(c).FetchCurrencies(c.Request.Context(), currency.All)
		if err != nil {
			fail(c, err)
			return
		}
		id := currency.ID(c.Param("id"))
		c.JSON(http.StatusOK, response{ID: id, Badge: display.Badge(id, list)})
	}
}

func (s *Server) history() gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := s.widget(c).FetchRateHistory(c.Request.Context(), currency.ID(c.Param("id")))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

// updateRate any failure, local or remote, is answered 422 with the message to show.
// An accepted update whose reload failed is still a 200, with the reload error as warning.
func (s *Server) updateRate() gin.HandlerFunc {

	// response the updated currency plus any warning left in the widget state
	type response struct {
		currency.Currency
		Warning string `json:"warning,omitempty"`
	}

	return func(c *gin.Context) {
		var form currency.RateUpdate
		if err := c.ShouldBindJSON(&form); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Formulario inválido"})
			return
		}
		w := s.widget(c)
		updated, err := w.UpdateCurrencyRate(c.Request.Context(), currency.ID(c.Param("id")), form)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errmsg.Extract(err)})
			return
		}
		c.JSON(http.StatusOK, response{Currency: updated, Warning: w.Snapshot().Error})
	}
}

func (s *Server) conversionFactors() gin.HandlerFunc {
	return func(c *gin.Context) {
		factors, err := s.widget(c).FetchConversionFactors(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, display.FactorTable(factors))
	}
}

func (s *Server) options() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.widget(c).FetchCurrencies(c.Request.Context(), currency.Active)
		if err != nil {
			fail(c, err)
			return
		}
		excludeBase, _ := strconv.ParseBool(c.DefaultQuery("exclude_base", "false"))
		c.JSON(http.StatusOK, display.Options(list, display.SelectorOptions{ExcludeBase: excludeBase}))
	}
}

// amount renders ?amount= in ?currency_id=, with ?convert=true adding the base equivalent
func (s *Server) amount() gin.HandlerFunc {
	return func(c *gin.Context) {
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Monto inválido"})
			return
		}
		list, err := s.widget(c).FetchCurrencies(c.Request.Context(), currency.All)
		if err != nil {
			fail(c, err)
			return
		}
		convert, _ := strconv.ParseBool(c.DefaultQuery("convert", "false"))
		renderer := display.AmountRenderer{Currencies: list, Converter: s.Exchange, Convert: convert}
		rendered, err := renderer.Render(c.Request.Context(), amount, currency.ID(c.Query("currency_id")))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rendered)
	}
}

// refPrice always answers 200; the calculator state says what to show
func (s *Server) refPrice() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := refprice.New(s.API).Calculate(c.Request.Context(), c.Query("usd"))
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) todayRate() gin.HandlerFunc {
	return func(c *gin.Context) {
		rate, err := s.widget(c).TodayRate(c.Request.Context(), c.DefaultQuery("from", "USD"), c.DefaultQuery("to", "VES"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rate)
	}
}

func (s *Server) syncBCV() gin.HandlerFunc {
	return func(c *gin.Context) {
		w := s.widget(c)
		if err := w.SyncBCV(c.Request.Context()); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, w.Snapshot().Currencies)
	}
}

// convert produces HTTP handler for currency conversions
func (s *Server) convert() gin.HandlerFunc {

	// request for unmarshalling JSON requests posted by clients
	type request struct {
		FromCurrency string          `json:"fromCurrency" binding:"required"`
		ToCurrency   string          `json:"toCurrency" binding:"required"`
		Amount       decimal.Decimal `json:"amount"`
	}

	// response for marshalling JSON responses to return to clients
	type response struct {
		Exchange currency.Rate   `json:"exchange"`
		Amount   decimal.Decimal `json:"amount"`
		Original decimal.Decimal `json:"original"`
		Source   string          `json:"source,omitempty"`
	}

	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}

		result, err := s.widget(c).ConvertCurrency(c.Request.Context(), req.FromCurrency, req.ToCurrency, req.Amount)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, response{
			Exchange: result.RateMetadata.Rate,
			Amount:   result.ConvertedAmount,
			Original: req.Amount,
			Source:   result.RateMetadata.Source,
		})
	}
}

// fail answers {"error": message} with a status derived from err
func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": errmsg.Extract(err)})
}

func statusFor(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, currency.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, currency.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

const loggerKey = "logger"

// requestLogging tags each request with an id and logs its completion
func (s *Server) requestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		begin := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		logger := log.With(s.logger, "request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Set(loggerKey, logger)

		c.Next()

		status := c.Writer.Status()
		l := level.Info(logger)
		if status >= http.StatusInternalServerError {
			l = level.Error(logger)
		}
		l.Log(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"took", time.Since(begin),
		)
	}
}

func requestLogger(c *gin.Context, fallback log.Logger) log.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(log.Logger); ok {
			return logger
		}
	}
	return fallback
}
