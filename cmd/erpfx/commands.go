package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	nhttp "net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	currency "go-erp-currency"
	"go-erp-currency/app"
	"go-erp-currency/display"
	"go-erp-currency/errmsg"
	"go-erp-currency/http"
	"go-erp-currency/refprice"
)

// env is handed to every command as its first Execute argument
type env struct {
	out  io.Writer
	load func() (*app.App, error)
}

var commands = []subcommands.Command{
	&currenciesCmd{},
	&historyCmd{},
	&updateRateCmd{},
	&convertCmd{},
	&todayCmd{},
	&syncBCVCmd{},
	&refCmd{},
	&serveCmd{},
}

// setup resolves the env argument and builds the services
func setup(args []interface{}) (*env, *app.App, subcommands.ExitStatus) {
	if len(args) == 0 {
		return nil, nil, subcommands.ExitFailure
	}
	e, ok := args[0].(*env)
	if !ok {
		return nil, nil, subcommands.ExitFailure
	}
	a, err := e.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, nil, subcommands.ExitFailure
	}
	return e, a, subcommands.ExitSuccess
}

func failure(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", errmsg.Extract(err))
	if errors.Is(err, currency.ErrValidation) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

type currenciesCmd struct {
	active   bool
	inactive bool
}

func (*currenciesCmd) Name() string     { return "currencies" }
func (*currenciesCmd) Synopsis() string { return "list the tenant currencies and their rates" }
func (*currenciesCmd) Usage() string {
	return `currencies [-active | -inactive]

  Lists every currency with its badge, rate against the base currency and IGTF.
`
}

func (c *currenciesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.active, "active", false, "only active currencies")
	f.BoolVar(&c.inactive, "inactive", false, "only inactive currencies")
}

func (c *currenciesCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.active && c.inactive {
		fmt.Fprintln(os.Stderr, "Error: -active and -inactive are exclusive")
		return subcommands.ExitUsageError
	}
	e, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	filter := currency.All
	switch {
	case c.active:
		filter = currency.Active
	case c.inactive:
		filter = currency.Inactive
	}

	list, err := a.Store().FetchCurrencies(ctx, filter)
	if err != nil {
		return failure(err)
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCURRENCY\tNAME\tRATE\tACTIVE\tIGTF")
	for _, cur := range list {
		igtf := display.Unknown
		if cur.AppliesIGTF {
			igtf = cur.IGTFRate.String() + "%"
		}
		name := cur.Name
		if cur.IsBaseCurrency {
			name += " (base)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", cur.ID, display.Badge(cur.ID, list), name, cur.EffectiveRate(), cur.IsActive, igtf)
	}
	if err := w.Flush(); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

type historyCmd struct{}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the rate history of a currency" }
func (*historyCmd) Usage() string {
	return `history <currency-id>

  Prints the rate changes of a currency, newest first.
`
}
func (*historyCmd) SetFlags(*flag.FlagSet) {}

func (*historyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a currency id is required")
		return subcommands.ExitUsageError
	}
	e, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	history, err := a.Store().FetchRateHistory(ctx, currency.ID(f.Arg(0)))
	if err != nil {
		return failure(err)
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tOLD\tNEW\tVARIATION\tTYPE\tSOURCE\tREASON")
	for _, h := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%s\t%s\t%s\n",
			h.ChangedAt.Format(time.DateTime), h.OldRate, h.NewRate, h.RateVariationPercent.StringFixed(4),
			h.ChangeType, h.ChangeSource, h.ChangeReason)
	}
	if err := w.Flush(); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

type updateRateCmd struct {
	id     string
	form   currency.RateUpdate
	change string
}

func (*updateRateCmd) Name() string     { return "update-rate" }
func (*updateRateCmd) Synopsis() string { return "change the exchange rate of a currency" }
func (*updateRateCmd) Usage() string {
	return `update-rate -id <currency-id> -rate <rate> [-reason <text>] [-type manual|automatic_api|scheduled|correction] [-source <text>]

  Submits a new rate. The rate is validated locally before anything is sent.
`
}

func (c *updateRateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "currency id (required)")
	f.StringVar(&c.form.NewRate, "rate", "", "new rate, up to 10 decimals (required)")
	f.StringVar(&c.form.ChangeReason, "reason", "", "reason for the change")
	f.StringVar(&c.change, "type", string(currency.ChangeManual), "change type")
	f.StringVar(&c.form.ChangeSource, "source", "", "where the rate comes from")
}

func (c *updateRateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}
	c.form.ChangeType = currency.ChangeType(c.change)
	if err := c.form.Validate(); err != nil {
		return failure(err)
	}
	e, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	w := a.Store()
	updated, err := w.UpdateCurrencyRate(ctx, currency.ID(c.id), c.form)
	if err != nil {
		return failure(err)
	}
	fmt.Fprintf(e.out, "%s %s\n", updated.Code, updated.ExchangeRate)
	if warning := w.Snapshot().Error; warning != "" {
		fmt.Fprintln(os.Stderr, "Warning:", warning)
	}
	return subcommands.ExitSuccess
}

type convertCmd struct {
	from, to, amount string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "convert an amount between currencies" }
func (*convertCmd) Usage() string {
	return `convert -from <code> -to <code> -amount <amount>
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "source currency code (required)")
	f.StringVar(&c.to, "to", "", "target currency code (required)")
	f.StringVar(&c.amount, "amount", "", "amount to convert (required)")
}

func (c *convertCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid amount %q\n", c.amount)
		return subcommands.ExitUsageError
	}
	e, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	conversion, err := a.Store().ConvertCurrency(ctx, c.from, c.to, amount)
	if err != nil {
		return failure(err)
	}
	fmt.Fprintf(e.out, "%s %s = %s %s (rate %s, %s)\n",
		conversion.OriginalAmount, conversion.OriginalCurrency,
		conversion.ConvertedAmount.StringFixed(display.AmountDecimals), conversion.TargetCurrency,
		conversion.RateMetadata.Rate, conversion.RateMetadata.Source)
	return subcommands.ExitSuccess
}

type todayCmd struct {
	from, to string
}

func (*todayCmd) Name() string     { return "today" }
func (*todayCmd) Synopsis() string { return "show the official rate of the day" }
func (*todayCmd) Usage() string {
	return `today [-from USD] [-to VES]
`
}

func (c *todayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "USD", "source currency code")
	f.StringVar(&c.to, "to", "VES", "target currency code")
}

func (c *todayCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	rate, err := a.Store().TodayRate(ctx, c.from, c.to)
	if err != nil {
		return failure(err)
	}
	fmt.Fprintf(e.out, "%s/%s %s (%s, %s)\n", rate.From, rate.To, rate.Rate, rate.Source, rate.RateDate.Format(time.DateOnly))
	return subcommands.ExitSuccess
}

type syncBCVCmd struct{}

func (*syncBCVCmd) Name() string             { return "sync-bcv" }
func (*syncBCVCmd) Synopsis() string         { return "pull the official BCV rates into the ERP" }
func (*syncBCVCmd) Usage() string            { return "sync-bcv\n" }
func (*syncBCVCmd) SetFlags(_ *flag.FlagSet) {}

func (*syncBCVCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	s := a.Store()
	if err := s.SyncBCV(ctx); err != nil {
		return failure(err)
	}
	for _, c := range s.Snapshot().Currencies.WithoutBase() {
		fmt.Fprintf(e.out, "%s %s\n", c.Code, c.ExchangeRate)
	}
	return subcommands.ExitSuccess
}

type refCmd struct{}

func (*refCmd) Name() string     { return "ref" }
func (*refCmd) Synopsis() string { return "show the bolívar reference of a dollar price" }
func (*refCmd) Usage() string {
	return `ref <usd-price>

  Multiplies the price by today's USD/VES rate. The result is advisory.
`
}
func (*refCmd) SetFlags(*flag.FlagSet) {}

func (*refCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a USD price is required")
		return subcommands.ExitUsageError
	}
	e, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	result := refprice.New(a.API).Calculate(ctx, f.Arg(0))
	switch result.State {
	case refprice.Hidden:
		fmt.Fprintln(os.Stderr, "Error: the price must be a positive number")
		return subcommands.ExitUsageError
	case refprice.Failed:
		fmt.Fprintln(os.Stderr, "Error:", result.Error)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(e.out, "REF %s (%s %s)\n", result.Display, result.Source, result.Rate)
	return subcommands.ExitSuccess
}

type serveCmd struct {
	listen string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the currency widgets over HTTP" }
func (*serveCmd) Usage() string {
	return `serve [-listen :8080]
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.listen, "listen", "", "listen address, defaults to ERPFX_LISTEN")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	_, a, status := setup(args)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	addr := c.listen
	if addr == "" {
		addr = a.Config.Listen
	}
	gin.SetMode(a.Config.GinMode)
	srv := &nhttp.Server{
		Addr:              addr,
		Handler:           http.NewServer(a.API, a.Exchange, a.Logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	level.Info(a.Logger).Log("msg", "listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		level.Error(a.Logger).Log("msg", "server stopped", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
