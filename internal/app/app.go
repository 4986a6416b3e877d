package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/collector"
	"github.com/newthinker/quantlab/internal/collector/parquetfile"
	"github.com/newthinker/quantlab/internal/collector/yahoo"
	"github.com/newthinker/quantlab/internal/config"
	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/metrics"
	"github.com/newthinker/quantlab/internal/notifier"
	"github.com/newthinker/quantlab/internal/notifier/email"
	"github.com/newthinker/quantlab/internal/notifier/telegram"
	"github.com/newthinker/quantlab/internal/notifier/webhook"
	"github.com/newthinker/quantlab/internal/performance"
	"github.com/newthinker/quantlab/internal/report"
	"github.com/newthinker/quantlab/internal/storage/archive"
	"github.com/newthinker/quantlab/internal/strategy"
	"github.com/newthinker/quantlab/internal/strategy/builtin"
)

// sessionWindow is how far back the daily report looks for the last session.
// Covers long weekends on intraday intervals.
const sessionWindow = 5 * 24 * time.Hour

// Option customizes App construction
type Option func(*options)

type options struct {
	provider  collector.Provider
	storage   archive.Storage
	now       func() time.Time
	notifiers []notifier.Notifier
}

// WithProvider replaces the configured bar provider
func WithProvider(p collector.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithStorage replaces the configured report archive
func WithStorage(s archive.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithNotifier adds a report notifier on top of the configured ones
func WithNotifier(n notifier.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithClock sets the time source used by reports and the scheduler
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// App wires configuration into providers, strategies, the backtester and
// the report writer, and runs the daily report schedule.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	collectors *collector.Registry
	provider   collector.Provider // backtest bars, possibly cached
	intraday   collector.Provider // daily report bars, never cached
	strategies *strategy.Engine
	backtester *backtest.Backtester
	writer     *report.Writer
	notifiers  *notifier.Registry
	loc        *time.Location
	now        func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("nil config"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		strategies: builtin.NewEngine(logger),
		loc:        time.UTC,
		now:        o.now,
	}

	if cfg.Report.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Report.Timezone)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		a.loc = loc
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	if err := a.setupProviders(o.provider); err != nil {
		return nil, err
	}

	storage := o.storage
	if storage == nil {
		s, err := archive.New(cfg.Storage.Reports.Archive())
		if err != nil {
			return nil, err
		}
		storage = s
	}
	a.writer = report.NewWriter(storage, logger)

	notifiers, err := buildNotifiers(cfg.Notifiers, o.notifiers)
	if err != nil {
		return nil, err
	}
	a.notifiers = notifiers

	btOpts := []backtest.Option{backtest.WithLogger(logger)}
	if a.metrics != nil {
		btOpts = append(btOpts, backtest.WithRecorder(a.metrics))
	}
	a.backtester = backtest.New(a.provider, a.strategies, a.settings(), btOpts...)

	logger.Debug("app initialized",
		zap.String("provider", a.provider.Name()),
		zap.Strings("strategies", a.strategies.Names()),
		zap.Int("assets", len(cfg.Assets)),
		zap.Strings("notifiers", a.notifiers.Names()),
	)
	return a, nil
}

func buildNotifiers(cfgs []notifier.Config, extra []notifier.Notifier) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for _, nc := range cfgs {
		var n notifier.Notifier
		switch nc.Type {
		case "webhook":
			n = webhook.New("", nil)
		case "telegram":
			n = telegram.New("", "")
		case "email":
			n = email.New("", 0, "", "", "", nil)
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier type %q", nc.Type))
		}
		if err := n.Init(nc); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if err := reg.Register(n); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	for _, n := range extra {
		if err := reg.Register(n); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	return reg, nil
}

func (a *App) setupProviders(override collector.Provider) error {
	if override != nil {
		a.collectors.Register(override)
		a.provider, a.intraday = override, override
		return nil
	}

	client := &http.Client{Timeout: a.cfg.Data.Timeout}
	a.collectors.Register(yahoo.New(yahoo.WithHTTPClient(client)))
	store := parquetfile.New(a.cfg.Data.Path)
	a.collectors.Register(store)

	p, err := a.collectors.MustGet(a.cfg.Data.Provider)
	if err != nil {
		return err
	}
	a.provider, a.intraday = p, p

	if a.cfg.Data.Cache && p.Name() != store.Name() {
		a.provider = parquetfile.NewCache(p, store, a.logger)
	}
	return nil
}

func (a *App) settings() backtest.Settings {
	b := a.cfg.Backtest
	return backtest.Settings{
		InitialCapital: b.InitialCapital,
		PeriodsPerYear: b.PeriodsPerYear,
		RiskFreeRate:   b.RiskFreeRate,
		Interval:       b.Interval,
		Parallelism:    b.Parallelism,
	}
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Logger() *zap.Logger { return a.logger }
func (a *App) Backtester() *backtest.Backtester { return a.backtester }
func (a *App) Strategies() *strategy.Engine { return a.strategies }
func (a *App) Provider() collector.Provider { return a.provider }
func (a *App) Collectors() *collector.Registry { return a.collectors }
func (a *App) Writer() *report.Writer { return a.writer }
func (a *App) Location() *time.Location { return a.loc }
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Metrics returns the Prometheus registry, nil when metrics are disabled.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Request builds a backtest request with configured params for the strategy.
// Zero bounds fall back to the configured lookback ending now.
func (a *App) Request(symbol, strategyName string, start, end time.Time) backtest.Request {
	if end.IsZero() {
		end = a.now()
	}
	if start.IsZero() && a.cfg.Backtest.LookbackDays > 0 {
		start = end.AddDate(0, 0, -a.cfg.Backtest.LookbackDays)
	}
	return backtest.Request{
		Symbol:   symbol,
		Strategy: strategyName,
		Params:   a.cfg.StrategyParams(strategyName),
		Start:    start,
		End:      end,
	}
}

// EnabledStrategies returns the registered strategies not disabled in config.
func (a *App) EnabledStrategies() []string {
	return a.cfg.EnabledStrategies(a.strategies.Names())
}

// DailyReport builds and stores the report for the asset's most recent session.
func (a *App) DailyReport(ctx context.Context, asset config.Asset) (*report.DailyReport, string, error) {
	now := a.now()
	bars, err := a.intraday.FetchHistory(ctx, asset.Symbol, now.Add(-sessionWindow), now, a.cfg.Report.Interval)
	if err != nil {
		return nil, "", err
	}

	session := LastSession(bars, a.loc)
	if len(session) == 0 {
		return nil, "", core.WrapError(core.ErrNoData, fmt.Errorf("no session bars for %s", asset.Symbol))
	}

	r, err := report.Daily(asset.Symbol, asset.Name, session, now.In(a.loc),
		performance.WithPeriodsPerYear(a.cfg.Backtest.PeriodsPerYear),
		performance.WithRiskFreeRate(a.cfg.Backtest.RiskFreeRate),
	)
	if err != nil {
		return nil, "", err
	}
	r.Currency = asset.Currency

	path, err := a.writer.WriteDaily(ctx, r)
	if err != nil {
		return nil, "", err
	}
	return r, path, nil
}

// RunDailyReports reports every configured asset. Failures are logged and
// joined; one asset failing does not stop the others.
func (a *App) RunDailyReports(ctx context.Context) ([]*report.DailyReport, error) {
	var (
		reports []*report.DailyReport
		errs    []error
	)
	for _, asset := range a.cfg.Assets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r, path, err := a.DailyReport(ctx, asset)
		if err != nil {
			a.logger.Warn("daily report failed",
				zap.String("symbol", asset.Symbol),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", asset.Symbol, err))
			continue
		}
		reports = append(reports, r)
		a.notify(ctx, r, path)
	}

	a.logger.Info("daily reports generated",
		zap.Int("ok", len(reports)),
		zap.Int("failed", len(errs)),
	)
	return reports, errors.Join(errs...)
}

// notify delivers a stored daily report. Delivery failures are logged only.
func (a *App) notify(ctx context.Context, r *report.DailyReport, path string) {
	if a.notifiers.Len() == 0 {
		return
	}
	msg := notifier.Message{
		Kind:    notifier.KindDailyReport,
		Symbol:  r.Symbol,
		Title:   fmt.Sprintf("%s daily report %s", r.Name, r.Generated.Format("2006-01-02")),
		Text:    r.Text(),
		Path:    path,
		Data:    r,
		Created: r.Generated,
	}
	for name, err := range a.notifiers.NotifyAll(ctx, msg) {
		a.logger.Warn("report notification failed",
			zap.String("notifier", name),
			zap.String("symbol", r.Symbol),
			zap.Error(err),
		)
	}
}

// LastSession returns the bars sharing the calendar date of the last bar in loc.
func LastSession(bars core.Bars, loc *time.Location) core.Bars {
	if len(bars) == 0 {
		return nil
	}
	y, m, d := bars[len(bars)-1].Time.In(loc).Date()
	i := len(bars)
	for i > 0 {
		by, bm, bd := bars[i-1].Time.In(loc).Date()
		if by != y || bm != m || bd != d {
			break
		}
		i--
	}
	return bars[i:]
}

// Start runs the daily report schedule until ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	at := a.cfg.Report.Time
	if at == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("report time not configured"))
	}
	if _, err := time.Parse("15:04", at); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.cancel = nil
		a.mu.Unlock()
	}()

	for {
		next := NextRun(a.now(), at, a.loc)
		a.logger.Info("next daily report scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(a.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("report scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			if _, err := a.RunDailyReports(ctx); err != nil {
				a.logger.Warn("daily report run incomplete", zap.Error(err))
			}
		}
	}
}

// Stop stops the schedule started by Start
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Running reports whether the scheduler loop is active
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// NextRun returns the first HH:MM wall-clock time in loc strictly after now.
// An invalid hhmm is treated as midnight.
func NextRun(now time.Time, hhmm string, loc *time.Location) time.Time {
	var h, m int
	if t, err := time.Parse("15:04", hhmm); err == nil {
		h, m = t.Hour(), t.Minute()
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, h, m, 0, 0, loc)
	}
	return next
}
