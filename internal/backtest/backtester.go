package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/performance"
	"github.com/newthinker/quantlab/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OHLCVProvider defines the interface for fetching historical bars
type OHLCVProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (core.Bars, error)
}

// Recorder receives backtest telemetry
type Recorder interface {
	RecordBacktest(strategy, status string, duration float64)
	RecordTrades(strategy string, count int)
	RecordBars(count int)
}

// Settings holds the simulation parameters shared by every run
type Settings struct {
	InitialCapital float64
	PeriodsPerYear int
	RiskFreeRate   float64
	Interval       string
	Parallelism    int
}

// DefaultSettings returns 10,000 capital on daily bars
func DefaultSettings() Settings {
	return Settings{
		InitialCapital: 10000,
		PeriodsPerYear: performance.DefaultPeriodsPerYear,
		RiskFreeRate:   performance.DefaultRiskFreeRate,
		Interval:       "1d",
		Parallelism:    4,
	}
}

func (s Settings) perfOptions() []performance.Option {
	return []performance.Option{
		performance.WithPeriodsPerYear(s.PeriodsPerYear),
		performance.WithRiskFreeRate(s.RiskFreeRate),
	}
}

// Request describes one backtest
type Request struct {
	Symbol   string         `json:"symbol" yaml:"symbol"`
	Strategy string         `json:"strategy" yaml:"strategy"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Start    time.Time      `json:"start" yaml:"start"`
	End      time.Time      `json:"end" yaml:"end"`
}

// Option configures a Backtester
type Option func(*Backtester)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backtester) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRecorder sets the telemetry recorder
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) {
		b.recorder = r
	}
}

// Backtester runs the strategy → engine → trades/metrics pipeline
type Backtester struct {
	provider   OHLCVProvider
	strategies *strategy.Engine
	settings   Settings
	logger     *zap.Logger
	recorder   Recorder
}

// New creates a new Backtester with the given OHLCV provider
func New(provider OHLCVProvider, strategies *strategy.Engine, settings Settings, opts ...Option) *Backtester {
	b := &Backtester{
		provider:   provider,
		strategies: strategies,
		settings:   settings,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Settings returns the simulation parameters
func (b *Backtester) Settings() Settings {
	return b.settings
}

// Run fetches history for the request and evaluates it
func (b *Backtester) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	report, err := b.run(ctx, req)
	b.record(req.Strategy, report, err, time.Since(start))
	if err != nil {
		b.logger.Warn("backtest failed",
			zap.String("symbol", req.Symbol),
			zap.String("strategy", req.Strategy),
			zap.Error(err),
		)
		return nil, err
	}

	b.logger.Info("backtest completed",
		zap.String("id", report.ID),
		zap.String("symbol", req.Symbol),
		zap.String("strategy", report.Description),
		zap.Int("bars", report.Bars),
		zap.Int("trades", len(report.Trades)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

func (b *Backtester) run(ctx context.Context, req Request) (*Report, error) {
	if b.provider == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no data provider configured"))
	}

	bars, err := b.provider.FetchHistory(ctx, req.Symbol, req.Start, req.End, b.settings.Interval)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s", req.Symbol))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Evaluate(req, bars)
}

// Evaluate runs the pipeline over bars that are already in memory
func (b *Backtester) Evaluate(req Request, bars core.Bars) (*Report, error) {
	strat, err := b.strategies.Build(req.Strategy, req.Params)
	if err != nil {
		return nil, err
	}

	positions, err := strat.GenerateSignals(bars)
	if err != nil {
		return nil, err
	}

	result, err := Run(bars, positions, b.settings.InitialCapital)
	if err != nil {
		return nil, err
	}

	trades := ExtractTrades(result)
	opts := b.settings.perfOptions()

	return &Report{
		ID:          uuid.NewString(),
		Request:     req,
		Description: strat.Description(),
		Bars:        len(bars),
		Result:      result,
		Trades:      trades,
		Metrics:     performance.Summarize(result.RealizedReturns(), opts...),
		Benchmark:   performance.Summarize(result.BenchmarkReturns(), opts...),
		Stats:       CalculateStats(result, trades, opts...),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// RunBatch evaluates independent requests in parallel.
// Reports keep request order; the first failure cancels the remaining runs.
func (b *Backtester) RunBatch(ctx context.Context, reqs []Request) ([]*Report, error) {
	reports := make([]*Report, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if b.settings.Parallelism > 0 {
		g.SetLimit(b.settings.Parallelism)
	}

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := b.Run(gctx, req)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", req.Symbol, req.Strategy, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (b *Backtester) record(strategyName string, report *Report, err error, elapsed time.Duration) {
	if b.recorder == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	b.recorder.RecordBacktest(strategyName, status, elapsed.Seconds())
	if report != nil {
		b.recorder.RecordBars(report.Bars)
		b.recorder.RecordTrades(strategyName, len(report.Trades))
	}
}
