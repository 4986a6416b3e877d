package backtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
	"github.com/newthinker/quantlab/internal/strategy/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider implements OHLCVProvider for testing
type mockProvider struct {
	data map[string]core.Bars
	err  error
}

func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (core.Bars, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.data[symbol], nil
}

type mockRecorder struct {
	mu       sync.Mutex
	statuses []string
	trades   int
	bars     int
}

func (r *mockRecorder) RecordBacktest(strategy, status string, duration float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, strategy+":"+status)
}

func (r *mockRecorder) RecordTrades(strategy string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades += count
}

func (r *mockRecorder) RecordBars(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bars += count
}

func trendingBars(n int) core.Bars {
	bars := make(core.Bars, n)
	for i := range bars {
		// slow uptrend with a dip every fifth bar
		c := 100 + float64(i)
		if i%5 == 4 {
			c -= 6
		}
		bars[i] = core.Bar{Time: baseTime.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func newTestBacktester(provider OHLCVProvider, opts ...Option) *Backtester {
	return New(provider, builtin.NewEngine(nil), DefaultSettings(), opts...)
}

func TestBacktester_Run(t *testing.T) {
	provider := &mockProvider{data: map[string]core.Bars{"AAPL": barsFrom(100, 102, 101, 105, 103)}}
	rec := &mockRecorder{}
	b := newTestBacktester(provider, WithRecorder(rec))

	report, err := b.Run(context.Background(), Request{Symbol: "AAPL", Strategy: "buy_hold"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "Buy & Hold", report.Description)
	assert.Equal(t, 5, report.Bars)
	assert.Equal(t, 5, report.Result.Len())
	assert.Empty(t, report.Trades)
	assert.InDelta(t, 3.0, report.Metrics.TotalReturn, 1e-9)
	assert.InDelta(t, report.Benchmark.TotalReturn, report.Metrics.TotalReturn, 1e-9)
	assert.InDelta(t, 10300, report.Stats.FinalValue, 1e-8)

	assert.Equal(t, []string{"buy_hold:success"}, rec.statuses)
	assert.Equal(t, 5, rec.bars)
}

func TestBacktester_RunWithParams(t *testing.T) {
	provider := &mockProvider{data: map[string]core.Bars{"SPY": trendingBars(60)}}
	b := newTestBacktester(provider)

	report, err := b.Run(context.Background(), Request{
		Symbol:   "SPY",
		Strategy: "momentum",
		Params:   map[string]any{"short_window": 3, "long_window": 10},
	})
	require.NoError(t, err)
	assert.Equal(t, "Momentum (3/10)", report.Description)
	assert.Equal(t, report.Stats.NumTrades, len(report.Trades))
}

func TestBacktester_Run_NoData(t *testing.T) {
	b := newTestBacktester(&mockProvider{data: map[string]core.Bars{}})

	_, err := b.Run(context.Background(), Request{Symbol: "AAPL", Strategy: "buy_hold"})
	assert.True(t, errors.Is(err, core.ErrNoData), "got %v", err)
}

func TestBacktester_Run_ProviderError(t *testing.T) {
	rec := &mockRecorder{}
	b := newTestBacktester(&mockProvider{err: errors.New("provider error")}, WithRecorder(rec))

	_, err := b.Run(context.Background(), Request{Symbol: "AAPL", Strategy: "buy_hold"})
	assert.Error(t, err)
	assert.Equal(t, []string{"buy_hold:failed"}, rec.statuses)
}

func TestBacktester_Run_UnknownStrategy(t *testing.T) {
	provider := &mockProvider{data: map[string]core.Bars{"AAPL": barsFrom(1, 2, 3)}}
	b := newTestBacktester(provider)

	_, err := b.Run(context.Background(), Request{Symbol: "AAPL", Strategy: "nope"})
	assert.True(t, errors.Is(err, core.ErrStrategyNotFound), "got %v", err)
}

func TestBacktester_Run_InvalidCapital(t *testing.T) {
	provider := &mockProvider{data: map[string]core.Bars{"AAPL": barsFrom(1, 2, 3)}}
	settings := DefaultSettings()
	settings.InitialCapital = 0
	b := New(provider, builtin.NewEngine(nil), settings)

	_, err := b.Run(context.Background(), Request{Symbol: "AAPL", Strategy: "buy_hold"})
	assert.True(t, errors.Is(err, core.ErrInvalidParameter), "got %v", err)
}

func TestBacktester_Run_ContextCancellation(t *testing.T) {
	provider := &mockProvider{data: map[string]core.Bars{"AAPL": trendingBars(100)}}
	b := newTestBacktester(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := b.Run(ctx, Request{Symbol: "AAPL", Strategy: "buy_hold"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBacktester_Run_NoProvider(t *testing.T) {
	b := New(nil, strategy.NewEngine(), DefaultSettings())
	_, err := b.Run(context.Background(), Request{Symbol: "AAPL", Strategy: "buy_hold"})
	assert.True(t, errors.Is(err, core.ErrConfigMissing), "got %v", err)
}

func TestBacktester_RunBatch(t *testing.T) {
	provider := &mockProvider{data: map[string]core.Bars{
		"AAA": trendingBars(80),
		"BBB": barsFrom(100, 102, 101, 105, 103),
	}}
	b := newTestBacktester(provider)

	reqs := []Request{
		{Symbol: "AAA", Strategy: "buy_hold"},
		{Symbol: "AAA", Strategy: "momentum", Params: map[string]any{"short_window": 2, "long_window": 5}},
		{Symbol: "AAA", Strategy: "rsi", Params: map[string]any{"period": 3}},
		{Symbol: "BBB", Strategy: "buy_hold"},
	}

	reports, err := b.RunBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, reports, len(reqs))

	for i, r := range reports {
		assert.Equal(t, reqs[i].Symbol, r.Request.Symbol)
		assert.Equal(t, reqs[i].Strategy, r.Request.Strategy)
	}
	assert.Equal(t, 5, reports[3].Bars)

	// batch results match standalone runs
	single, err := b.Run(context.Background(), reqs[1])
	require.NoError(t, err)
	assert.Equal(t, single.Result, reports[1].Result)
	assert.Equal(t, single.Trades, reports[1].Trades)
}

func TestBacktester_RunBatch_FirstErrorFails(t *testing.T) {
	provider := &mockProvider{data: map[string]core.Bars{"AAA": trendingBars(20)}}
	b := newTestBacktester(provider)

	_, err := b.RunBatch(context.Background(), []Request{
		{Symbol: "AAA", Strategy: "buy_hold"},
		{Symbol: "MISSING", Strategy: "buy_hold"},
	})
	assert.True(t, errors.Is(err, core.ErrNoData), "got %v", err)
}

func TestBacktester_Evaluate(t *testing.T) {
	b := newTestBacktester(nil)

	report, err := b.Evaluate(Request{Symbol: "X", Strategy: "rsi"}, barsFrom(100, 101))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Bars)
	assert.Equal(t, core.Positions{0, 0}, report.Result.Positions())
}
