package backtest

import (
	"time"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/performance"
)

// Row is one bar of a backtest result table
type Row struct {
	Time     time.Time     `json:"time" yaml:"time"`
	Close    float64       `json:"close" yaml:"close"`
	Position core.Position `json:"position" yaml:"position"`

	Returns                   float64 `json:"returns" yaml:"returns"`
	StrategyReturns           float64 `json:"strategy_returns" yaml:"strategy_returns"`
	CumulativeReturns         float64 `json:"cumulative_returns" yaml:"cumulative_returns"`
	CumulativeStrategyReturns float64 `json:"cumulative_strategy_returns" yaml:"cumulative_strategy_returns"`
	PortfolioValue            float64 `json:"portfolio_value" yaml:"portfolio_value"`
	BuyHoldValue              float64 `json:"buy_hold_value" yaml:"buy_hold_value"`
	RunningMax                float64 `json:"running_max" yaml:"running_max"`
	Drawdown                  float64 `json:"drawdown" yaml:"drawdown"`
}

// Result is the table produced by one engine run, aligned to the input bars
type Result struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	Rows           []Row   `json:"rows" yaml:"rows"`
}

// Len returns the number of rows
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Returns is the period return column (0 on the first bar)
func (r *Result) Returns() []float64 {
	return r.column(func(row Row) float64 { return row.Returns })
}

// StrategyReturns is the lagged strategy return column (0 on the first bar)
func (r *Result) StrategyReturns() []float64 {
	return r.column(func(row Row) float64 { return row.StrategyReturns })
}

// RealizedReturns drops the first bar, which has no prior close to return
// against. This is the series performance statistics are computed on.
func (r *Result) RealizedReturns() []float64 {
	returns := r.StrategyReturns()
	if len(returns) == 0 {
		return returns
	}
	return returns[1:]
}

// BenchmarkReturns is the buy-and-hold counterpart of RealizedReturns
func (r *Result) BenchmarkReturns() []float64 {
	returns := r.Returns()
	if len(returns) == 0 {
		return returns
	}
	return returns[1:]
}

// PortfolioValues is the portfolio value column
func (r *Result) PortfolioValues() []float64 {
	return r.column(func(row Row) float64 { return row.PortfolioValue })
}

// Drawdowns is the drawdown column
func (r *Result) Drawdowns() []float64 {
	return r.column(func(row Row) float64 { return row.Drawdown })
}

// Positions is the position column the result was computed from
func (r *Result) Positions() core.Positions {
	out := make(core.Positions, r.Len())
	for i := range out {
		out[i] = r.Rows[i].Position
	}
	return out
}

// FinalValue is the last portfolio value, or the initial capital when empty
func (r *Result) FinalValue() float64 {
	if r.Len() == 0 {
		if r == nil {
			return 0
		}
		return r.InitialCapital
	}
	return r.Rows[len(r.Rows)-1].PortfolioValue
}

func (r *Result) column(get func(Row) float64) []float64 {
	out := make([]float64, r.Len())
	for i := range out {
		out[i] = get(r.Rows[i])
	}
	return out
}

// Trade represents a completed entry → exit round trip
type Trade struct {
	EntryTime  time.Time     `json:"entry_time" yaml:"entry_time"`
	ExitTime   time.Time     `json:"exit_time" yaml:"exit_time"`
	EntryPrice float64       `json:"entry_price" yaml:"entry_price"`
	ExitPrice  float64       `json:"exit_price" yaml:"exit_price"`
	Return     float64       `json:"return" yaml:"return"` // Fractional return
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

// ReturnPct returns the trade return in percent
func (t Trade) ReturnPct() float64 {
	return t.Return * 100
}

// Days returns the whole days held
func (t Trade) Days() int {
	return int(t.Duration / (24 * time.Hour))
}

// Stats holds the headline numbers for one backtest
type Stats struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	FinalValue     float64 `json:"final_value" yaml:"final_value"`
	TotalReturn    float64 `json:"total_return_pct" yaml:"total_return_pct"`
	BuyHoldReturn  float64 `json:"buy_hold_return_pct" yaml:"buy_hold_return_pct"`
	NumTrades      int     `json:"num_trades" yaml:"num_trades"`
	WinningTrades  int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades   int     `json:"losing_trades" yaml:"losing_trades"`
	TradeWinRate   float64 `json:"trade_win_rate_pct" yaml:"trade_win_rate_pct"` // Percentage of profitable trades
	WinRate        float64 `json:"win_rate_pct" yaml:"win_rate_pct"`             // Percentage of positive periods
	MaxDrawdown    float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
}

// Report bundles everything one backtest produces
type Report struct {
	ID          string              `json:"id" yaml:"id"`
	Request     Request             `json:"request" yaml:"request"`
	Description string              `json:"description" yaml:"description"`
	Bars        int                 `json:"bars" yaml:"bars"`
	Result      *Result             `json:"result,omitempty" yaml:"-"`
	Trades      []Trade             `json:"trades" yaml:"trades"`
	Metrics     performance.Summary `json:"metrics" yaml:"metrics"`
	Benchmark   performance.Summary `json:"benchmark" yaml:"benchmark"`
	Stats       Stats               `json:"stats" yaml:"stats"`
	CreatedAt   time.Time           `json:"created_at" yaml:"created_at"`
}
