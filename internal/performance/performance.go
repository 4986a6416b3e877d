// Package performance computes risk/return statistics over a return series.
//
// Every statistic degrades to 0 instead of failing: an empty series, a
// single observation or a zero-variance denominator all yield a neutral,
// displayable value.
package performance

import "math"

const (
	DefaultPeriodsPerYear = 252
	DefaultRiskFreeRate   = 0.02
)

// Summary holds the standard statistics for one return series.
// Percent fields are already multiplied by 100.
type Summary struct {
	TotalReturn      float64 `json:"total_return_pct" yaml:"total_return_pct"`
	AnnualizedReturn float64 `json:"annualized_return_pct" yaml:"annualized_return_pct"`
	Volatility       float64 `json:"volatility_pct" yaml:"volatility_pct"`
	SharpeRatio      float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio" yaml:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	CalmarRatio      float64 `json:"calmar_ratio" yaml:"calmar_ratio"`
	WinRate          float64 `json:"win_rate_pct" yaml:"win_rate_pct"`
	BestDay          float64 `json:"best_day_pct" yaml:"best_day_pct"`
	WorstDay         float64 `json:"worst_day_pct" yaml:"worst_day_pct"`
}

type options struct {
	periodsPerYear int
	riskFreeRate   float64
}

// Option configures Summarize
type Option func(*options)

// WithPeriodsPerYear sets the annualization factor. Non-positive values are ignored.
func WithPeriodsPerYear(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.periodsPerYear = n
		}
	}
}

// WithRiskFreeRate sets the annual risk-free rate
func WithRiskFreeRate(r float64) Option {
	return func(o *options) {
		o.riskFreeRate = r
	}
}

func buildOptions(opts []Option) options {
	o := options{
		periodsPerYear: DefaultPeriodsPerYear,
		riskFreeRate:   DefaultRiskFreeRate,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Summarize computes every statistic for a period return series.
func Summarize(returns []float64, opts ...Option) Summary {
	if len(returns) == 0 {
		return Summary{}
	}
	o := buildOptions(opts)
	cum := CumulativeReturns(returns)

	s := Summary{
		TotalReturn:      (cum[len(cum)-1] - 1) * 100,
		AnnualizedReturn: AnnualizedReturn(returns, o.periodsPerYear),
		Volatility:       Volatility(returns, o.periodsPerYear),
		SharpeRatio:      SharpeRatio(returns, o.riskFreeRate, o.periodsPerYear),
		SortinoRatio:     SortinoRatio(returns, o.riskFreeRate, o.periodsPerYear),
		MaxDrawdown:      MaxDrawdown(cum),
		WinRate:          WinRate(returns),
	}
	s.CalmarRatio = calmar(s.AnnualizedReturn, s.MaxDrawdown)

	best, worst := returns[0], returns[0]
	for _, r := range returns[1:] {
		best = math.Max(best, r)
		worst = math.Min(worst, r)
	}
	s.BestDay = best * 100
	s.WorstDay = worst * 100

	return s
}

// SummarizePrices derives simple returns from prices before summarizing.
func SummarizePrices(prices []float64, opts ...Option) Summary {
	return Summarize(CalculateReturns(prices), opts...)
}

// CalculateReturns returns simple period returns, one fewer than prices.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = prices[i]/prices[i-1] - 1
	}
	return returns
}

// CumulativeReturns is the running product of (1 + r).
func CumulativeReturns(returns []float64) []float64 {
	cum := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		acc *= 1 + r
		cum[i] = acc
	}
	return cum
}

// AnnualizedReturn is mean(r) × periodsPerYear × 100.
// This is simple annualization, not a compounded CAGR.
func AnnualizedReturn(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}
	return mean(returns) * float64(periodsPerYear) * 100
}

// Volatility is the annualized sample standard deviation, in percent.
func Volatility(returns []float64, periodsPerYear int) float64 {
	std, ok := stddev(returns)
	if !ok {
		return 0
	}
	return std * math.Sqrt(float64(periodsPerYear)) * 100
}

// SharpeRatio is sqrt(periodsPerYear) × mean(excess) / std(excess).
// The deviation is taken on the raw returns: subtracting a constant
// risk-free rate does not change it and would only add rounding noise.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	std, ok := stddev(returns)
	if !ok || std == 0 {
		return 0
	}
	excess := excessReturns(returns, riskFreeRate, periodsPerYear)
	return math.Sqrt(float64(periodsPerYear)) * mean(excess) / std
}

// SortinoRatio divides the Sharpe numerator by the standard deviation of
// the negative excess returns only.
func SortinoRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	rf := riskFreeRate / float64(periodsPerYear)

	var downside []float64
	for _, r := range returns {
		if r-rf < 0 {
			downside = append(downside, r)
		}
	}

	std, ok := stddev(downside)
	if !ok || std == 0 {
		return 0
	}
	excess := excessReturns(returns, riskFreeRate, periodsPerYear)
	return math.Sqrt(float64(periodsPerYear)) * mean(excess) / std
}

// MaxDrawdown is the worst (cum / running max − 1) × 100 over a cumulative
// return path. Always ≤ 0.
func MaxDrawdown(cumulative []float64) float64 {
	var peak, worst float64
	for i, v := range cumulative {
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst * 100
}

// CalmarRatio is AnnualizedReturn / |MaxDrawdown|, 0 without a drawdown.
func CalmarRatio(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}
	return calmar(AnnualizedReturn(returns, periodsPerYear), MaxDrawdown(CumulativeReturns(returns)))
}

func calmar(annualized, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return annualized / math.Abs(maxDrawdown)
}

// WinRate is the percentage of strictly positive periods.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var wins int
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns)) * 100
}

func excessReturns(returns []float64, riskFreeRate float64, periodsPerYear int) []float64 {
	rf := riskFreeRate / float64(periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	return excess
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation (n−1). ok is false below two
// observations, where it is undefined.
func stddev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)-1)), true
}
