package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/performance"
)

const width = 70

// DailyReport summarizes one session of bars for an asset
type DailyReport struct {
	Symbol     string              `json:"symbol" yaml:"symbol"`
	Name       string              `json:"name" yaml:"name"`
	Currency   string              `json:"currency,omitempty" yaml:"currency,omitempty"`
	Generated  time.Time           `json:"generated" yaml:"generated"`
	Open       float64             `json:"open" yaml:"open"`
	Close      float64             `json:"close" yaml:"close"`
	High       float64             `json:"high" yaml:"high"`
	Low        float64             `json:"low" yaml:"low"`
	Volume     int64               `json:"volume" yaml:"volume"`
	Change     float64             `json:"change" yaml:"change"`
	ChangePct  float64             `json:"change_pct" yaml:"change_pct"`
	Volatility float64             `json:"volatility_pct" yaml:"volatility_pct"` // std of bar returns × 100
	Metrics    performance.Summary `json:"metrics" yaml:"metrics"`
}

// Daily builds the report for bars, typically one session of intraday bars.
func Daily(symbol, name string, bars core.Bars, now time.Time, opts ...performance.Option) (*DailyReport, error) {
	if err := bars.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = symbol
	}

	first, last := bars[0], bars[len(bars)-1]
	r := &DailyReport{
		Symbol:    symbol,
		Name:      name,
		Generated: now,
		Open:      first.Open,
		Close:     last.Close,
		High:      math.Inf(-1),
		Low:       math.Inf(1),
	}
	for _, b := range bars {
		r.High = math.Max(r.High, b.High)
		r.Low = math.Min(r.Low, b.Low)
		r.Volume += b.Volume
	}

	r.Change = r.Close - r.Open
	if r.Open != 0 {
		r.ChangePct = r.Change / r.Open * 100
	}

	closes := bars.Closes()
	// one period per year leaves the plain sample deviation
	r.Volatility = performance.Volatility(performance.CalculateReturns(closes), 1)
	r.Metrics = performance.SummarizePrices(closes, opts...)
	return r, nil
}

// Text renders the fixed-width report
func (r *DailyReport) Text() string {
	var b strings.Builder
	rule := strings.Repeat("=", width)
	dash := strings.Repeat("-", width)
	cur := r.Currency

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("DAILY REPORT - %s (%s)", r.Name, r.Symbol)
	line("Generated: %s", r.Generated.Format("2006-01-02 15:04:05"))
	line(rule)
	line("")
	line("DAILY SUMMARY")
	line(dash)
	line("Opening Price:       %s%.4f", cur, r.Open)
	line("Closing Price:       %s%.4f", cur, r.Close)
	line("Highest Price:       %s%.4f", cur, r.High)
	line("Lowest Price:        %s%.4f", cur, r.Low)
	line("Price Change:        %s%+.4f (%+.2f%%)", cur, r.Change, r.ChangePct)
	line("Total Volume:        %s", formatVolume(r.Volume))
	line("Intraday Volatility: %.4f%%", r.Volatility)
	line("")
	line("PERFORMANCE METRICS")
	line(dash)
	writeMetrics(&b, r.Metrics)
	line("")
	line(rule)
	return b.String()
}

// writeMetrics writes dot-leader rows of rounded metric values
func writeMetrics(b *strings.Builder, s performance.Summary) {
	for _, m := range s.Metrics() {
		fmt.Fprintf(b, "%s %s\n", dotLeader(m.Name, 35), FormatMetric(m.Name, m.Value))
	}
}

func dotLeader(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(".", n-len(s))
}
