package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/performance"
)

// maxTradeRows caps the trade list; the summary still counts every trade
const maxTradeRows = 20

// BacktestText renders a backtest report with the strategy metrics next to
// the buy-and-hold benchmark.
func BacktestText(r *backtest.Report) string {
	var b strings.Builder
	rule := strings.Repeat("=", width)
	dash := strings.Repeat("-", width)

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("BACKTEST REPORT - %s on %s", r.Description, r.Request.Symbol)
	line("Generated: %s", r.CreatedAt.Format("2006-01-02 15:04:05"))
	if r.Result.Len() > 0 {
		first, last := r.Result.Rows[0], r.Result.Rows[r.Result.Len()-1]
		line("Period:    %s to %s (%d bars)", first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"), r.Bars)
	}
	line(rule)
	line("")

	line("SUMMARY")
	line(dash)
	s := r.Stats
	line("Initial Capital:     %s", FormatMoney(s.InitialCapital))
	line("Final Value:         %s", FormatMoney(s.FinalValue))
	line("Total Return:        %+.2f%%", s.TotalReturn)
	line("Buy & Hold Return:   %+.2f%%", s.BuyHoldReturn)
	line("Trades:              %d (%d won, %d lost, %.2f%% win rate)", s.NumTrades, s.WinningTrades, s.LosingTrades, s.TradeWinRate)
	line("Max Drawdown:        %.2f%%", s.MaxDrawdown)
	line("")

	line("PERFORMANCE METRICS")
	line(dash)
	writeComparison(&b, r.Metrics, r.Benchmark)
	line("")

	if len(r.Trades) > 0 {
		line("TRADES")
		line(dash)
		writeTrades(&b, r.Trades)
		line("")
	}
	line(rule)
	return b.String()
}

func writeComparison(b *strings.Builder, strategy, benchmark performance.Summary) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\tStrategy\tBuy & Hold\t\n")
	bench := benchmark.Metrics()
	for i, m := range strategy.Metrics() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", dotLeader(m.Name, 25), FormatMetric(m.Name, m.Value), FormatMetric(bench[i].Name, bench[i].Value))
	}
	tw.Flush()
}

func writeTrades(b *strings.Builder, trades []backtest.Trade) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Entry\tExit\tEntry Price\tExit Price\tReturn\tDays")

	shown := trades
	if len(shown) > maxTradeRows {
		shown = shown[len(shown)-maxTradeRows:]
	}
	for _, t := range shown {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%+.2f%%\t%d\n",
			t.EntryTime.Format("2006-01-02"), t.ExitTime.Format("2006-01-02"),
			t.EntryPrice, t.ExitPrice, t.ReturnPct(), t.Days())
	}
	tw.Flush()

	if hidden := len(trades) - len(shown); hidden > 0 {
		fmt.Fprintf(b, "(%d earlier trades not shown)\n", hidden)
	}
}
