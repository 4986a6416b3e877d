package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/performance"
)

var (
	compareSymbol string
	compareFrom   string
	compareTo     string
	compareSave   bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Backtest every enabled strategy on one symbol",
	Long:  "Run all enabled strategies in parallel over the same history and compare them with buy-and-hold",
	Args:  cobra.NoArgs,
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareSymbol, "symbol", "", "Symbol to backtest (required)")
	compareCmd.Flags().StringVar(&compareFrom, "from", "", "Start date YYYY-MM-DD")
	compareCmd.Flags().StringVar(&compareTo, "to", "", "End date YYYY-MM-DD")
	compareCmd.Flags().BoolVar(&compareSave, "save", false, "Store each report in the report archive")

	compareCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	start, end, err := parseRange(compareFrom, compareTo)
	if err != nil {
		return err
	}

	a, log, err := setup()
	defer log.Sync()
	if err != nil {
		return err
	}

	names := a.EnabledStrategies()
	if len(names) == 0 {
		return fmt.Errorf("no strategies enabled")
	}

	reqs := make([]backtest.Request, len(names))
	for i, name := range names {
		reqs[i] = a.Request(compareSymbol, name, start, end)
	}

	reports, err := a.Backtester().RunBatch(cmd.Context(), reqs)
	if err != nil {
		return fmt.Errorf("compare on %s: %w", compareSymbol, err)
	}

	writeComparison(cmd.OutOrStdout(), compareSymbol, reports)

	if compareSave {
		for _, r := range reports {
			if _, err := a.Writer().WriteBacktest(cmd.Context(), r); err != nil {
				return fmt.Errorf("saving %s report: %w", r.Request.Strategy, err)
			}
		}
	}
	return nil
}

// writeComparison prints one row per strategy plus the shared benchmark
func writeComparison(out io.Writer, symbol string, reports []*backtest.Report) {
	fmt.Fprintf(out, "Strategy comparison on %s", symbol)
	if len(reports) > 0 {
		fmt.Fprintf(out, " (%d bars)", reports[0].Bars)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 70))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Strategy\tTotal %\tAnnual %\tSharpe\tSortino\tMax DD %\tTrades\t")

	row := func(name string, s performance.Summary, trades string) {
		fmt.Fprintf(tw, "%s\t%+.2f\t%+.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			name, s.TotalReturn, s.AnnualizedReturn, s.SharpeRatio, s.SortinoRatio, s.MaxDrawdown, trades)
	}
	for _, r := range reports {
		row(r.Description, r.Metrics, fmt.Sprint(len(r.Trades)))
	}
	if len(reports) > 0 {
		row("Buy & Hold", reports[0].Benchmark, "-")
	}
	tw.Flush()
}
