package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantlab/internal/report"
)

const dateLayout = "2006-01-02"

var (
	backtestSymbol string
	backtestFrom   string
	backtestTo     string
	backtestParams map[string]string
	backtestSave   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run backtest on a strategy",
	Long: `Run a strategy against historical data and show performance statistics.
Without --from/--to the configured lookback ending today is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().StringToStringVar(&backtestParams, "param", nil, "Strategy parameter override key=value (repeatable)")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "Store the report in the report archive")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

// parseRange parses optional YYYY-MM-DD bounds; empty strings stay zero.
func parseRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return start, end, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse(dateLayout, to); err != nil {
			return start, end, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
		}
	}

	// Validate date range
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}

// parseParams turns key=value flags into numeric strategy parameters.
func parseParams(raw map[string]string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %q is not a number", k, v)
		}
		params[k] = f
	}
	return params, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	strategyName := args[0]

	start, end, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return err
	}
	overrides, err := parseParams(backtestParams)
	if err != nil {
		return err
	}

	a, log, err := setup()
	defer log.Sync()
	if err != nil {
		return err
	}

	if !a.Strategies().Has(strategyName) {
		return fmt.Errorf("unknown strategy %q (available: %s)", strategyName, strings.Join(a.Strategies().Names(), ", "))
	}

	req := a.Request(backtestSymbol, strategyName, start, end)
	if overrides != nil {
		req.Params = overrides
	}

	rep, err := a.Backtester().Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("backtest %s on %s: %w", strategyName, backtestSymbol, err)
	}

	fmt.Fprint(cmd.OutOrStdout(), report.BacktestText(rep))

	if backtestSave {
		path, err := a.Writer().WriteBacktest(cmd.Context(), rep)
		if err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		log.Info("backtest report saved", zap.String("path", path))
	}
	return nil
}
