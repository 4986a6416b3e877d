package backtest

import (
	"fmt"
	"math"

	"github.com/newthinker/quantlab/internal/core"
)

// Run simulates a fully-invested/flat portfolio over bars.
//
// The position held at bar t earns the return of bar t+1: a signal observed
// at a close can only be acted on from the next bar, so the first bar
// always has a zero strategy return. Inputs are not modified.
func Run(bars core.Bars, positions core.Positions, initialCapital float64) (*Result, error) {
	if initialCapital <= 0 || math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) {
		return nil, core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("initial capital must be positive, got %v", initialCapital))
	}
	if err := bars.Validate(); err != nil {
		return nil, err
	}
	if len(positions) != len(bars) {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("positions length %d does not match bars length %d", len(positions), len(bars)))
	}
	if err := positions.Validate(); err != nil {
		return nil, err
	}

	rows := make([]Row, len(bars))
	cum, cumStrategy := 1.0, 1.0
	runningMax := initialCapital
	prev := core.Flat

	for i, bar := range bars {
		var ret float64
		if i > 0 {
			ret = bar.Close/bars[i-1].Close - 1
		}
		var strategyRet float64
		if prev != core.Flat {
			strategyRet = float64(prev) * ret
		}

		cum *= 1 + ret
		cumStrategy *= 1 + strategyRet
		value := initialCapital * cumStrategy
		if value > runningMax {
			runningMax = value
		}

		rows[i] = Row{
			Time:                      bar.Time,
			Close:                     bar.Close,
			Position:                  positions[i],
			Returns:                   ret,
			StrategyReturns:           strategyRet,
			CumulativeReturns:         cum,
			CumulativeStrategyReturns: cumStrategy,
			PortfolioValue:            value,
			BuyHoldValue:              initialCapital * cum,
			RunningMax:                runningMax,
			Drawdown:                  (value - runningMax) / runningMax,
		}
		prev = positions[i]
	}

	return &Result{
		InitialCapital: initialCapital,
		Rows:           rows,
	}, nil
}
