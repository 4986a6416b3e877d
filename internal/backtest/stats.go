package backtest

import (
	"github.com/newthinker/quantlab/internal/performance"
)

// CalculateStats computes the headline numbers for a result and its trades
func CalculateStats(result *Result, trades []Trade, opts ...performance.Option) Stats {
	if result.Len() == 0 {
		return Stats{}
	}

	var winning, losing int
	for _, t := range trades {
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	var tradeWinRate float64
	if len(trades) > 0 {
		tradeWinRate = float64(winning) / float64(len(trades)) * 100
	}

	last := result.Rows[len(result.Rows)-1]
	realized := result.RealizedReturns()

	return Stats{
		InitialCapital: result.InitialCapital,
		FinalValue:     last.PortfolioValue,
		TotalReturn:    (last.PortfolioValue/result.InitialCapital - 1) * 100, // Convert to percentage
		BuyHoldReturn:  (last.BuyHoldValue/result.InitialCapital - 1) * 100,
		NumTrades:      len(trades),
		WinningTrades:  winning,
		LosingTrades:   losing,
		TradeWinRate:   tradeWinRate,
		WinRate:        performance.WinRate(realized),
		MaxDrawdown:    minDrawdown(result) * 100,
		SharpeRatio:    performance.Summarize(realized, opts...).SharpeRatio,
	}
}

func minDrawdown(result *Result) float64 {
	var worst float64
	for _, row := range result.Rows {
		if row.Drawdown < worst {
			worst = row.Drawdown
		}
	}
	return worst
}
