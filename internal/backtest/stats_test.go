package backtest

import (
	"math"
	"testing"

	"github.com/newthinker/quantlab/internal/core"
)

func TestCalculateStats_Empty(t *testing.T) {
	stats := CalculateStats(&Result{}, nil)
	if stats != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestCalculateStats_TradeWinRate(t *testing.T) {
	result := resultFor(t, []float64{100, 101, 102}, core.Positions{0, 1, 0})
	trades := []Trade{
		{Return: 0.10},
		{Return: 0.05},
		{Return: -0.03},
		{Return: 0.02},
	}

	stats := CalculateStats(result, trades)

	if stats.NumTrades != 4 {
		t.Errorf("NumTrades = %d, want 4", stats.NumTrades)
	}
	if stats.WinningTrades != 3 || stats.LosingTrades != 1 {
		t.Errorf("Winning/Losing = %d/%d, want 3/1", stats.WinningTrades, stats.LosingTrades)
	}
	if stats.TradeWinRate != 75 {
		t.Errorf("TradeWinRate = %f, want 75", stats.TradeWinRate)
	}
}

func TestCalculateStats_Returns(t *testing.T) {
	closes := []float64{100, 102, 101, 105, 103}
	result := resultFor(t, closes, core.Positions{0, 0, 1, 1, 0})
	trades := ExtractTrades(result)

	stats := CalculateStats(result, trades)

	if stats.InitialCapital != 10000 {
		t.Errorf("InitialCapital = %f", stats.InitialCapital)
	}
	wantFinal := 10000 * (105.0 / 101) * (103.0 / 105)
	if math.Abs(stats.FinalValue-wantFinal) > 1e-6 {
		t.Errorf("FinalValue = %f, want %f", stats.FinalValue, wantFinal)
	}
	if math.Abs(stats.TotalReturn-(wantFinal/10000-1)*100) > 1e-6 {
		t.Errorf("TotalReturn = %f", stats.TotalReturn)
	}
	if math.Abs(stats.BuyHoldReturn-3.0) > 1e-6 {
		t.Errorf("BuyHoldReturn = %f, want 3", stats.BuyHoldReturn)
	}
	// realized strategy returns: 0, 0, +, -  -> 1 of 4 positive
	if stats.WinRate != 25 {
		t.Errorf("WinRate = %f, want 25", stats.WinRate)
	}
	if stats.NumTrades != 1 {
		t.Errorf("NumTrades = %d, want 1", stats.NumTrades)
	}
	if stats.MaxDrawdown > 0 {
		t.Errorf("MaxDrawdown = %f, must be <= 0", stats.MaxDrawdown)
	}
	if math.Abs(stats.MaxDrawdown-(103.0/105-1)*100) > 1e-6 {
		t.Errorf("MaxDrawdown = %f", stats.MaxDrawdown)
	}
}

func TestCalculateStats_FlatStrategy(t *testing.T) {
	result := resultFor(t, []float64{100, 90, 110}, core.Positions{0, 0, 0})
	stats := CalculateStats(result, nil)

	if stats.SharpeRatio != 0 || stats.MaxDrawdown != 0 || stats.WinRate != 0 {
		t.Errorf("expected neutral stats for a flat strategy, got %+v", stats)
	}
	if stats.FinalValue != 10000 {
		t.Errorf("FinalValue = %f, want 10000", stats.FinalValue)
	}
}
