package rsi_reversion

import (
	"fmt"
	"math"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/indicator"
	"github.com/newthinker/quantlab/internal/strategy"
)

const (
	DefaultPeriod     = 14
	DefaultOversold   = 30.0
	DefaultOverbought = 70.0
)

// RSIReversion buys oversold conditions and exits overbought ones.
type RSIReversion struct {
	period     int
	oversold   float64
	overbought float64
}

// New creates a new RSI mean-reversion strategy
func New(period int, oversold, overbought float64) *RSIReversion {
	return &RSIReversion{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}
}

// Default creates the 14 / 30 / 70 configuration
func Default() *RSIReversion {
	return New(DefaultPeriod, DefaultOversold, DefaultOverbought)
}

func (r *RSIReversion) Name() string {
	return "rsi"
}

func (r *RSIReversion) Description() string {
	return fmt.Sprintf("RSI (%d)", r.period)
}

func (r *RSIReversion) Init(cfg strategy.Config) error {
	period, err := strategy.IntParam(cfg.Params, "period", r.period)
	if err != nil {
		return err
	}
	oversold, err := strategy.FloatParam(cfg.Params, "oversold", r.oversold)
	if err != nil {
		return err
	}
	overbought, err := strategy.FloatParam(cfg.Params, "overbought", r.overbought)
	if err != nil {
		return err
	}
	r.period, r.oversold, r.overbought = period, oversold, overbought
	return r.validate()
}

func (r *RSIReversion) validate() error {
	if r.period <= 0 {
		return core.WrapError(core.ErrInvalidParameter, fmt.Errorf("period must be positive, got %d", r.period))
	}
	if r.oversold <= 0 || r.overbought >= 100 || r.oversold >= r.overbought {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("thresholds must satisfy 0 < oversold < overbought < 100, got %v/%v", r.oversold, r.overbought))
	}
	return nil
}

func (r *RSIReversion) GenerateSignals(bars core.Bars) (core.Positions, error) {
	if err := bars.Validate(); err != nil {
		return nil, err
	}
	if err := r.validate(); err != nil {
		return nil, err
	}

	rsi := indicator.RSI(bars.Closes(), r.period)

	positions := make(core.Positions, len(bars))
	state := core.Flat
	for i, v := range rsi {
		state = r.next(state, v)
		positions[i] = state
	}
	return positions, nil
}

// next carries the previous state forward unless RSI crosses a threshold.
// An undefined RSI never changes state.
func (r *RSIReversion) next(prev core.Position, rsi float64) core.Position {
	switch {
	case math.IsNaN(rsi):
		return prev
	case rsi < r.oversold:
		return core.Long
	case rsi > r.overbought:
		return core.Flat
	default:
		return prev
	}
}
