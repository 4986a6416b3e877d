package momentum

import (
	"fmt"
	"math"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/indicator"
	"github.com/newthinker/quantlab/internal/strategy"
)

const (
	DefaultShortWindow = 20
	DefaultLongWindow  = 50
)

// Momentum implements a moving average crossover strategy: long while the
// short SMA is above the long SMA, flat otherwise.
//
// shortWindow < longWindow is expected but not enforced; the caller owns
// that choice.
type Momentum struct {
	shortWindow int
	longWindow  int
}

// New creates a new Momentum strategy
func New(shortWindow, longWindow int) *Momentum {
	return &Momentum{
		shortWindow: shortWindow,
		longWindow:  longWindow,
	}
}

// Default creates a Momentum strategy with the 20/50 windows
func Default() *Momentum {
	return New(DefaultShortWindow, DefaultLongWindow)
}

func (m *Momentum) Name() string {
	return "momentum"
}

func (m *Momentum) Description() string {
	return fmt.Sprintf("Momentum (%d/%d)", m.shortWindow, m.longWindow)
}

func (m *Momentum) Init(cfg strategy.Config) error {
	short, err := strategy.IntParam(cfg.Params, "short_window", m.shortWindow)
	if err != nil {
		return err
	}
	long, err := strategy.IntParam(cfg.Params, "long_window", m.longWindow)
	if err != nil {
		return err
	}
	m.shortWindow, m.longWindow = short, long
	return m.validate()
}

func (m *Momentum) validate() error {
	if m.shortWindow <= 0 || m.longWindow <= 0 {
		return core.WrapError(core.ErrInvalidParameter,
			fmt.Errorf("windows must be positive, got %d/%d", m.shortWindow, m.longWindow))
	}
	return nil
}

func (m *Momentum) GenerateSignals(bars core.Bars) (core.Positions, error) {
	if err := bars.Validate(); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	closes := bars.Closes()
	short := indicator.Align(indicator.SMA(closes, m.shortWindow), len(closes))
	long := indicator.Align(indicator.SMA(closes, m.longWindow), len(closes))

	// Re-evaluated every bar; an incomplete window compares false.
	positions := make(core.Positions, len(bars))
	for i := range positions {
		if math.IsNaN(short[i]) || math.IsNaN(long[i]) {
			continue
		}
		if short[i] > long[i] {
			positions[i] = core.Long
		}
	}
	return positions, nil
}
