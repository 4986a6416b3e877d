package buy_hold

import (
	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
)

// BuyHold is fully invested on every bar
type BuyHold struct{}

// New creates a new Buy & Hold strategy
func New() *BuyHold {
	return &BuyHold{}
}

func (b *BuyHold) Name() string {
	return "buy_hold"
}

func (b *BuyHold) Description() string {
	return "Buy & Hold"
}

func (b *BuyHold) Init(cfg strategy.Config) error {
	return nil
}

func (b *BuyHold) GenerateSignals(bars core.Bars) (core.Positions, error) {
	if err := bars.Validate(); err != nil {
		return nil, err
	}
	return core.Constant(len(bars), core.Long), nil
}
