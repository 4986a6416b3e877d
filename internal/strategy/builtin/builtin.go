// Package builtin registers the bundled strategies.
package builtin

import (
	"github.com/newthinker/quantlab/internal/strategy"
	"github.com/newthinker/quantlab/internal/strategy/buy_hold"
	"github.com/newthinker/quantlab/internal/strategy/momentum"
	"github.com/newthinker/quantlab/internal/strategy/rsi_reversion"
	"go.uber.org/zap"
)

// Register adds buy_hold, momentum and rsi to the engine
func Register(e *strategy.Engine) {
	e.Register(func() strategy.Strategy { return buy_hold.New() })
	e.Register(func() strategy.Strategy { return momentum.Default() })
	e.Register(func() strategy.Strategy { return rsi_reversion.Default() })
}

// NewEngine returns an engine with every bundled strategy registered
func NewEngine(logger *zap.Logger) *strategy.Engine {
	e := strategy.NewEngine(logger)
	Register(e)
	return e
}
