package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/quantlab/internal/core"
	"go.uber.org/zap"
)

// Factory creates a strategy with default parameters
type Factory func() Strategy

// Engine is a registry of strategy factories.
// Every Build returns a fresh instance so concurrent backtests never share one.
type Engine struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		factories: make(map[string]Factory),
		logger:    l,
	}
}

// Register adds a strategy factory under the name its strategies report
func (e *Engine) Register(f Factory) {
	name := f().Name()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[name] = f
}

// Has reports whether a strategy is registered
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.factories[name]
	return ok
}

// Names returns registered strategy names, sorted
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.factories))
	for name := range e.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates and initializes a strategy by name
func (e *Engine) Build(name string, params map[string]any) (Strategy, error) {
	e.mu.RLock()
	f, ok := e.factories[name]
	e.mu.RUnlock()

	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("unknown strategy %q", name))
	}

	s := f()
	if err := s.Init(Config{Params: params}); err != nil {
		e.logger.Warn("strategy init failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
		return nil, err
	}
	return s, nil
}

// Generate builds the named strategy and runs it over bars
func (e *Engine) Generate(name string, params map[string]any, bars core.Bars) (core.Positions, error) {
	s, err := e.Build(name, params)
	if err != nil {
		return nil, err
	}

	positions, err := s.GenerateSignals(bars)
	if err != nil {
		e.logger.Warn("signal generation failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
		return nil, err
	}

	e.logger.Debug("signals generated",
		zap.String("strategy", s.Description()),
		zap.Int("bars", len(bars)),
	)
	return positions, nil
}

// Describe returns name → description for every registered strategy
func (e *Engine) Describe() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]string, len(e.factories))
	for name, f := range e.factories {
		out[name] = f().Description()
	}
	return out
}
