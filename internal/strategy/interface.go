package strategy

import (
	"fmt"
	"math"

	"github.com/newthinker/quantlab/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Params map[string]any
}

// Strategy turns a bar series into a position series.
// Implementations own only their parameters and keep no state between calls.
type Strategy interface {
	Name() string
	Description() string
	Init(cfg Config) error
	GenerateSignals(bars core.Bars) (core.Positions, error)
}

// IntParam reads an integer parameter, accepting the numeric types produced
// by YAML and JSON decoding. Missing keys yield def.
func IntParam(params map[string]any, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, core.WrapError(core.ErrInvalidParameter, fmt.Errorf("%s must be an integer, got %v", key, v))
		}
		// float64(math.MaxInt) rounds up to 2^63, which is already out of range.
		if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
			return 0, core.WrapError(core.ErrInvalidParameter, fmt.Errorf("%s is out of range, got %v", key, v))
		}
		return int(v), nil
	default:
		return 0, core.WrapError(core.ErrInvalidParameter, fmt.Errorf("%s has unsupported type %T", key, raw))
	}
}

// FloatParam reads a numeric parameter. Missing keys yield def.
func FloatParam(params map[string]any, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, core.WrapError(core.ErrInvalidParameter, fmt.Errorf("%s has unsupported type %T", key, raw))
	}
}
