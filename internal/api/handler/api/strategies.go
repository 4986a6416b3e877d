// internal/api/handler/api/strategies.go
package api

import (
	"net/http"

	"github.com/newthinker/quantlab/internal/api/response"
	"github.com/newthinker/quantlab/internal/strategy"
)

// StrategyInfo describes one registered strategy.
type StrategyInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Params      map[string]any `json:"params,omitempty"`
}

// StrategiesHandler lists the registered strategies.
type StrategiesHandler struct {
	strategies *strategy.Engine
	params     func(name string) map[string]any
}

// NewStrategiesHandler creates a new strategies handler.
// params returns the configured parameters for a strategy and may be nil.
func NewStrategiesHandler(strategies *strategy.Engine, params func(name string) map[string]any) *StrategiesHandler {
	return &StrategiesHandler{strategies: strategies, params: params}
}

// List returns every registered strategy, sorted by name.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	descriptions := h.strategies.Describe()

	out := make([]StrategyInfo, 0, len(descriptions))
	for _, name := range h.strategies.Names() {
		info := StrategyInfo{Name: name, Description: descriptions[name]}
		if h.params != nil {
			info.Params = h.params(name)
		}
		out = append(out, info)
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"strategies": out,
		"count":      len(out),
	})
}
