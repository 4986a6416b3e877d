// internal/api/handler/api/assets.go
package api

import (
	"fmt"
	"net/http"

	"github.com/newthinker/quantlab/internal/api/response"
	"github.com/newthinker/quantlab/internal/config"
	"github.com/newthinker/quantlab/internal/core"
)

// AssetsHandler serves the configured asset list.
type AssetsHandler struct {
	cfg *config.Config
}

// NewAssetsHandler creates a new assets handler.
func NewAssetsHandler(cfg *config.Config) *AssetsHandler {
	return &AssetsHandler{cfg: cfg}
}

// List returns all configured assets.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"assets": h.cfg.Assets,
		"count":  len(h.cfg.Assets),
	})
}

// Get returns one asset by symbol or name.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request, key string) {
	asset, ok := h.cfg.LookupAsset(key)
	if !ok {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrNoData, fmt.Errorf("asset %q not configured", key)))
		return
	}
	response.JSON(w, http.StatusOK, asset)
}
