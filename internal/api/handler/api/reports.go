// internal/api/handler/api/reports.go
package api

import (
	"context"
	"net/http"

	"github.com/newthinker/quantlab/internal/api/response"
	"github.com/newthinker/quantlab/internal/config"
	"github.com/newthinker/quantlab/internal/report"
)

// ReportsApp defines the interface needed from app.App.
type ReportsApp interface {
	Config() *config.Config
	DailyReport(ctx context.Context, asset config.Asset) (*report.DailyReport, string, error)
	RunDailyReports(ctx context.Context) ([]*report.DailyReport, error)
}

// ReportsHandler handles daily report API requests.
type ReportsHandler struct {
	app ReportsApp
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(app ReportsApp) *ReportsHandler {
	return &ReportsHandler{app: app}
}

// Trigger generates daily reports for every configured asset in the background.
func (h *ReportsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	assets := h.app.Config().Assets

	go h.app.RunDailyReports(context.Background())

	response.JSON(w, http.StatusAccepted, map[string]any{
		"triggered":    true,
		"assets_count": len(assets),
	})
}

// Create generates and stores the daily report for one symbol.
// Symbols outside the configured assets are reported under their own name.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request, symbol string) {
	asset, ok := h.app.Config().LookupAsset(symbol)
	if !ok {
		asset = config.Asset{Name: symbol, Symbol: symbol}
	}

	rep, path, err := h.app.DailyReport(r.Context(), asset)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"path":   path,
		"report": rep,
		"text":   rep.Text(),
	})
}
