// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/quantlab/internal/api/job"
	"github.com/newthinker/quantlab/internal/api/response"
	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
	"go.uber.org/zap"
)

const (
	backtestTimeout = 5 * time.Minute
	dateLayout      = "2006-01-02"
)

// BacktestRequest is the request body for starting a backtest.
// Empty dates fall back to the configured lookback.
type BacktestRequest struct {
	Symbol   string         `json:"symbol"`
	Strategy string         `json:"strategy"`
	Start    string         `json:"start,omitempty"`
	End      string         `json:"end,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// BacktestRunner runs one backtest.
type BacktestRunner interface {
	Run(ctx context.Context, req backtest.Request) (*backtest.Report, error)
}

// RequestBuilder fills configured defaults into a backtest request.
type RequestBuilder func(symbol, strategy string, start, end time.Time) backtest.Request

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore   *job.Store
	runner     BacktestRunner
	strategies *strategy.Engine
	build      RequestBuilder
	onActive   func(int)
	logger     *zap.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(
	jobStore *job.Store,
	runner BacktestRunner,
	strategies *strategy.Engine,
	build RequestBuilder,
) *BacktestHandler {
	if build == nil {
		build = func(symbol, strategy string, start, end time.Time) backtest.Request {
			return backtest.Request{Symbol: symbol, Strategy: strategy, Start: start, End: end}
		}
	}
	return &BacktestHandler{
		jobStore:   jobStore,
		runner:     runner,
		strategies: strategies,
		build:      build,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger used for background job updates.
func (h *BacktestHandler) SetLogger(logger *zap.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// OnActiveChange registers a callback receiving the active job count
// whenever a job starts or finishes.
func (h *BacktestHandler) OnActiveChange(fn func(active int)) {
	h.onActive = fn
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, err))
		return
	}

	// Validate required fields
	if req.Symbol == "" || req.Strategy == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, errors.New("symbol and strategy are required")))
		return
	}

	// Parse dates
	start, err := parseDate(req.Start)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, fmt.Errorf("end %s before start %s", req.End, req.Start)))
		return
	}

	if !h.strategies.Has(req.Strategy) {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("unknown strategy %q (available: %v)", req.Strategy, h.strategies.Names())))
		return
	}

	btReq := h.build(req.Symbol, req.Strategy, start, end)
	if req.Params != nil {
		btReq.Params = req.Params
	}

	// Create job
	j := h.jobStore.Create("backtest")

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	h.reportActive()

	// Run backtest in background
	go h.runBacktest(jobID, btReq)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrInvalidInput, err)
	}
	return t, nil
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID string, req backtest.Request) {
	defer h.reportActive()

	h.update(jobID, job.StatusRunning, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	// Run backtest
	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()
	report, err := h.runner.Run(ctx, req)

	if err != nil {
		h.update(jobID, job.StatusFailed, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = jobError(err)
		})
		return
	}

	h.update(jobID, job.StatusComplete, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = report
	})
}

// update applies fn to the job. A job evicted from the store while running
// loses its result; that is only logged.
func (h *BacktestHandler) update(jobID string, status job.Status, fn func(*job.Job)) {
	if err := h.jobStore.Update(jobID, fn); err != nil {
		h.logger.Debug("job update dropped",
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// jobError keeps a coded error's code and files anything else as a strategy failure.
func jobError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return core.WrapError(core.ErrStrategyFailed, err)
}

func (h *BacktestHandler) reportActive() {
	if h.onActive != nil {
		h.onActive(h.jobStore.Active())
	}
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := h.jobStore.Get(jobID)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		detail := map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
		if j.Error.Cause != nil {
			detail["cause"] = j.Error.Cause.Error()
		}
		resp["error"] = detail
	}

	response.JSON(w, http.StatusOK, resp)
}

// List returns every tracked backtest job without results.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobStore.List()
	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		if j.Type != "backtest" {
			continue
		}
		out = append(out, map[string]any{
			"job_id":     j.ID,
			"status":     j.Status,
			"created_at": j.CreatedAt,
		})
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"jobs":  out,
		"count": len(out),
	})
}
