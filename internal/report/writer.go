package report

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/storage/archive"
)

// Report kinds, used as the top-level archive directory
const (
	KindDaily    = "daily"
	KindBacktest = "backtest"
)

// Writer persists rendered reports and their YAML data to an archive
type Writer struct {
	storage archive.Storage
	logger  *zap.Logger
}

// NewWriter creates a Writer over storage
func NewWriter(storage archive.Storage, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{storage: storage, logger: logger}
}

// Path returns the text report path <kind>/<symbol>/<YYYYMMDD>.txt
func Path(kind, symbol string, date time.Time) string {
	return path.Join(kind, sanitize(symbol), date.Format("20060102")+".txt")
}

// WriteDaily stores a daily report and returns its text path
func (w *Writer) WriteDaily(ctx context.Context, r *DailyReport) (string, error) {
	return w.write(ctx, Path(KindDaily, r.Symbol, r.Generated), r.Text(), r)
}

// WriteBacktest stores a backtest report under its strategy name and returns its text path
func (w *Writer) WriteBacktest(ctx context.Context, r *backtest.Report) (string, error) {
	symbol := r.Request.Symbol + "/" + r.Request.Strategy
	return w.write(ctx, Path(KindBacktest, symbol, r.CreatedAt), BacktestText(r), r)
}

func (w *Writer) write(ctx context.Context, textPath, text string, data any) (string, error) {
	sidecar, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encoding report data: %w", err)
	}

	if err := w.storage.Write(ctx, textPath, []byte(text)); err != nil {
		return "", fmt.Errorf("writing %s: %w", textPath, err)
	}
	yamlPath := strings.TrimSuffix(textPath, ".txt") + ".yaml"
	if err := w.storage.Write(ctx, yamlPath, sidecar); err != nil {
		return "", fmt.Errorf("writing %s: %w", yamlPath, err)
	}

	w.logger.Info("report saved", zap.String("path", textPath))
	return textPath, nil
}

// sanitize keeps each path segment of a symbol filesystem- and key-safe
func sanitize(symbol string) string {
	parts := strings.Split(symbol, "/")
	for i, p := range parts {
		p = strings.NewReplacer("\\", "_", "..", "_", " ", "_").Replace(p)
		if p == "" {
			p = "_"
		}
		parts[i] = p
	}
	return strings.Join(parts, "/")
}
