package parquetfile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quantlab/internal/collector"
	"github.com/newthinker/quantlab/internal/core"
)

// Cache serves bars from a Store and falls back to a remote provider,
// writing fetched bars through to the Store.
type Cache struct {
	source collector.Provider
	store  *Store
	logger *zap.Logger
}

// NewCache wraps source with a Parquet read-through cache.
func NewCache(source collector.Provider, store *Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{source: source, store: store, logger: logger}
}

func (c *Cache) Name() string {
	return c.source.Name() + "+parquet"
}

// FetchHistory returns stored bars when the range is covered, otherwise
// fetches from the source and stores the result.
func (c *Cache) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (core.Bars, error) {
	bars, err := c.store.FetchHistory(ctx, symbol, start, end, interval)
	if err == nil && covers(bars, start, end) {
		c.logger.Debug("bars served from cache", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
		return bars, nil
	}
	if err != nil && !errors.Is(err, core.ErrNoData) {
		c.logger.Warn("cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}

	bars, err = c.source.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}

	if err := c.store.WriteBars(symbol, bars); err != nil {
		c.logger.Warn("cache write failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return bars, nil
}

// covers reports whether bars span [start, end] to within a week at each
// edge. Open bounds always miss the cache.
func covers(bars core.Bars, start, end time.Time) bool {
	if len(bars) == 0 || start.IsZero() || end.IsZero() {
		return false
	}
	const slack = 7 * 24 * time.Hour
	return bars[0].Time.Sub(start) <= slack && end.Sub(bars[len(bars)-1].Time) <= slack
}
