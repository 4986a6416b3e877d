// Package parquetfile stores bar history as one Parquet file per symbol.
package parquetfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/newthinker/quantlab/internal/collector"
	"github.com/newthinker/quantlab/internal/core"
)

// Compile-time interface check.
var _ collector.Provider = (*Store)(nil)

// BarRecord is the Parquet schema for bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// Store reads and writes <Dir>/<SYMBOL>.parquet files.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) Name() string {
	return "parquet"
}

// Path returns the file holding symbol's bars.
func (s *Store) Path(symbol string) string {
	name := strings.ToUpper(strings.NewReplacer("/", "_", "\\", "_").Replace(symbol))
	return filepath.Join(s.Dir, name+".parquet")
}

// FetchHistory reads stored bars within [start, end]. The interval is not
// part of the file layout and is ignored.
func (s *Store) FetchHistory(ctx context.Context, symbol string, start, end time.Time, _ string) (core.Bars, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.read(symbol)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	if records == nil {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no stored bars for %s", symbol))
	}

	bars := make(core.Bars, 0, len(records))
	for _, r := range sortRecords(records) {
		ts := time.UnixMilli(r.Timestamp).UTC()
		if !collector.InRange(ts, start, end) {
			continue
		}
		bars = append(bars, core.Bar{
			Time:   ts,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no stored bars for %s in range", symbol))
	}
	return bars, nil
}

// WriteBars merges bars into the symbol's file. Incoming bars replace stored
// bars with the same timestamp.
func (s *Store) WriteBars(symbol string, bars core.Bars) error {
	if len(bars) == 0 {
		return nil
	}

	existing, err := s.read(symbol)
	if err != nil {
		return err
	}

	incoming := make([]BarRecord, len(bars))
	for i, b := range bars {
		incoming[i] = BarRecord{
			Symbol:    symbol,
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	path := s.Path(symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, mergeRecords(existing, incoming)); err != nil {
		return fmt.Errorf("writing bars for %s: %w", symbol, err)
	}
	return nil
}

// read returns nil records without error when the symbol has no file.
func (s *Store) read(symbol string) ([]BarRecord, error) {
	path := s.Path(symbol)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}
	if records == nil {
		records = []BarRecord{}
	}
	return records, nil
}

// mergeRecords deduplicates by timestamp, preferring incoming records.
func mergeRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	return sortRecords(merged)
}

func sortRecords(records []BarRecord) []BarRecord {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
	return records
}
