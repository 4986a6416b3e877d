package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/performance"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		wantErr  bool
	}{
		{"both", "2023-01-01", "2024-01-01", false},
		{"open", "", "", false},
		{"from only", "2023-01-01", "", false},
		{"bad from", "01/01/2023", "", true},
		{"bad to", "", "tomorrow", true},
		{"reversed", "2024-01-01", "2023-01-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRange(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from == "", start.IsZero())
			assert.Equal(t, tt.to == "", end.IsZero())
		})
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams(map[string]string{"short_window": "5", "oversold": " 25.5 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"short_window": 5.0, "oversold": 25.5}, params)

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = parseParams(map[string]string{"period": "fourteen"})
	assert.Error(t, err)
}

func TestWriteComparison(t *testing.T) {
	reports := []*backtest.Report{
		{
			Description: "Momentum (20/50)",
			Bars:        250,
			Metrics:     performance.Summary{TotalReturn: 12.5, SharpeRatio: 0.8},
			Benchmark:   performance.Summary{TotalReturn: 20},
			Trades:      make([]backtest.Trade, 3),
			CreatedAt:   time.Now(),
		},
		{
			Description: "RSI (14)",
			Bars:        250,
			Metrics:     performance.Summary{TotalReturn: -4},
			Benchmark:   performance.Summary{TotalReturn: 20},
		},
	}

	var buf bytes.Buffer
	writeComparison(&buf, "MC.PA", reports)
	out := buf.String()

	assert.Contains(t, out, "Strategy comparison on MC.PA (250 bars)")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6) // title, rule, header, 2 strategies, benchmark
	assert.Contains(t, lines[3], "Momentum (20/50)")
	assert.Contains(t, lines[3], "+12.50")
	assert.Contains(t, lines[4], "-4.00")
	assert.Contains(t, lines[5], "Buy & Hold")
	assert.Contains(t, lines[5], "+20.00")
}
