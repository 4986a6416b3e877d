package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/quantlab/internal/collector"
	"github.com/newthinker/quantlab/internal/core"
)

func TestYahoo_ImplementsProvider(t *testing.T) {
	var _ collector.Provider = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New()
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"000001.SZ", "000001.SZ"},
		{"ENGI.PA", "ENGI.PA"},
	}

	y := New()
	for _, tc := range tests {
		got := y.toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "ENGI.PA", "^FCHI", "EURUSD=X", "GC=F", "BTC-USD", "600519.SH"}
	for _, s := range valid {
		if err := validateSymbol(s); err != nil {
			t.Errorf("validateSymbol(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "AAPL;rm", "../etc", "A B", strings.Repeat("A", 21)}
	for _, s := range invalid {
		if err := validateSymbol(s); err == nil {
			t.Errorf("validateSymbol(%q) expected error", s)
		}
	}
}

const chartJSON = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "ENGI.PA", "currency": "EUR"},
      "timestamp": [1704182400, 1704268800, 1704355200, 1704441600],
      "indicators": {"quote": [{
        "open":   [15.0, 15.2, null, 15.6],
        "high":   [15.3, 15.4, null, 15.8],
        "low":    [14.9, 15.1, null, 15.5],
        "close":  [15.1, 15.3, null, 15.7],
        "volume": [1000, 1100, null, 1300]
      }]}
    }],
    "error": null
  }
}`

func TestYahoo_FetchHistory(t *testing.T) {
	var gotPath, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("expected interval 1d, got %s", r.URL.Query().Get("interval"))
		}
		fmt.Fprint(w, chartJSON)
	}))
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	bars, err := y.FetchHistory(context.Background(), "ENGI.PA", start, end, "1d")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if gotPath != "/ENGI.PA" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotAgent == "" {
		t.Error("expected User-Agent header")
	}

	// null close row is skipped
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if bars[0].Close != 15.1 || bars[2].Close != 15.7 {
		t.Errorf("unexpected closes %v", bars.Closes())
	}
	if bars[2].Volume != 1300 {
		t.Errorf("expected volume 1300, got %d", bars[2].Volume)
	}
	if !bars[0].Time.Equal(time.Unix(1704182400, 0)) {
		t.Errorf("unexpected first time %v", bars[0].Time)
	}
}

func TestYahoo_FetchHistory_FiltersRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON)
	}))
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))
	// a single-day range keeps only the bar stamped on that day
	day := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	bars, err := y.FetchHistory(context.Background(), "ENGI.PA", day, day, "1d")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 15.3 {
		t.Errorf("expected single bar with close 15.3, got %v", bars.Closes())
	}
}

func TestYahoo_FetchHistory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		symbol  string
		wantErr error
	}{
		{
			name:    "invalid symbol",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			symbol:  "bad symbol",
			wantErr: core.ErrInvalidInput,
		},
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			symbol:  "AAPL",
			wantErr: core.ErrCollectorFailed,
		},
		{
			name: "api error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
			},
			symbol:  "ZZZZ",
			wantErr: core.ErrCollectorFailed,
		},
		{
			name: "all rows missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1704182400],"indicators":{"quote":[{"close":[null]}]}}]}}`)
			},
			symbol:  "AAPL",
			wantErr: core.ErrNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			y := New(WithBaseURL(srv.URL))
			_, err := y.FetchHistory(context.Background(), tt.symbol, time.Time{}, time.Time{}, "1d")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestYahoo_ToYahooInterval(t *testing.T) {
	y := New()
	tests := map[string]string{"1d": "1d", "1h": "1h", "1w": "1wk", "1wk": "1wk", "": "1d", "3d": "1d"}
	for in, want := range tests {
		if got := y.toYahooInterval(in); got != want {
			t.Errorf("toYahooInterval(%q) = %q, want %q", in, got, want)
		}
	}
}
