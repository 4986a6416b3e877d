package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/quantlab/internal/collector"
	"github.com/newthinker/quantlab/internal/core"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	userAgent      = "Mozilla/5.0 (compatible; quantlab/1.0)"
)

// validSymbol matches tickers like AAPL, ENGI.PA, 600519.SH, ^FCHI, EURUSD=X, GC=F, BTC-USD
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,10}([.=-][A-Za-z0-9]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart provider
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// Option configures a Yahoo provider
type Option func(*Yahoo)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(y *Yahoo) {
		y.client = c
	}
}

// WithBaseURL points the provider at a different chart endpoint
func WithBaseURL(u string) Option {
	return func(y *Yahoo) {
		y.baseURL = strings.TrimRight(u, "/")
	}
}

// New creates a new Yahoo provider
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches historical bars
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (core.Bars, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, err)
	}

	result, err := y.fetchChart(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	// daily timestamps carry the session open, so end covers its whole day
	last := end
	if !last.IsZero() {
		last = last.Add(24*time.Hour - time.Nanosecond)
	}

	bars := toBars(result)
	filtered := bars[:0]
	for _, b := range bars {
		if collector.InRange(b.Time, start, last) {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for symbol: %s", symbol))
	}
	if err := filtered.Validate(); err != nil {
		return nil, err
	}
	return filtered, nil
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol string, start, end time.Time, interval string) (*chartResult, error) {
	params := url.Values{}
	params.Set("interval", y.toYahooInterval(interval))
	if start.IsZero() && end.IsZero() {
		params.Set("range", "max")
	} else {
		if end.IsZero() {
			end = time.Now()
		}
		params.Set("period1", fmt.Sprintf("%d", start.Unix()))
		// period2 is exclusive
		params.Set("period2", fmt.Sprintf("%d", end.Add(24*time.Hour).Unix()))
	}

	reqURL := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(y.toYahooSymbol(symbol)), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}
	return &result.Chart.Result[0], nil
}

// toBars converts chart rows, skipping rows without a close and keeping the
// last row for duplicate timestamps.
func toBars(r *chartResult) core.Bars {
	quotes := r.Indicators.Quote[0]

	byTime := make(map[int64]core.Bar, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePrice := at(quotes.Close, i)
		if closePrice == nil {
			continue // Skip missing data
		}
		c := *closePrice
		bar := core.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  valueOr(at(quotes.Open, i), c),
			High:  valueOr(at(quotes.High, i), c),
			Low:   valueOr(at(quotes.Low, i), c),
			Close: c,
		}
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			bar.Volume = *quotes.Volume[i]
		}
		byTime[ts] = bar
	}

	bars := make(core.Bars, 0, len(byTime))
	for _, b := range byTime {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func (y *Yahoo) toYahooInterval(interval string) string {
	switch interval {
	case "1m", "5m", "15m", "1h", "1d", "1wk", "1mo":
		return interval
	case "1w":
		return "1wk"
	default:
		return "1d"
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
