package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quantlab/internal/config"
	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/notifier"
	"github.com/newthinker/quantlab/internal/storage/archive"
)

type mockProvider struct {
	mu    sync.Mutex
	bars  map[string]core.Bars
	fail  map[string]error
	calls []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (core.Bars, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol+"@"+interval)
	m.mu.Unlock()

	if err := m.fail[symbol]; err != nil {
		return nil, err
	}
	bars, ok := m.bars[symbol]
	if !ok {
		return nil, core.ErrNoData
	}
	return bars, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifier.Message
	err  error
}

func (r *recordingNotifier) Name() string { return "recorder" }

func (r *recordingNotifier) Init(cfg notifier.Config) error { return nil }

func (r *recordingNotifier) Send(ctx context.Context, msg notifier.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

// twoSessions returns 5m bars for Jan 2 and Jan 3 2024, 09:00 to 09:20 UTC each.
func twoSessions() core.Bars {
	var bars core.Bars
	for d := 2; d <= 3; d++ {
		for i := 0; i < 5; i++ {
			c := float64(100*d + i)
			bars = append(bars, core.Bar{
				Time:   time.Date(2024, 1, d, 9, 5*i, 0, 0, time.UTC),
				Open:   c - 0.5,
				High:   c + 1,
				Low:    c - 1,
				Close:  c,
				Volume: 100,
			})
		}
	}
	return bars
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Reports.Path = t.TempDir()
	cfg.Data.Path = t.TempDir()
	return cfg
}

func fixedClock() func() time.Time {
	now := time.Date(2024, 1, 3, 19, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(testConfig(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "yahoo", a.Provider().Name())
	assert.NotNil(t, a.Metrics())
	assert.Equal(t, []string{"buy_hold", "momentum", "rsi"}, a.Strategies().Names())
	assert.Equal(t, []string{"parquet", "yahoo"}, a.Collectors().Names())
	assert.Equal(t, "Europe/Paris", a.Location().String())
	assert.Equal(t, 10000.0, a.Backtester().Settings().InitialCapital)
}

func TestNew_ProviderSelection(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*config.Config)
		provider string
		wantErr  error
	}{
		{"yahoo", func(c *config.Config) {}, "yahoo", nil},
		{"yahoo cached", func(c *config.Config) { c.Data.Cache = true }, "yahoo+parquet", nil},
		{"parquet", func(c *config.Config) { c.Data.Provider = "parquet" }, "parquet", nil},
		{"parquet ignores cache", func(c *config.Config) {
			c.Data.Provider = "parquet"
			c.Data.Cache = true
		}, "parquet", nil},
		{"unknown", func(c *config.Config) { c.Data.Provider = "bloomberg" }, "", core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)

			a, err := New(cfg, nil)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, a.Provider().Name())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, nil)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))

	cfg := testConfig(t)
	cfg.Storage.Reports.Type = "ftp"
	_, err = New(cfg, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false

	a, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, a.Metrics())
}

func TestApp_Request(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backtest.LookbackDays = 30
	a, err := New(cfg, nil, WithClock(fixedClock()))
	require.NoError(t, err)

	req := a.Request("AAPL", "momentum", time.Time{}, time.Time{})
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, fixedClock()(), req.End)
	assert.Equal(t, fixedClock()().AddDate(0, 0, -30), req.Start)
	assert.Equal(t, 20, req.Params["short_window"])

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	req = a.Request("AAPL", "buy_hold", start, end)
	assert.Equal(t, start, req.Start)
	assert.Equal(t, end, req.End)
	assert.Nil(t, req.Params)
}

func TestApp_EnabledStrategies(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies["momentum"] = config.StrategyConfig{Disabled: true}

	a, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"buy_hold", "rsi"}, a.EnabledStrategies())
}

func TestLastSession(t *testing.T) {
	bars := twoSessions()

	session := LastSession(bars, time.UTC)
	require.Len(t, session, 5)
	assert.Equal(t, 3, session[0].Time.Day())

	// 09:00 UTC is 18:00 in Tokyo, both sessions stay on their own dates
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	assert.Len(t, LastSession(bars, tokyo), 5)

	assert.Nil(t, LastSession(nil, time.UTC))
}

func TestNextRun(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		hhmm string
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2024, 1, 3, 10, 0, 0, 0, paris),
			hhmm: "20:00",
			want: time.Date(2024, 1, 3, 20, 0, 0, 0, paris),
		},
		{
			name: "already passed",
			now:  time.Date(2024, 1, 3, 21, 0, 0, 0, paris),
			hhmm: "20:00",
			want: time.Date(2024, 1, 4, 20, 0, 0, 0, paris),
		},
		{
			name: "exactly now rolls over",
			now:  time.Date(2024, 1, 3, 20, 0, 0, 0, paris),
			hhmm: "20:00",
			want: time.Date(2024, 1, 4, 20, 0, 0, 0, paris),
		},
		{
			name: "utc input",
			now:  time.Date(2024, 1, 3, 18, 30, 0, 0, time.UTC), // 19:30 Paris
			hhmm: "20:00",
			want: time.Date(2024, 1, 3, 20, 0, 0, 0, paris),
		},
		{
			name: "month end",
			now:  time.Date(2024, 1, 31, 23, 0, 0, 0, paris),
			hhmm: "08:15",
			want: time.Date(2024, 2, 1, 8, 15, 0, 0, paris),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, tt.hhmm, paris)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestApp_DailyReport(t *testing.T) {
	provider := &mockProvider{bars: map[string]core.Bars{"ENGI.PA": twoSessions()}}
	storage, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	cfg := testConfig(t)
	a, err := New(cfg, nil, WithProvider(provider), WithStorage(storage), WithClock(fixedClock()))
	require.NoError(t, err)

	r, path, err := a.DailyReport(context.Background(), config.Asset{Name: "ENGIE", Symbol: "ENGI.PA", Currency: "€"})
	require.NoError(t, err)

	assert.Equal(t, "ENGIE", r.Name)
	assert.Equal(t, "€", r.Currency)
	assert.Equal(t, 299.5, r.Open)
	assert.Equal(t, 304.0, r.Close)
	assert.Equal(t, 305.0, r.High)
	assert.Equal(t, 299.0, r.Low)
	assert.Equal(t, int64(500), r.Volume)
	assert.Equal(t, "daily/ENGI.PA/20240103.txt", path)

	ok, err := storage.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"ENGI.PA@5m"}, provider.calls)
}

func TestApp_RunDailyReports(t *testing.T) {
	provider := &mockProvider{
		bars: map[string]core.Bars{"A": twoSessions(), "C": twoSessions()},
		fail: map[string]error{"B": core.WrapError(core.ErrCollectorFailed, errors.New("boom"))},
	}
	storage, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Assets = []config.Asset{{Symbol: "A"}, {Symbol: "B"}, {Symbol: "C"}}
	a, err := New(cfg, nil, WithProvider(provider), WithStorage(storage), WithClock(fixedClock()))
	require.NoError(t, err)

	reports, err := a.RunDailyReports(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCollectorFailed))
	assert.Contains(t, err.Error(), "B:")

	require.Len(t, reports, 2)
	assert.Equal(t, "A", reports[0].Symbol)
	assert.Equal(t, "C", reports[1].Symbol)
}

func TestApp_StartStop(t *testing.T) {
	a, err := New(testConfig(t), nil, WithProvider(&mockProvider{}))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Start(context.Background()) }()

	require.Eventually(t, a.Running, time.Second, 5*time.Millisecond)
	a.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, a.Running())
}

func TestApp_StartRequiresTime(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.Time = ""
	a, err := New(cfg, nil, WithProvider(&mockProvider{}))
	require.NoError(t, err)

	err = a.Start(context.Background())
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestNew_Notifiers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notifiers = []notifier.Config{
		{Type: "webhook", Params: map[string]any{"url": "http://localhost/hook"}},
		{Type: "telegram", Params: map[string]any{"bot_token": "t", "chat_id": "c"}},
	}
	a, err := New(cfg, nil, WithNotifier(&recordingNotifier{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"recorder", "telegram", "webhook"}, a.Notifiers().Names())

	cfg.Notifiers = []notifier.Config{{Type: "webhook"}}
	_, err = New(cfg, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "got %v", err)
}

func TestApp_RunDailyReports_Notifies(t *testing.T) {
	provider := &mockProvider{bars: map[string]core.Bars{"GC=F": twoSessions()}}
	storage, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	rec := &recordingNotifier{err: errors.New("delivery down")}

	cfg := testConfig(t)
	cfg.Assets = []config.Asset{{Name: "Gold", Symbol: "GC=F", Currency: "$"}}
	a, err := New(cfg, nil,
		WithProvider(provider), WithStorage(storage), WithClock(fixedClock()), WithNotifier(rec))
	require.NoError(t, err)

	// delivery failures do not fail the run
	reports, err := a.RunDailyReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	require.Len(t, rec.sent, 1)
	msg := rec.sent[0]
	assert.Equal(t, notifier.KindDailyReport, msg.Kind)
	assert.Equal(t, "GC=F", msg.Symbol)
	assert.Equal(t, "Gold daily report 2024-01-03", msg.Title)
	assert.Equal(t, "daily/GC=F/20240103.txt", msg.Path)
	assert.Equal(t, reports[0].Text(), msg.Text)
}
