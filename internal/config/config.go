package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // report timezone must resolve without system zoneinfo

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/notifier"
	"github.com/newthinker/quantlab/internal/storage/archive"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Data       DataConfig                `mapstructure:"data"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Assets     []Asset                   `mapstructure:"assets"`
	Report     ReportConfig              `mapstructure:"report"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Notifiers  []notifier.Config         `mapstructure:"notifiers"`
	Log        LogConfig                 `mapstructure:"log"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// BacktestConfig holds the simulation parameters.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	PeriodsPerYear int     `mapstructure:"periods_per_year"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	Interval       string  `mapstructure:"interval"`
	Parallelism    int     `mapstructure:"parallelism"`
	LookbackDays   int     `mapstructure:"lookback_days"`
}

// DataConfig selects where bars come from.
type DataConfig struct {
	Provider string        `mapstructure:"provider"` // "yahoo" or "parquet"
	Path     string        `mapstructure:"path"`     // parquet directory
	Cache    bool          `mapstructure:"cache"`    // store yahoo bars under path
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StrategyConfig struct {
	Disabled bool           `mapstructure:"disabled"`
	Params   map[string]any `mapstructure:"params"`
}

// Asset is a tracked instrument.
type Asset struct {
	Name     string `mapstructure:"name" json:"name"`
	Symbol   string `mapstructure:"symbol" json:"symbol"`
	Currency string `mapstructure:"currency" json:"currency,omitempty"`
}

// ReportConfig holds daily report settings.
type ReportConfig struct {
	Interval string `mapstructure:"interval"`
	Timezone string `mapstructure:"timezone"`
	Time     string `mapstructure:"time"`     // HH:MM in Timezone
	Schedule bool   `mapstructure:"schedule"` // run daily reports while serving
}

type StorageConfig struct {
	Reports ReportsStorageConfig `mapstructure:"reports"`
}

type ReportsStorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// Archive converts the section into archive settings.
func (c ReportsStorageConfig) Archive() archive.Config {
	return archive.Config{
		Type: c.Type,
		Path: c.Path,
		S3: archive.S3Config{
			Bucket:    c.S3.Bucket,
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		},
	}
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("QUANTLAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	// a configured asset list replaces the defaults rather than merging by index
	defaultAssets := cfg.Assets
	cfg.Assets = nil

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if len(cfg.Assets) == 0 {
		cfg.Assets = defaultAssets
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Backtest: BacktestConfig{
			InitialCapital: 10000,
			PeriodsPerYear: 252,
			RiskFreeRate:   0.02,
			Interval:       "1d",
			Parallelism:    4,
			LookbackDays:   365,
		},
		Data: DataConfig{
			Provider: "yahoo",
			Path:     "data/bars",
			Timeout:  10 * time.Second,
		},
		Strategies: map[string]StrategyConfig{
			"momentum": {Params: map[string]any{"short_window": 20, "long_window": 50}},
			"rsi":      {Params: map[string]any{"period": 14, "oversold": 30.0, "overbought": 70.0}},
		},
		Assets: []Asset{
			{Name: "ENGIE", Symbol: "ENGI.PA", Currency: "€"},
			{Name: "EUR/USD", Symbol: "EURUSD=X"},
			{Name: "Gold", Symbol: "GC=F", Currency: "$"},
			{Name: "CAC 40", Symbol: "^FCHI"},
			{Name: "Bitcoin", Symbol: "BTC-USD", Currency: "$"},
			{Name: "Total", Symbol: "TTE.PA", Currency: "€"},
			{Name: "LVMH", Symbol: "MC.PA", Currency: "€"},
		},
		Report: ReportConfig{
			Interval: "5m",
			Timezone: "Europe/Paris",
			Time:     "20:00",
		},
		Storage: StorageConfig{
			Reports: ReportsStorageConfig{
				Type: "localfs",
				Path: "reports",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// StrategyParams returns the configured params for a strategy, nil if none.
func (c *Config) StrategyParams(name string) map[string]any {
	if sc, ok := c.Strategies[name]; ok {
		return sc.Params
	}
	return nil
}

// EnabledStrategies filters names down to those not disabled in config.
func (c *Config) EnabledStrategies(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if sc, ok := c.Strategies[n]; ok && sc.Disabled {
			continue
		}
		out = append(out, n)
	}
	return out
}

// LookupAsset finds an asset by symbol or name, case-insensitively.
func (c *Config) LookupAsset(key string) (Asset, bool) {
	for _, a := range c.Assets {
		if strings.EqualFold(a.Symbol, key) || strings.EqualFold(a.Name, key) {
			return a, true
		}
	}
	return Asset{}, false
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Backtest validation
	b := c.Backtest
	if !(b.InitialCapital > 0) || math.IsInf(b.InitialCapital, 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %v", b.InitialCapital))
	}
	if b.PeriodsPerYear <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("periods_per_year must be positive, got %d", b.PeriodsPerYear))
	}
	if math.IsNaN(b.RiskFreeRate) || math.IsInf(b.RiskFreeRate, 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_free_rate must be finite, got %v", b.RiskFreeRate))
	}
	if b.Parallelism < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("parallelism cannot be negative, got %d", b.Parallelism))
	}
	if b.Interval == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("backtest interval required"))
	}

	// Data validation
	switch c.Data.Provider {
	case "yahoo":
		if c.Data.Cache && c.Data.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("data path required when cache is enabled"))
		}
	case "parquet":
		if c.Data.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("data path required when provider is parquet"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data provider %q", c.Data.Provider))
	}

	// Asset validation
	for i, a := range c.Assets {
		if a.Symbol == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("asset %d (%s) has no symbol", i, a.Name))
		}
	}

	// Report storage validation
	r := c.Storage.Reports
	switch r.Type {
	case "localfs":
		if r.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.reports.path required for localfs"))
		}
	case "s3":
		if r.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.reports.s3.bucket required for s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown report storage type %q", r.Type))
	}

	// Log validation
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	// Notifier validation
	seen := make(map[string]bool)
	for i, n := range c.Notifiers {
		switch n.Type {
		case "webhook", "telegram", "email":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifier %d: unknown type %q", i, n.Type))
		}
		if seen[n.Type] {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifier %q configured twice", n.Type))
		}
		seen[n.Type] = true
	}

	if c.Report.Time != "" {
		if _, err := time.Parse("15:04", c.Report.Time); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("report time must be HH:MM, got %q", c.Report.Time))
		}
	}
	if c.Report.Timezone != "" {
		if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("invalid report timezone %q: %w", c.Report.Timezone, err))
		}
	}

	return nil
}
