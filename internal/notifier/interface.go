package notifier

import (
	"context"
	"fmt"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Message kinds
const (
	KindDailyReport = "daily_report"
	KindBacktest    = "backtest"
)

// Message is a rendered report ready for delivery
type Message struct {
	Kind    string    `json:"kind"`
	Symbol  string    `json:"symbol"`
	Title   string    `json:"title"`
	Text    string    `json:"text"`           // fixed-width rendering
	Path    string    `json:"path,omitempty"` // archive location
	Data    any       `json:"data,omitempty"` // structured report
	Created time.Time `json:"created"`
}

// Notifier delivers report messages to an external channel
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers one message
	Send(ctx context.Context, msg Message) error
}

// StringParam reads an optional string parameter
func StringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// StringsParam reads a string list. YAML decoding yields []any.
func StringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// StringMapParam reads a string map such as HTTP headers
func StringMapParam(params map[string]any, key string) map[string]string {
	switch v := params[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = fmt.Sprint(item)
		}
		return out
	default:
		return nil
	}
}

// IntParam reads an integer parameter, falling back to def
func IntParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
