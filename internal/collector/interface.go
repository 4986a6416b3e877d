package collector

import (
	"context"
	"time"

	"github.com/newthinker/quantlab/internal/core"
)

// Provider defines the interface for historical bar sources
type Provider interface {
	Name() string

	// FetchHistory returns bars for symbol within [start, end], oldest first.
	// A zero start or end leaves that side unbounded.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) (core.Bars, error)
}

// InRange reports whether t falls within [start, end]; zero bounds are open.
func InRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
