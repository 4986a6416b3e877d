package momentum

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
)

func barsFrom(prices []float64) core.Bars {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(core.Bars, len(prices))
	for i, p := range prices {
		bars[i] = core.Bar{Time: base.AddDate(0, 0, i), Close: p}
	}
	return bars
}

func TestMomentum_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*Momentum)(nil)
}

func TestMomentum_NameAndDescription(t *testing.T) {
	s := Default()
	if s.Name() != "momentum" {
		t.Errorf("expected 'momentum', got '%s'", s.Name())
	}
	if s.Description() != "Momentum (20/50)" {
		t.Errorf("unexpected description %q", s.Description())
	}
}

func TestMomentum_Crossover(t *testing.T) {
	s := New(2, 4)

	// decline, then sharp recovery
	prices := []float64{100, 95, 90, 85, 80, 120, 130}
	positions, err := s.GenerateSignals(barsFrom(prices))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// index 3: short (90+85)/2=87.5 < long 92.5 -> 0
	// index 4: short 82.5 < long 87.5 -> 0
	// index 5: short 100 > long 93.75 -> 1
	// index 6: short 125 > long 103.75 -> 1
	want := core.Positions{0, 0, 0, 0, 0, 1, 1}
	for i := range want {
		if positions[i] != want[i] {
			t.Errorf("positions[%d] = %d, want %d", i, positions[i], want[i])
		}
	}
}

func TestMomentum_RecomputedEveryBar(t *testing.T) {
	s := New(1, 2)

	// short > long whenever the close rises
	prices := []float64{10, 11, 10, 12, 11}
	positions, err := s.GenerateSignals(barsFrom(prices))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := core.Positions{0, 1, 0, 1, 0}
	for i := range want {
		if positions[i] != want[i] {
			t.Errorf("positions[%d] = %d, want %d", i, positions[i], want[i])
		}
	}
}

func TestMomentum_InsufficientHistory(t *testing.T) {
	s := New(5, 10)
	positions, err := s.GenerateSignals(barsFrom([]float64{1, 2, 3, 4, 5, 6}))
	if err != nil {
		t.Fatalf("insufficient history must not be an error: %v", err)
	}
	if len(positions) != 6 {
		t.Fatalf("expected 6 positions, got %d", len(positions))
	}
	for i, p := range positions {
		if p != core.Flat {
			t.Errorf("positions[%d] = %d, want 0", i, p)
		}
	}
}

func TestMomentum_InvertedWindowsAllowed(t *testing.T) {
	s := New(4, 2)
	positions, err := s.GenerateSignals(barsFrom([]float64{1, 2, 3, 4, 5, 6}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// rising series: the "short" (4) average lags the "long" (2) one
	for i, p := range positions {
		if p != core.Flat {
			t.Errorf("positions[%d] = %d, want 0", i, p)
		}
	}
}

func TestMomentum_Init(t *testing.T) {
	tests := []struct {
		name      string
		params    map[string]any
		wantShort int
		wantLong  int
		wantErr   bool
	}{
		{"defaults", nil, 20, 50, false},
		{"override", map[string]any{"short_window": 5, "long_window": 30}, 5, 30, false},
		{"json numbers", map[string]any{"short_window": 10.0}, 10, 50, false},
		{"zero window", map[string]any{"short_window": 0}, 0, 0, true},
		{"negative window", map[string]any{"long_window": -3}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			err := s.Init(strategy.Config{Params: tt.params})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, core.ErrInvalidParameter) {
					t.Errorf("expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if s.shortWindow != tt.wantShort || s.longWindow != tt.wantLong {
				t.Errorf("windows = %d/%d, want %d/%d", s.shortWindow, s.longWindow, tt.wantShort, tt.wantLong)
			}
		})
	}
}

func TestMomentum_InvalidBars(t *testing.T) {
	bars := barsFrom([]float64{1, 2, 3})
	bars[2].Time = bars[0].Time

	_, err := Default().GenerateSignals(bars)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
