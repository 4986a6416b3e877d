package core

import (
	"fmt"
	"math"
	"time"
)

// Bar represents one OHLCV observation
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Bars is a time-ordered bar series. Components only read it.
type Bars []Bar

// Validate checks the structural requirements every pipeline stage relies on:
// at least one bar, a positive finite Close, and strictly increasing timestamps.
func (b Bars) Validate() error {
	if len(b) == 0 {
		return WrapError(ErrInvalidInput, fmt.Errorf("empty bar series"))
	}
	for i, bar := range b {
		if bar.Close <= 0 || math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) {
			return WrapError(ErrInvalidInput, fmt.Errorf("bar %d: invalid close %v", i, bar.Close))
		}
		if i > 0 && !bar.Time.After(b[i-1].Time) {
			return WrapError(ErrInvalidInput,
				fmt.Errorf("bar %d: timestamp %s not after %s", i, bar.Time.Format(time.RFC3339), b[i-1].Time.Format(time.RFC3339)))
		}
	}
	return nil
}

// Closes returns a copy of the Close column
func (b Bars) Closes() []float64 {
	closes := make([]float64, len(b))
	for i, bar := range b {
		closes[i] = bar.Close
	}
	return closes
}

// Position is the exposure for one bar: 0 = flat, 1 = fully invested
type Position int

const (
	Flat Position = 0
	Long Position = 1
)

// Positions is a position series aligned index-for-index with a Bars series
type Positions []Position

// Validate checks that every value is Flat or Long.
func (p Positions) Validate() error {
	for i, v := range p {
		if v != Flat && v != Long {
			return WrapError(ErrInvalidInput, fmt.Errorf("position %d: value %d outside {0,1}", i, v))
		}
	}
	return nil
}

// Constant returns a series of n copies of v
func Constant(n int, v Position) Positions {
	p := make(Positions, n)
	if v != Flat {
		for i := range p {
			p[i] = v
		}
	}
	return p
}
