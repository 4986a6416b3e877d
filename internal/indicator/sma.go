package indicator

import "math"

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// RollingMean is SMA aligned to the input index.
// The first period-1 values are NaN because the window is incomplete.
// Each window is summed directly so that an all-zero window is exactly zero.
func RollingMean(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		var sum float64
		for _, v := range values[i-period+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(period)
	}
	return out
}

// Align pads an SMA-style series with leading NaN so that it has length n
// and each value sits at the index of the last bar in its window.
func Align(series []float64, n int) []float64 {
	out := make([]float64, n)
	offset := n - len(series)
	for i := range out {
		if i < offset {
			out[i] = math.NaN()
			continue
		}
		out[i] = series[i-offset]
	}
	return out
}
