package indicator

import "math"

// RSI calculates the Relative Strength Index aligned to the input index.
//
// Gains and losses are close-to-close deltas; the first bar has no prior
// close and contributes a zero delta. Each average is a simple rolling mean
// over period values, so the first defined RSI is at index period-1.
// Undefined values are NaN. A window with gains but no losses saturates to
// 100; a window with neither is undefined.
func RSI(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(prices) < period {
		return out
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	for i := period - 1; i < len(prices); i++ {
		out[i] = rsiValue(avgGain[i], avgLoss[i])
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100
		}
		return math.NaN()
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
