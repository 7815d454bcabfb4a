package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SMA computes the trailing simple moving average of values over window.
// Points with fewer than window values of history are NaN.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = stat.Mean(values[i-window+1:i+1], nil)
	}
	return out
}

// StdDev computes the trailing sample standard deviation (n-1 divisor) over window.
func StdDev(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = stat.StdDev(values[i-window+1:i+1], nil)
	}
	return out
}

// RSI computes the relative strength index using simple rolling means of
// gains and losses. The missing first difference counts as no change, so the
// first defined point is at index window-1.
//
// When the average loss is zero the ratio is normalized to 0, which yields
// RSI = 0 for a window without losses.
func RSI(closes []float64, window int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if window <= 0 || n == 0 {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains[i] = diff
		} else if diff < 0 {
			losses[i] = -diff
		}
	}

	avgGain := SMA(gains, window)
	avgLoss := SMA(losses, window)
	for i := window - 1; i < n; i++ {
		out[i] = rsiFromAverages(avgGain[i], avgLoss[i])
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if math.IsNaN(avgGain) || math.IsNaN(avgLoss) {
		return math.NaN()
	}
	// a flat window (no gains, no losses) also lands here and reads 0;
	// pandas yields NaN for the same 0/0.
	var rs float64
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs)
}

// Bollinger computes the middle, upper and lower bands over window with
// numStd sample standard deviations.
func Bollinger(closes []float64, window int, numStd float64) (mid, upper, lower []float64) {
	mid = SMA(closes, window)
	sd := StdDev(closes, window)
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(mid[i]) || math.IsNaN(sd[i]) {
			continue
		}
		band := numStd * sd[i]
		upper[i] = mid[i] + band
		lower[i] = mid[i] - band
	}
	return mid, upper, lower
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
