// Package indicators implements the technical-analysis helpers the VPA and
// 3-D analyzers build on: SMA, EMA, ATR, and a rolling z-score. Kept
// allocation-light and float64-based — these are rolling statistics, not
// ledger values, so binary-float precision loss is immaterial here (compare
// internal/models, which uses decimal.Decimal for anything that round-trips
// through the cache or the store).
package indicators

import "math"

// SMA returns the n-period simple moving average of closes, aligned to the
// input. Indices before the first full window are NaN.
func SMA(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	if n <= 0 || len(closes) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i := range closes {
		sum += closes[i]
		if i >= n {
			sum -= closes[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// EMA returns the n-period exponential moving average of closes. The series
// is seeded with the SMA of the first n closes, then carried forward with
// smoothing factor 2/(n+1): ema <- (price-ema)*factor + ema. Indices before
// the seed point are NaN.
func EMA(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if n <= 0 || len(closes) < n {
		return out
	}
	var seed float64
	for i := 0; i < n; i++ {
		seed += closes[i]
	}
	seed /= float64(n)
	out[n-1] = seed
	factor := 2.0 / (float64(n) + 1.0)
	ema := seed
	for i := n; i < len(closes); i++ {
		ema = (closes[i]-ema)*factor + ema
		out[i] = ema
	}
	return out
}

// EMANext advances a single EMA value given the previous EMA and the new
// price — the incremental form used once a series' seed has already been
// computed (e.g. by the cached ema:{symbol}:{period} key).
func EMANext(prevEMA, price float64, period int) float64 {
	factor := 2.0 / (float64(period) + 1.0)
	return (price-prevEMA)*factor + prevEMA
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(high, low, prevClose float64) float64 {
	a := high - low
	b := math.Abs(high - prevClose)
	c := math.Abs(low - prevClose)
	return math.Max(a, math.Max(b, c))
}

// ATR is the mean true range over the last n bars (bars[0] is the oldest of
// the n+1 bars needed to compute n true ranges). Returns 0 if fewer than n+1
// bars are supplied.
func ATR(highs, lows, closes []float64, n int) float64 {
	if n <= 0 || len(highs) < n+1 || len(lows) < n+1 || len(closes) < n+1 {
		return 0
	}
	start := len(highs) - n
	var sum float64
	for i := start; i < len(highs); i++ {
		sum += TrueRange(highs[i], lows[i], closes[i-1])
	}
	return sum / float64(n)
}

// ZScore returns the rolling z-score of a series over window n, aligned to
// the input. Indices before the first full window, and windows with zero
// variance, are 0.
func ZScore(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if n <= 1 || len(values) == 0 {
		return out
	}
	var sum, sumSq float64
	for i := range values {
		x := values[i]
		sum += x
		sumSq += x * x
		if i >= n {
			y := values[i-n]
			sum -= y
			sumSq -= y * y
		}
		if i >= n-1 {
			mean := sum / float64(n)
			variance := (sumSq / float64(n)) - (mean * mean)
			std := math.Sqrt(math.Max(variance, 0))
			if std == 0 {
				out[i] = 0
			} else {
				out[i] = (x - mean) / std
			}
		} else {
			out[i] = 0
		}
	}
	return out
}

// LinearRegressionSlope fits y = a + b*x over the given values (x = 0..n-1)
// and returns b. Used by the VPA analyzer's short-term trend detector.
func LinearRegressionSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denom
}

// Mean is the arithmetic mean of a slice; 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation of a slice; 0 for len < 2.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
