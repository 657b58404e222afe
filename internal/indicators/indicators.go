package indicators

import (
	"math"

	"github.com/torisan/KabutoGo/internal/models"
)

// MinHistoryBars is the minimum series length required before an instrument
// is eligible for ranking. Shorter series are skipped, not errored.
const MinHistoryBars = 210

// FeatureSet holds the derived values for the latest bar of a series.
// Fields backed by an incomplete rolling window are NaN; callers fall back
// to 0 when scoring.
type FeatureSet struct {
	Open  float64
	High  float64
	Low   float64
	Close float64

	EMA50  float64
	EMA200 float64
	Mom63  float64
	Mom126 float64
	ATR14  float64
	Vol20  float64

	AvgValueTraded20 float64
	Hi20             float64
	Lo20             float64
}

// EMA calculates the exponential moving average with smoothing 2/(span+1),
// seeded with the first value (no bias adjustment).
func EMA(values []float64, span int) []float64 {
	result := make([]float64, len(values))
	if len(values) == 0 {
		return result
	}

	multiplier := 2.0 / (float64(span) + 1.0)
	ema := values[0]
	result[0] = ema
	for i := 1; i < len(values); i++ {
		ema = values[i]*multiplier + ema*(1-multiplier)
		result[i] = ema
	}
	return result
}

// PctChangeN calculates close[i]/close[i-n] - 1, NaN where history is short.
func PctChangeN(values []float64, n int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		if i < n || values[i-n] == 0 {
			result[i] = math.NaN()
			continue
		}
		result[i] = values[i]/values[i-n] - 1
	}
	return result
}

// ATR calculates the Average True Range as a rolling mean of True Range over
// period bars. True Range needs a previous close, so result[0] is always NaN
// and a full window of true ranges is required before a value appears.
func ATR(bars []models.PriceBar, period int) []float64 {
	result := make([]float64, len(bars))
	for i := range result {
		result[i] = math.NaN()
	}
	if len(bars) < period+1 {
		return result
	}

	trueRanges := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		tr1 := bars[i].High - bars[i].Low
		tr2 := math.Abs(bars[i].High - bars[i-1].Close)
		tr3 := math.Abs(bars[i].Low - bars[i-1].Close)
		trueRanges[i-1] = math.Max(tr1, math.Max(tr2, tr3))
	}

	for i := period - 1; i < len(trueRanges); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += trueRanges[j]
		}
		result[i+1] = sum / float64(period)
	}
	return result
}

// RollingMean calculates a rolling mean over n values, NaN until the window
// is complete.
func RollingMean(values []float64, n int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		if i < n-1 {
			result[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - n + 1; j <= i; j++ {
			sum += values[j]
		}
		result[i] = sum / float64(n)
	}
	return result
}

// RollingStd calculates a rolling sample standard deviation over n values.
// NaN inputs inside the window (e.g. the first daily return) keep the window
// incomplete.
func RollingStd(values []float64, n int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		if i < n-1 {
			result[i] = math.NaN()
			continue
		}
		sum := 0.0
		bad := false
		for j := i - n + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				bad = true
				break
			}
			sum += values[j]
		}
		if bad {
			result[i] = math.NaN()
			continue
		}
		mean := sum / float64(n)
		variance := 0.0
		for j := i - n + 1; j <= i; j++ {
			diff := values[j] - mean
			variance += diff * diff
		}
		result[i] = math.Sqrt(variance / float64(n-1))
	}
	return result
}

// RollingMax calculates a rolling maximum over n values, NaN until complete.
func RollingMax(values []float64, n int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		if i < n-1 {
			result[i] = math.NaN()
			continue
		}
		max := values[i-n+1]
		for j := i - n + 2; j <= i; j++ {
			if values[j] > max {
				max = values[j]
			}
		}
		result[i] = max
	}
	return result
}

// RollingMin calculates a rolling minimum over n values, NaN until complete.
func RollingMin(values []float64, n int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		if i < n-1 {
			result[i] = math.NaN()
			continue
		}
		min := values[i-n+1]
		for j := i - n + 2; j <= i; j++ {
			if values[j] < min {
				min = values[j]
			}
		}
		result[i] = min
	}
	return result
}

// Compute derives the feature set for the latest bar of a series. It does
// not enforce MinHistoryBars; the ranking layer decides eligibility.
func Compute(bars []models.PriceBar) FeatureSet {
	var f FeatureSet
	if len(bars) == 0 {
		return f
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	valueTraded := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		valueTraded[i] = b.Close * float64(b.Volume)
	}

	last := len(bars) - 1
	f.Open = bars[last].Open
	f.High = bars[last].High
	f.Low = bars[last].Low
	f.Close = bars[last].Close

	f.EMA50 = EMA(closes, 50)[last]
	f.EMA200 = EMA(closes, 200)[last]
	f.Mom63 = PctChangeN(closes, 63)[last]
	f.Mom126 = PctChangeN(closes, 126)[last]
	f.ATR14 = ATR(bars, 14)[last]
	f.Vol20 = RollingStd(PctChangeN(closes, 1), 20)[last]
	f.AvgValueTraded20 = RollingMean(valueTraded, 20)[last]
	f.Hi20 = RollingMax(highs, 20)[last]
	f.Lo20 = RollingMin(lows, 20)[last]

	return f
}

// OrZero maps NaN feature values to 0 for scoring.
func OrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
