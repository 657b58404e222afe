// Package priceaction computes a rules-based proxy for contextual price
// action quality on daily bars. The real framework is discretionary; this is
// a computable approximation combining trend context, breakout pressure, bar
// strength and volatility contraction into a 0..1 score with short tags.
package priceaction

import (
	"math"

	"github.com/torisan/KabutoGo/internal/indicators"
	"github.com/torisan/KabutoGo/internal/models"
)

// MinBars is the minimum series length; shorter series score 0.
const MinBars = 80

const maxTags = 6

// Score returns the price-action quality score (0..1) and descriptive tags
// for the latest bar of a series. Tag insertion order is fixed.
func Score(bars []models.PriceBar) (float64, []string) {
	if len(bars) < MinBars {
		return 0.0, []string{"insufficient data"}
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	last := len(bars) - 1
	close := bars[last].Close
	open := bars[last].Open

	ema20 := indicators.EMA(closes, 20)
	ema50 := indicators.EMA(closes, 50)
	atr14 := indicators.ATR(bars, 14)[last]
	hi20 := indicators.RollingMax(highs, 20)[last]
	lo20 := indicators.RollingMin(lows, 20)[last]

	var tags []string

	// Trend context
	above20 := 0.0
	if close > ema20[last] {
		above20 = 1.0
	}
	above50 := 0.0
	if close > ema50[last] {
		above50 = 1.0
	}
	trend := 0.5*above20 + 0.5*above50
	switch {
	case trend >= 0.75:
		tags = append(tags, "uptrend context")
	case trend <= 0.25:
		tags = append(tags, "downtrend context")
	default:
		tags = append(tags, "range or transition")
	}

	s20 := slope(ema20, 20)
	s50 := slope(ema50, 30)
	if s20 > 0 && s50 > 0 {
		tags = append(tags, "EMAs both rising")
	}
	if s20 < 0 && s50 < 0 {
		tags = append(tags, "EMAs both falling")
	}

	// Breakout pressure: position of close within the 20-day range
	if math.IsNaN(hi20) {
		hi20 = close
	}
	if math.IsNaN(lo20) {
		lo20 = close
	}
	rng := math.Max(1e-9, hi20-lo20)
	pos := (close - lo20) / rng
	breakoutPressure := clamp((pos-0.5)*2, -1, 1)
	if pos > 0.85 {
		tags = append(tags, "near 20-day high")
	} else if pos < 0.15 {
		tags = append(tags, "near 20-day low")
	}

	// Bar strength: body vs ATR
	body := math.Abs(close - open)
	bodyATR := 0.0
	if !math.IsNaN(atr14) && atr14 > 1e-9 {
		bodyATR = body / atr14
	}
	strength := clamp(bodyATR/1.2, 0, 1)
	if strength > 0.7 {
		tags = append(tags, "strong-bodied bar")
	}

	// Volatility contraction: low vol scores higher
	vol20 := indicators.OrZero(indicators.RollingStd(indicators.PctChangeN(closes, 1), 20)[last])
	contraction := clamp((0.03-vol20)/0.03, 0, 1)
	if contraction > 0.6 {
		tags = append(tags, "volatility contraction")
	}

	score := 0.35*trend +
		0.25*(0.5+0.5*breakoutPressure) +
		0.25*strength +
		0.15*contraction
	score = clamp(score, 0, 1)

	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return score, tags
}

// slope fits a least-squares line through the last window points against a
// zero-mean index. Returns 0 for short series or zero x-variance.
func slope(values []float64, window int) float64 {
	if len(values) < window+1 {
		return 0.0
	}
	y := values[len(values)-window:]

	xMean := float64(window-1) / 2
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(window)

	num := 0.0
	den := 0.0
	for i, v := range y {
		x := float64(i) - xMean
		num += x * (v - yMean)
		den += x * x
	}
	if den == 0 {
		return 0.0
	}
	return num / den
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
