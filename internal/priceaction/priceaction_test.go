package priceaction

import (
	"testing"

	"github.com/torisan/KabutoGo/internal/models"
)

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func trendBars(n int, start, step float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	px := start
	for i := range bars {
		bars[i] = models.PriceBar{
			Open:   px - step/2,
			High:   px + 1,
			Low:    px - 1,
			Close:  px,
			Volume: 10000,
		}
		px += step
	}
	return bars
}

func TestScoreInsufficientData(t *testing.T) {
	score, tags := Score(trendBars(MinBars-1, 100, 1))
	if score != 0.0 {
		t.Fatalf("score = %v, want 0", score)
	}
	if len(tags) != 1 || tags[0] != "insufficient data" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestScoreUptrendBeatsDowntrend(t *testing.T) {
	up, upTags := Score(trendBars(120, 100, 1))
	down, downTags := Score(trendBars(120, 220, -1))

	if up <= down {
		t.Fatalf("uptrend score %v should exceed downtrend score %v", up, down)
	}
	if !hasTag(upTags, "uptrend context") {
		t.Fatalf("uptrend tags = %v", upTags)
	}
	if !hasTag(upTags, "EMAs both rising") {
		t.Fatalf("uptrend tags = %v", upTags)
	}
	if !hasTag(upTags, "near 20-day high") {
		t.Fatalf("uptrend tags = %v", upTags)
	}
	if !hasTag(downTags, "downtrend context") {
		t.Fatalf("downtrend tags = %v", downTags)
	}
	if !hasTag(downTags, "near 20-day low") {
		t.Fatalf("downtrend tags = %v", downTags)
	}
}

func TestScoreBounds(t *testing.T) {
	for _, bars := range [][]models.PriceBar{
		trendBars(120, 100, 2),
		trendBars(120, 500, -2),
		trendBars(120, 100, 0),
	} {
		score, _ := Score(bars)
		if score < 0 || score > 1 {
			t.Fatalf("score %v out of [0,1]", score)
		}
	}
}

func TestScoreTagCap(t *testing.T) {
	for _, bars := range [][]models.PriceBar{
		trendBars(120, 100, 1),
		trendBars(120, 220, -1),
		trendBars(120, 100, 0),
	} {
		_, tags := Score(bars)
		if len(tags) > 6 {
			t.Fatalf("tags exceed cap: %v", tags)
		}
	}
}

func TestScoreFlatSeriesIsRange(t *testing.T) {
	_, tags := Score(trendBars(120, 100, 0))
	if !hasTag(tags, "range or transition") && !hasTag(tags, "downtrend context") {
		t.Fatalf("flat series tags = %v", tags)
	}
}

func TestSlope(t *testing.T) {
	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = float64(i)
	}
	if s := slope(rising, 20); s <= 0 {
		t.Fatalf("slope of rising series = %v, want > 0", s)
	}
	if s := slope(rising[:10], 20); s != 0 {
		t.Fatalf("short series slope = %v, want 0", s)
	}
	flat := make([]float64, 40)
	if s := slope(flat, 20); s != 0 {
		t.Fatalf("flat slope = %v, want 0", s)
	}
}
