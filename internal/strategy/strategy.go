// Package strategy ranks a universe of instruments by a multi-factor score
// and proposes entry/stop/take-profit levels for the survivors.
package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/torisan/KabutoGo/config"
	"github.com/torisan/KabutoGo/internal/indicators"
	"github.com/torisan/KabutoGo/internal/models"
	"github.com/torisan/KabutoGo/internal/priceaction"
	"github.com/torisan/KabutoGo/internal/universe"
)

// relaxedLiquidityFloor is the avg-value-traded threshold used by the
// fallback pass when the strict filters leave fewer than top-N survivors.
const relaxedLiquidityFloor = 20_000_000

// filters are the per-pass filter settings; the relaxed pass lowers the
// liquidity bar and drops the EMA-above requirements.
type filters struct {
	minValueTraded float64
	minPrice       float64
	aboveEMA50     bool
	aboveEMA200    bool
}

// ScoreLatest computes the base factor score for a feature set and the
// human-readable reasons attached to the pick.
func ScoreLatest(f indicators.FeatureSet, cfg *config.Config) (float64, []string) {
	mom63 := indicators.OrZero(f.Mom63)
	mom126 := indicators.OrZero(f.Mom126)
	vol := indicators.OrZero(f.Vol20)
	trend := 0.0
	if f.Close > f.EMA50 {
		trend = 1.0
	}

	score := cfg.WeightMomentum63*mom63 +
		cfg.WeightMomentum126*mom126 +
		cfg.WeightTrendEMA*trend -
		cfg.WeightVolPenalty*vol

	var reasons []string
	if mom63 > 0 {
		reasons = append(reasons, fmt.Sprintf("63D momentum +%.1f%%", mom63*100))
	}
	if mom126 > 0 {
		reasons = append(reasons, fmt.Sprintf("126D momentum +%.1f%%", mom126*100))
	}
	if trend > 0 {
		reasons = append(reasons, "Close above EMA50")
	} else {
		reasons = append(reasons, "Close below EMA50")
	}
	reasons = append(reasons, fmt.Sprintf("20D vol %.2f%%", vol*100))

	return score, reasons
}

// ProposeLevels derives suggested entry, stop and take-profit prices from a
// feature set. Missing ATR is treated as 0; a missing 20-day high falls back
// to the close.
func ProposeLevels(f indicators.FeatureSet, cfg *config.Config) (entry, stop, takeProfit float64) {
	close := f.Close
	atr14 := indicators.OrZero(f.ATR14)

	if cfg.EntryKind == "breakout" {
		base := f.Hi20
		if math.IsNaN(base) {
			base = close
		}
		entry = base + cfg.EntryBufferATR*atr14
	} else {
		entry = close
	}

	if cfg.StopKind == "atr" {
		stop = math.Max(1.0, entry-cfg.StopATRMult*atr14)
	} else {
		stop = close * 0.92
	}

	if cfg.TakeProfitKind == "rr" {
		takeProfit = entry + cfg.TakeProfitRR*(entry-stop)
	} else {
		takeProfit = entry * 1.10
	}

	return entry, stop, takeProfit
}

// Rank screens the universe and returns the top-N picks ordered by blended
// score. If the strict filters leave fewer than top-N names, a relaxed pass
// runs with the liquidity threshold lowered and the EMA filters disabled,
// and results merge in first-seen order.
func Rank(tickers []universe.Ticker, history map[string][]models.PriceBar, cfg *config.Config) []models.Pick {
	strict := filters{
		minValueTraded: cfg.MinAvgValueTraded,
		minPrice:       cfg.MinPrice,
		aboveEMA50:     cfg.AboveEMA50,
		aboveEMA200:    cfg.AboveEMA200,
	}

	picks := rankPass(tickers, history, cfg, strict)
	if len(picks) >= cfg.TopN {
		return picks
	}

	relaxed := filters{
		minValueTraded: math.Min(cfg.MinAvgValueTraded, relaxedLiquidityFloor),
		minPrice:       cfg.MinPrice,
	}
	more := rankPass(tickers, history, cfg, relaxed)

	seen := make(map[string]bool)
	var merged []models.Pick
	for _, p := range append(picks, more...) {
		if seen[p.Code] {
			continue
		}
		seen[p.Code] = true
		merged = append(merged, p)
		if len(merged) >= cfg.TopN {
			break
		}
	}
	return merged
}

func rankPass(tickers []universe.Ticker, history map[string][]models.PriceBar, cfg *config.Config, filt filters) []models.Pick {
	var picks []models.Pick

	for _, t := range tickers {
		bars := history[t.Code]
		if len(bars) < indicators.MinHistoryBars {
			continue
		}
		f := indicators.Compute(bars)

		if indicators.OrZero(f.AvgValueTraded20) < filt.minValueTraded {
			continue
		}
		if f.Close < filt.minPrice {
			continue
		}
		if filt.aboveEMA50 && f.Close <= f.EMA50 {
			continue
		}
		if filt.aboveEMA200 && f.Close <= f.EMA200 {
			continue
		}

		baseScore, reasons := ScoreLatest(f, cfg)
		paScore, paTags := priceaction.Score(bars)
		finalScore := (1-cfg.PriceActionWeight)*baseScore + cfg.PriceActionWeight*paScore
		entry, stop, tp := ProposeLevels(f, cfg)

		picks = append(picks, models.Pick{
			Code:             t.Code,
			Name:             t.Name,
			Score:            finalScore,
			Close:            f.Close,
			Entry:            entry,
			Stop:             stop,
			TakeProfit:       tp,
			Reasons:          reasons,
			BaseScore:        baseScore,
			PriceActionScore: paScore,
			PriceActionTags:  paTags,
		})
	}

	// Stable sort keeps universe order for equal scores, which makes
	// repeated runs on the same inputs return identical orderings.
	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].Score > picks[j].Score
	})
	if len(picks) > cfg.TopN {
		picks = picks[:cfg.TopN]
	}
	return picks
}

// BlendExternalScores re-blends pick scores with per-candidate external
// scores (0..1), then re-sorts and re-truncates to top-N. Picks without an
// external score keep their blended-in score untouched.
func BlendExternalScores(picks []models.Pick, weight float64, topN int) []models.Pick {
	if weight <= 0 {
		return picks
	}
	for i := range picks {
		if picks[i].AIScore > 0 {
			picks[i].Score = (1-weight)*picks[i].Score + weight*picks[i].AIScore
		}
	}
	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].Score > picks[j].Score
	})
	if len(picks) > topN {
		picks = picks[:topN]
	}
	return picks
}
