package engine

import (
	"math"
	"sort"
)

// LiquidityWeight grows slowly with volume so a liquid item outranks an
// illiquid one of similar profit without volume dominating the score.
func LiquidityWeight(volume int64) float64 {
	if volume < 0 {
		volume = 0
	}
	return 1 + math.Log1p(float64(volume))/10
}

// Score is the ranking key: estimated profit weighted by liquidity.
func Score(c *FlipCandidate) float64 {
	return float64(c.EstProfit) * LiquidityWeight(c.Volume)
}

// Rank scores a copy of cands, orders it by score (ties: higher ROI, then
// lower ETA, then lower item id) and keeps the first n. n <= 0 keeps all.
func Rank(cands []FlipCandidate, n int) []FlipCandidate {
	out := make([]FlipCandidate, len(cands))
	copy(out, cands)
	for i := range out {
		out[i].Score = Score(&out[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ROIPercent != b.ROIPercent {
			return a.ROIPercent > b.ROIPercent
		}
		if a.ETAHours != b.ETAHours {
			// +Inf compares greater than any finite ETA.
			return a.ETAHours < b.ETAHours
		}
		return a.ItemID < b.ItemID
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
