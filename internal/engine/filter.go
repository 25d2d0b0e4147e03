package engine

import (
	"log"
	"strings"

	"osrs-flipper/internal/config"
)

// Predicate is one named inclusion test of the filter pipeline.
type Predicate struct {
	Name string
	Keep func(c *FlipCandidate) bool
}

// BuildFilters returns the active predicates for cfg. Cheap numeric checks
// come first; order never changes which candidates survive.
func BuildFilters(cfg *config.Config) []Predicate {
	var preds []Predicate

	if cfg.MinVolume24h > 0 {
		minVol := cfg.MinVolume24h
		// Only enforced when there is a volume signal at all.
		preds = append(preds, Predicate{"min_volume", func(c *FlipCandidate) bool {
			return c.Volume == 0 || c.Volume >= minVol
		}})
	}

	minProfit := cfg.MinProfitUnit
	preds = append(preds, Predicate{"min_profit_unit", func(c *FlipCandidate) bool {
		return c.ProfitPerUnit >= minProfit
	}})

	if cfg.RequireHAFloor {
		preds = append(preds, Predicate{"ha_floor", func(c *FlipCandidate) bool {
			return c.HASafe
		}})
	}

	f := cfg.Filters
	if f.MinROIPercent != nil {
		v := *f.MinROIPercent
		preds = append(preds, Predicate{"min_roi", func(c *FlipCandidate) bool {
			return c.ROIPercent >= v
		}})
	}
	if f.MinProfitHour != nil {
		v := *f.MinProfitHour
		preds = append(preds, Predicate{"min_profit_hour", func(c *FlipCandidate) bool {
			return c.ProfitPerHour >= v
		}})
	}
	if f.MinCyclesPerDay != nil {
		v := *f.MinCyclesPerDay
		preds = append(preds, Predicate{"min_cycles", func(c *FlipCandidate) bool {
			return c.CyclesPerDay >= v
		}})
	}
	if f.MinHANet != nil {
		v := *f.MinHANet
		preds = append(preds, Predicate{"min_ha_net", func(c *FlipCandidate) bool {
			return c.HANet >= v
		}})
	}
	if f.HideInfiniteETA {
		preds = append(preds, Predicate{"hide_inf_eta", func(c *FlipCandidate) bool {
			return !c.ETAHours.Infinite()
		}})
	}
	if f.MaxETAHours != nil {
		v := *f.MaxETAHours
		preds = append(preds, Predicate{"max_eta", func(c *FlipCandidate) bool {
			return !c.ETAHours.Infinite() && float64(c.ETAHours) <= v
		}})
	}
	if q := strings.ToLower(strings.TrimSpace(f.NameQuery)); q != "" {
		preds = append(preds, Predicate{"name", func(c *FlipCandidate) bool {
			return strings.Contains(strings.ToLower(c.Name), q)
		}})
	}
	return preds
}

// ApplyFilters returns the candidates passing every predicate, in input
// order, in a new slice. The input is not modified.
func ApplyFilters(cands []FlipCandidate, preds []Predicate) []FlipCandidate {
	out := make([]FlipCandidate, 0, len(cands))
	drops := make(map[string]int)

	for i := range cands {
		keep := true
		for _, p := range preds {
			if !p.Keep(&cands[i]) {
				drops[p.Name]++
				keep = false
				break
			}
		}
		if keep {
			out = append(out, cands[i])
		}
	}

	if len(drops) > 0 {
		log.Printf("[DEBUG] FlipFilter drops: %v (kept %d of %d)", drops, len(out), len(cands))
	}
	return out
}
