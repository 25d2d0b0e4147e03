package engine

import (
	"errors"
	"log"
	"time"

	"osrs-flipper/internal/config"
)

// DropStats counts why items did not become candidates.
type DropStats struct {
	NotMembers      int `json:"not_members"`
	DataUnavailable int `json:"data_unavailable"`
	InvalidSpread   int `json:"invalid_spread"`
	ZeroQuantity    int `json:"zero_quantity"`
}

func (d *DropStats) add(err error) {
	switch {
	case errors.Is(err, ErrInvalidSpread):
		d.InvalidSpread++
	case errors.Is(err, ErrZeroQuantity):
		d.ZeroQuantity++
	default:
		d.DataUnavailable++
	}
}

// BuildCandidate runs price selection, tax, sizing and metrics for one item.
// The returned error is one of the per-item skip reasons.
func BuildCandidate(item ItemMeta, snap PriceSnapshot, cfg *config.Config, now time.Time) (FlipCandidate, error) {
	if item.BuyLimit <= 0 {
		return FlipCandidate{}, ErrDataUnavailable
	}
	q, err := SelectPrices(snap, cfg.Aggressiveness, now)
	if err != nil {
		return FlipCandidate{}, err
	}
	tax := GETax(q.Sell, cfg.NoTax)
	qty := PositionSize(cfg.Bank, cfg.Slots, item.BuyLimit, q.Buy)
	if qty <= 0 {
		return FlipCandidate{}, ErrZeroQuantity
	}

	c := FlipCandidate{
		ItemID:      item.ID,
		Name:        item.Name,
		PriceSource: q.Source,
	}
	ApplyMetrics(&c, MetricsInput{
		Buy:        q.Buy,
		Sell:       q.Sell,
		Tax:        tax,
		Quantity:   qty,
		BuyLimit:   item.BuyLimit,
		Volume:     VolumeSignal(snap),
		HighAlch:   item.HighAlch,
		HARuneCost: cfg.HARuneCost,
	})
	return c, nil
}

// Candidates builds an unfiltered, unranked candidate for every eligible item.
func Candidates(data *MarketData, cfg *config.Config) ([]FlipCandidate, DropStats) {
	var stats DropStats
	if data == nil {
		return []FlipCandidate{}, stats
	}
	out := make([]FlipCandidate, 0, len(data.Items)/4)
	for _, item := range data.Items {
		if cfg.MembersOnly && !item.Members {
			stats.NotMembers++
			continue
		}
		snap, ok := data.Prices[item.ID]
		if !ok {
			stats.DataUnavailable++
			continue
		}
		c, err := BuildCandidate(item, snap, cfg, data.FetchedAt)
		if err != nil {
			stats.add(err)
			continue
		}
		out = append(out, c)
	}
	return out, stats
}

// Evaluate is the whole pipeline: candidates → filters → ranking, truncated
// to cfg.ResultCount. It reads only its arguments and never fails; an empty
// slice is a valid result.
func Evaluate(data *MarketData, cfg *config.Config) []FlipCandidate {
	out, _ := evaluate(data, cfg)
	return out
}

func evaluate(data *MarketData, cfg *config.Config) ([]FlipCandidate, DropStats) {
	cands, stats := Candidates(data, cfg)
	survivors := ApplyFilters(cands, BuildFilters(cfg))
	log.Printf("[DEBUG] Evaluate: %d candidates, %d survive filters, drops=%+v", len(cands), len(survivors), stats)
	return Rank(survivors, cfg.ResultCount), stats
}
