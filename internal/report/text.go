package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"osrs-flipper/internal/config"
	"osrs-flipper/internal/engine"
)

// gp formats a gp amount with thousands separators.
func gp(v int64) string { return humanize.Comma(v) }

// ETA renders hours to clear; an infinite ETA is "∞".
func ETA(h engine.Hours) string {
	if h.Infinite() {
		return "∞"
	}
	return fmt.Sprintf("%.1fh", float64(h))
}

// Participation renders the share of daily volume; nil is "∞".
func Participation(p *float64) string {
	if p == nil {
		return "∞"
	}
	return fmt.Sprintf("%.2f%%", *p)
}

// Header is the one-line summary printed above the list.
func Header(n int, cfg *config.Config) string {
	scope := "P2P"
	if !cfg.MembersOnly {
		scope = "all items"
	}
	return fmt.Sprintf("Top %d flips (%s) | price window: 5m avg -> 24h avg -> latest fallback | bank=%s gp",
		n, scope, gp(cfg.Bank))
}

// WriteText prints the ranked candidates as a three-line block each.
func WriteText(w io.Writer, cands []engine.FlipCandidate, cfg *config.Config) error {
	if _, err := fmt.Fprintf(w, "\n%s\n\n", Header(len(cands), cfg)); err != nil {
		return err
	}
	for i := range cands {
		if err := writeCandidate(w, &cands[i]); err != nil {
			return err
		}
	}
	if len(cands) == 0 {
		_, err := fmt.Fprintln(w, "No candidates passed your filters. Try lowering -min-vol or increasing -bank.")
		return err
	}
	return nil
}

func writeCandidate(w io.Writer, c *engine.FlipCandidate) error {
	ha := ""
	if c.HAValue > 0 {
		safe := "no"
		if c.HASafe {
			safe = "YES"
		}
		ha = fmt.Sprintf(" | HA floor %s (HA net %s @ buy) | HA safe %s", gp(c.HAFloor), gp(c.HANet), safe)
	}
	_, err := fmt.Fprintf(w,
		"- %s (ID %d)\n"+
			"  Buy @ %s | Sell @ %s | Tax %s | Profit/unit %s\n"+
			"  Qty %s (limit %s/4h) | GP needed %s | Est profit %s | ROI %.2f%% | Source %s%s\n"+
			"  Vol %s | Cycles/day %.1f | Daily est %s | Daily cap %s | ETA %s | Participation %s | Profit/hr %s\n\n",
		c.Name, c.ItemID,
		gp(c.BuyPrice), gp(c.SellPrice), gp(c.Tax), gp(c.ProfitPerUnit),
		gp(c.Quantity), gp(c.BuyLimit), gp(c.GPNeeded), gp(c.EstProfit), c.ROIPercent, c.PriceSource, ha,
		gp(c.Volume), c.CyclesPerDay, gp(int64(c.DailyEst)), gp(int64(c.DailyCap)),
		ETA(c.ETAHours), Participation(c.ParticipationPct), humanize.CommafWithDigits(c.ProfitPerHour, 2),
	)
	return err
}
