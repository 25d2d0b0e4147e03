package db

import (
	"database/sql"
	"log"
	"math"

	"osrs-flipper/internal/engine"
)

// insertFlipResults stores ranked candidates under scanID inside tx. Rank is
// the 1-based position in cands. Infinite ETA and missing participation are
// stored as NULL.
func insertFlipResults(tx *sql.Tx, scanID int64, cands []engine.FlipCandidate) error {
	if scanID == 0 || len(cands) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO flip_results (
		scan_id, rank, item_id, name, price_src, buy_limit,
		buy_price, sell_price, tax, quantity, gp_needed,
		profit_unit, est_profit, roi_pct, volume,
		cycles, daily_est, daily_cap, eta_hours, profit_hour, participation,
		ha_value, ha_floor, ha_net, ha_safe, score
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range cands {
		eta := sql.NullFloat64{Float64: float64(c.ETAHours), Valid: !c.ETAHours.Infinite()}
		var part sql.NullFloat64
		if c.ParticipationPct != nil {
			part = sql.NullFloat64{Float64: *c.ParticipationPct, Valid: true}
		}
		if _, err := stmt.Exec(
			scanID, i+1, c.ItemID, c.Name, string(c.PriceSource), c.BuyLimit,
			c.BuyPrice, c.SellPrice, c.Tax, c.Quantity, c.GPNeeded,
			c.ProfitPerUnit, c.EstProfit, c.ROIPercent, c.Volume,
			c.CyclesPerDay, c.DailyEst, c.DailyCap, eta, c.ProfitPerHour, part,
			c.HAValue, c.HAFloor, c.HANet, c.HASafe, c.Score,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetFlipResults retrieves the stored candidates of a scan in rank order.
func (d *DB) GetFlipResults(scanID int64) []engine.FlipCandidate {
	rows, err := d.sql.Query(`
		SELECT item_id, name, price_src, buy_limit,
			buy_price, sell_price, tax, quantity, gp_needed,
			profit_unit, est_profit, roi_pct, volume,
			cycles, daily_est, daily_cap, eta_hours, profit_hour, participation,
			ha_value, ha_floor, ha_net, ha_safe, score
		FROM flip_results WHERE scan_id = ? ORDER BY rank
	`, scanID)
	if err != nil {
		log.Printf("[DB] GetFlipResults query: %v", err)
		return []engine.FlipCandidate{}
	}
	defer rows.Close()

	results := []engine.FlipCandidate{}
	for rows.Next() {
		var c engine.FlipCandidate
		var src string
		var eta, part sql.NullFloat64
		if err := rows.Scan(
			&c.ItemID, &c.Name, &src, &c.BuyLimit,
			&c.BuyPrice, &c.SellPrice, &c.Tax, &c.Quantity, &c.GPNeeded,
			&c.ProfitPerUnit, &c.EstProfit, &c.ROIPercent, &c.Volume,
			&c.CyclesPerDay, &c.DailyEst, &c.DailyCap, &eta, &c.ProfitPerHour, &part,
			&c.HAValue, &c.HAFloor, &c.HANet, &c.HASafe, &c.Score,
		); err != nil {
			log.Printf("[DB] GetFlipResults scan: %v", err)
			continue
		}
		c.PriceSource = engine.PriceSource(src)
		c.ETAHours = engine.Hours(math.Inf(1))
		if eta.Valid {
			c.ETAHours = engine.Hours(eta.Float64)
		}
		if part.Valid {
			p := part.Float64
			c.ParticipationPct = &p
		}
		results = append(results, c)
	}
	return results
}
