package db

import (
	"encoding/json"
	"fmt"
	"time"

	"osrs-flipper/internal/config"
	"osrs-flipper/internal/engine"
)

// ScanRecord represents a scan history entry.
type ScanRecord struct {
	ID          int64           `json:"id"`
	RunID       string          `json:"run_id"`
	Timestamp   string          `json:"timestamp"`
	ItemCount   int             `json:"item_count"`
	Count       int             `json:"count"`
	TopProfit   int64           `json:"top_profit"`
	TotalProfit int64           `json:"total_profit"`
	DurationMs  int64           `json:"duration_ms"`
	Params      json.RawMessage `json:"params"`
	Drops       json.RawMessage `json:"drops"`
}

// RecordScan stores a published pass and its ranked candidates in one
// transaction and returns the history id.
func (d *DB) RecordScan(res *engine.ScanResult, cfg *config.Config) (int64, error) {
	paramsJSON, _ := json.Marshal(cfg)
	dropsJSON, _ := json.Marshal(res.Drops)

	var top, total int64
	for i, c := range res.Candidates {
		if i == 0 || c.EstProfit > top {
			top = c.EstProfit
		}
		total += c.EstProfit
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, err
	}
	result, err := tx.Exec(
		`INSERT INTO scan_history (run_id, timestamp, item_count, count, top_profit, total_profit, duration_ms, params_json, drops_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, time.Now().UTC().Format(time.RFC3339), res.ItemCount, len(res.Candidates),
		top, total, res.DurationMs, string(paramsJSON), string(dropsJSON),
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("insert scan %s: %w", res.RunID, err)
	}
	id, _ := result.LastInsertId()

	if err := insertFlipResults(tx, id, res.Candidates); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("insert results for scan %s: %w", res.RunID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const historyColumns = `id, run_id, timestamp, item_count, count, top_profit,
	COALESCE(total_profit, 0), COALESCE(duration_ms, 0),
	COALESCE(params_json, '{}'), COALESCE(drops_json, '{}')`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ScanRecord, error) {
	var r ScanRecord
	var params, drops string
	err := row.Scan(&r.ID, &r.RunID, &r.Timestamp, &r.ItemCount, &r.Count, &r.TopProfit,
		&r.TotalProfit, &r.DurationMs, &params, &drops)
	r.Params = json.RawMessage(params)
	r.Drops = json.RawMessage(drops)
	return r, err
}

// GetHistory returns the last N scan history records (newest first).
func (d *DB) GetHistory(limit int) []ScanRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query("SELECT "+historyColumns+" FROM scan_history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return []ScanRecord{}
	}
	defer rows.Close()

	records := []ScanRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	return records
}

// GetHistoryByID returns a single scan history record, or nil.
func (d *DB) GetHistoryByID(id int64) *ScanRecord {
	r, err := scanRecord(d.sql.QueryRow("SELECT "+historyColumns+" FROM scan_history WHERE id = ?", id))
	if err != nil {
		return nil
	}
	return &r
}

// DeleteHistory deletes a scan history record and its results. It reports
// whether the record existed.
func (d *DB) DeleteHistory(id int64) (bool, error) {
	tx, err := d.sql.Begin()
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec("DELETE FROM flip_results WHERE scan_id = ?", id); err != nil {
		tx.Rollback()
		return false, err
	}
	result, err := tx.Exec("DELETE FROM scan_history WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, tx.Commit()
}

// ClearHistory deletes all scan history records older than the given number
// of days and returns how many were removed.
func (d *DB) ClearHistory(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(
		"DELETE FROM flip_results WHERE scan_id IN (SELECT id FROM scan_history WHERE timestamp < ?)", cutoff,
	); err != nil {
		tx.Rollback()
		return 0, err
	}
	result, err := tx.Exec("DELETE FROM scan_history WHERE timestamp < ?", cutoff)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	count, _ := result.RowsAffected()
	return count, nil
}
