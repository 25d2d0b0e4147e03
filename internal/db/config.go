package db

import (
	"strconv"

	"osrs-flipper/internal/config"
)

// LoadConfig reads config from SQLite. Missing keys keep their defaults.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	rows, err := d.sql.Query("SELECT key, value FROM config")
	if err != nil {
		return cfg
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		m[k] = v
	}
	if len(m) == 0 {
		return cfg
	}

	if v, ok := m["bank"]; ok {
		cfg.Bank, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := m["slots"]; ok {
		cfg.Slots, _ = strconv.Atoi(v)
	}
	if v, ok := m["result_count"]; ok {
		cfg.ResultCount, _ = strconv.Atoi(v)
	}
	if v, ok := m["min_volume_24h"]; ok {
		cfg.MinVolume24h, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := m["min_profit_unit"]; ok {
		cfg.MinProfitUnit, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := m["aggressiveness"]; ok {
		cfg.Aggressiveness, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["ha_rune_cost"]; ok {
		cfg.HARuneCost, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := m["require_ha_floor"]; ok {
		cfg.RequireHAFloor, _ = strconv.ParseBool(v)
	}
	if v, ok := m["no_tax"]; ok {
		cfg.NoTax, _ = strconv.ParseBool(v)
	}
	if v, ok := m["members_only"]; ok {
		cfg.MembersOnly, _ = strconv.ParseBool(v)
	}
	if v, ok := m["user_agent"]; ok && v != "" {
		cfg.UserAgent = v
	}
	if v, ok := m["auto_refresh"]; ok {
		cfg.AutoRefresh, _ = strconv.ParseBool(v)
	}
	if v, ok := m["refresh_seconds"]; ok {
		cfg.RefreshSeconds, _ = strconv.Atoi(v)
	}

	f := &cfg.Filters
	f.MinROIPercent = parseOptFloat(m["min_roi_pct"])
	f.MinProfitHour = parseOptFloat(m["min_profit_per_hour"])
	f.MaxETAHours = parseOptFloat(m["max_eta_hours"])
	f.MinCyclesPerDay = parseOptFloat(m["min_cycles_per_day"])
	f.MinHANet = parseOptInt(m["min_ha_net"])
	if v, ok := m["hide_infinite_eta"]; ok {
		f.HideInfiniteETA, _ = strconv.ParseBool(v)
	}
	f.NameQuery = m["name_query"]

	return cfg
}

// SaveConfig writes every config key in one transaction. Unset soft filters
// are stored as empty strings.
func (d *DB) SaveConfig(cfg *config.Config) error {
	f := cfg.Filters
	pairs := map[string]string{
		"bank":                strconv.FormatInt(cfg.Bank, 10),
		"slots":               strconv.Itoa(cfg.Slots),
		"result_count":        strconv.Itoa(cfg.ResultCount),
		"min_volume_24h":      strconv.FormatInt(cfg.MinVolume24h, 10),
		"min_profit_unit":     strconv.FormatInt(cfg.MinProfitUnit, 10),
		"aggressiveness":      strconv.FormatFloat(cfg.Aggressiveness, 'f', -1, 64),
		"ha_rune_cost":        strconv.FormatInt(cfg.HARuneCost, 10),
		"require_ha_floor":    strconv.FormatBool(cfg.RequireHAFloor),
		"no_tax":              strconv.FormatBool(cfg.NoTax),
		"members_only":        strconv.FormatBool(cfg.MembersOnly),
		"user_agent":          cfg.UserAgent,
		"auto_refresh":        strconv.FormatBool(cfg.AutoRefresh),
		"refresh_seconds":     strconv.Itoa(cfg.RefreshSeconds),
		"min_roi_pct":         formatOptFloat(f.MinROIPercent),
		"min_profit_per_hour": formatOptFloat(f.MinProfitHour),
		"max_eta_hours":       formatOptFloat(f.MaxETAHours),
		"min_cycles_per_day":  formatOptFloat(f.MinCyclesPerDay),
		"min_ha_net":          formatOptInt(f.MinHANet),
		"hide_infinite_eta":   strconv.FormatBool(f.HideInfiniteETA),
		"name_query":          f.NameQuery,
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func parseOptFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptInt(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func formatOptFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func formatOptInt(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
