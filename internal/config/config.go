package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultUserAgent identifies the tool to the wiki prices API, which asks every
// client to send a descriptive User-Agent.
const DefaultUserAgent = "osrs-flipper/1.0 - set FLIPPER_UA to your discord or email"

// Config holds every recognised option for an evaluation pass plus the
// auto-refresh settings. Persistence is handled by internal/db package.
type Config struct {
	Bank           int64   `json:"bank"`            // gp allocated to flipping
	Slots          int     `json:"slots"`           // concurrent GE slots the bank is split across
	ResultCount    int     `json:"result_count"`    // N
	MinVolume24h   int64   `json:"min_volume_24h"`  // enforced only when a volume signal exists
	MinProfitUnit  int64   `json:"min_profit_unit"` // gp after tax
	Aggressiveness float64 `json:"aggressiveness"`  // 0 = sit on low/high, 1 = meet in the middle
	HARuneCost     int64   `json:"ha_rune_cost"`    // nature rune price for the high-alch floor
	RequireHAFloor bool    `json:"require_ha_floor"`
	NoTax          bool    `json:"no_tax"`
	MembersOnly    bool    `json:"members_only"`
	UserAgent      string  `json:"user_agent"` // passed to the fetch layer only

	Filters Filters `json:"filters"`

	AutoRefresh    bool `json:"auto_refresh"`
	RefreshSeconds int  `json:"refresh_seconds"`
}

// Filters are the soft filters. A nil pointer means the filter is unset.
type Filters struct {
	MinROIPercent   *float64 `json:"min_roi_pct"`
	MinProfitHour   *float64 `json:"min_profit_per_hour"`
	MaxETAHours     *float64 `json:"max_eta_hours"`
	MinHANet        *int64   `json:"min_ha_net"`
	MinCyclesPerDay *float64 `json:"min_cycles_per_day"`
	HideInfiniteETA bool     `json:"hide_infinite_eta"`
	NameQuery       string   `json:"name_query"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Bank:           10_000_000,
		Slots:          5,
		ResultCount:    25,
		MinVolume24h:   20_000,
		MinProfitUnit:  5,
		Aggressiveness: 0.15,
		HARuneCost:     180,
		MembersOnly:    true,
		UserAgent:      DefaultUserAgent,
		RefreshSeconds: 30,
	}
}

// Clone returns a deep copy, soft filter pointers included.
func (c *Config) Clone() *Config {
	out := *c
	out.Filters.MinROIPercent = cloneFloat(c.Filters.MinROIPercent)
	out.Filters.MinProfitHour = cloneFloat(c.Filters.MinProfitHour)
	out.Filters.MaxETAHours = cloneFloat(c.Filters.MaxETAHours)
	out.Filters.MinCyclesPerDay = cloneFloat(c.Filters.MinCyclesPerDay)
	if c.Filters.MinHANet != nil {
		v := *c.Filters.MinHANet
		out.Filters.MinHANet = &v
	}
	return &out
}

// RefreshInterval returns the auto-refresh period, never shorter than 5s.
func (c *Config) RefreshInterval() time.Duration {
	sec := c.RefreshSeconds
	if sec < 5 {
		sec = 5
	}
	return time.Duration(sec) * time.Second
}

// Validate checks every field once at the boundary. The engine assumes a
// validated Config.
func (c *Config) Validate() error {
	var errs []error
	if c.Bank <= 0 {
		errs = append(errs, fmt.Errorf("bank must be positive, got %d", c.Bank))
	}
	if c.Slots < 1 {
		errs = append(errs, fmt.Errorf("slots must be >= 1, got %d", c.Slots))
	}
	if c.ResultCount < 1 {
		errs = append(errs, fmt.Errorf("result_count must be >= 1, got %d", c.ResultCount))
	}
	if c.MinVolume24h < 0 {
		errs = append(errs, fmt.Errorf("min_volume_24h must be >= 0, got %d", c.MinVolume24h))
	}
	if c.MinProfitUnit < 0 {
		errs = append(errs, fmt.Errorf("min_profit_unit must be >= 0, got %d", c.MinProfitUnit))
	}
	if c.Aggressiveness < 0 || c.Aggressiveness > 1 {
		errs = append(errs, fmt.Errorf("aggressiveness must be in [0,1], got %g", c.Aggressiveness))
	}
	if c.HARuneCost < 0 {
		errs = append(errs, fmt.Errorf("ha_rune_cost must be >= 0, got %d", c.HARuneCost))
	}
	if c.RefreshSeconds < 0 {
		errs = append(errs, fmt.Errorf("refresh_seconds must be >= 0, got %d", c.RefreshSeconds))
	}
	if v := c.Filters.MaxETAHours; v != nil && *v < 0 {
		errs = append(errs, fmt.Errorf("max_eta_hours must be >= 0, got %g", *v))
	}
	if v := c.Filters.MinCyclesPerDay; v != nil && *v < 0 {
		errs = append(errs, fmt.Errorf("min_cycles_per_day must be >= 0, got %g", *v))
	}
	return errors.Join(errs...)
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v, for setting soft filters.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for setting soft filters.
func Int(v int64) *int64 { return &v }
