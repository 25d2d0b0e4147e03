package engine

import (
	"encoding/json"
	"math"
	"time"
)

// ItemMeta is the static catalog entry for a tradeable item.
type ItemMeta struct {
	ID       int32  `json:"id"`
	Name     string `json:"name"`
	Members  bool   `json:"members"`
	BuyLimit int64  `json:"limit"` // per 4 hours
	HighAlch int64  `json:"highalch"`
}

// PriceWindow is an averaged price window (5m or 24h). Volumes are per side:
// HighVolume traded at the high (instant-buy) price, LowVolume at the low.
type PriceWindow struct {
	High       int64 `json:"avg_high"`
	Low        int64 `json:"avg_low"`
	HighVolume int64 `json:"high_volume"`
	LowVolume  int64 `json:"low_volume"`
}

// LatestPrice is the most recent instant-buy (High) and instant-sell (Low)
// trade with the time each happened.
type LatestPrice struct {
	High     int64     `json:"high"`
	Low      int64     `json:"low"`
	HighTime time.Time `json:"high_time"`
	LowTime  time.Time `json:"low_time"`
}

// PriceSnapshot gathers every price signal for one item. Nil windows are missing.
type PriceSnapshot struct {
	Latest      *LatestPrice `json:"latest,omitempty"`
	FiveMin     *PriceWindow `json:"five_min,omitempty"`
	Daily       *PriceWindow `json:"daily,omitempty"`
	DailyVolume int64        `json:"daily_volume"` // /volumes total, last-resort volume signal
}

// MarketData is the immutable input of one evaluation pass.
type MarketData struct {
	Items     []ItemMeta
	Prices    map[int32]PriceSnapshot
	FetchedAt time.Time
}

// PriceSource tags which window the buy/sell prices came from.
type PriceSource string

const (
	SourceFiveMin PriceSource = "5m"
	SourceDaily   PriceSource = "24h"
	SourceLatest  PriceSource = "latest"
)

// Hours is a duration in hours that may be +Inf. Infinite values encode as JSON null.
type Hours float64

// Infinite reports whether h is +Inf.
func (h Hours) Infinite() bool { return math.IsInf(float64(h), 1) }

func (h Hours) MarshalJSON() ([]byte, error) {
	if h.Infinite() || math.IsNaN(float64(h)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(h))
}

func (h *Hours) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*h = Hours(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*h = Hours(f)
	return nil
}

// FlipCandidate is one scored trade suggestion. Derived per pass, never fed back.
type FlipCandidate struct {
	ItemID   int32  `json:"id"`
	Name     string `json:"name"`
	BuyLimit int64  `json:"limit_4h"`

	BuyPrice    int64       `json:"buy"`
	SellPrice   int64       `json:"sell"`
	PriceSource PriceSource `json:"price_src"`
	Tax         int64       `json:"tax"`

	Quantity      int64   `json:"qty"`
	GPNeeded      int64   `json:"gp_needed"`
	ProfitPerUnit int64   `json:"profit_unit"`
	EstProfit     int64   `json:"est_profit"`
	ROIPercent    float64 `json:"roi_pct"`

	Volume           int64    `json:"vol"`
	CyclesPerDay     float64  `json:"cycles_per_day"`
	DailyEst         float64  `json:"daily_profit_est"`
	DailyCap         float64  `json:"daily_profit_cap"`
	ETAHours         Hours    `json:"hours_to_clear"`
	ProfitPerHour    float64  `json:"profit_per_hour"`
	ParticipationPct *float64 `json:"participation_pct"` // nil when there is no volume

	HAValue int64 `json:"ha_value"`
	HAFloor int64 `json:"ha_floor"`
	HANet   int64 `json:"ha_profit"`
	HASafe  bool  `json:"ha_safe"`

	Score float64 `json:"score"`
}
