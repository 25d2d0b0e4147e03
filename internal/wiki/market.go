package wiki

import (
	"context"
	"time"

	"osrs-flipper/internal/engine"
)

// MappingItem is one row of /mapping.
type MappingItem struct {
	ID       int32  `json:"id"`
	Name     string `json:"name"`
	Members  bool   `json:"members"`
	Limit    int64  `json:"limit"`
	HighAlch int64  `json:"highalch"`
	LowAlch  int64  `json:"lowalch"`
	Value    int64  `json:"value"`
	Examine  string `json:"examine"`
}

// LatestEntry is the most recent instant-buy (high) and instant-sell (low)
// trade of one item. Times are unix seconds; missing values decode as zero.
type LatestEntry struct {
	High     int64 `json:"high"`
	HighTime int64 `json:"highTime"`
	Low      int64 `json:"low"`
	LowTime  int64 `json:"lowTime"`
}

// WindowEntry is one item's averaged window from /5m or /24h.
type WindowEntry struct {
	AvgHighPrice    int64 `json:"avgHighPrice"`
	HighPriceVolume int64 `json:"highPriceVolume"`
	AvgLowPrice     int64 `json:"avgLowPrice"`
	LowPriceVolume  int64 `json:"lowPriceVolume"`
}

type dataEnvelope[T any] struct {
	Data      map[int32]T `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Mapping returns the static item catalog.
func (c *Client) Mapping(ctx context.Context) ([]MappingItem, error) {
	var items []MappingItem
	if err := c.getJSON(ctx, EndpointMapping, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Latest returns the most recent trades keyed by item id.
func (c *Client) Latest(ctx context.Context) (map[int32]LatestEntry, error) {
	var env dataEnvelope[LatestEntry]
	if err := c.getJSON(ctx, EndpointLatest, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FiveMin returns the 5-minute averaged window keyed by item id.
func (c *Client) FiveMin(ctx context.Context) (map[int32]WindowEntry, error) {
	return c.window(ctx, EndpointFiveMin)
}

// Daily returns the 24-hour averaged window keyed by item id.
func (c *Client) Daily(ctx context.Context) (map[int32]WindowEntry, error) {
	return c.window(ctx, EndpointDaily)
}

func (c *Client) window(ctx context.Context, endpoint string) (map[int32]WindowEntry, error) {
	var env dataEnvelope[WindowEntry]
	if err := c.getJSON(ctx, endpoint, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Volumes returns the total daily traded volume keyed by item id.
func (c *Client) Volumes(ctx context.Context) (map[int32]int64, error) {
	var env dataEnvelope[int64]
	if err := c.getJSON(ctx, EndpointVolumes, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ToItemMeta converts a catalog row into the engine's item metadata.
func (m MappingItem) ToItemMeta() engine.ItemMeta {
	return engine.ItemMeta{
		ID:       m.ID,
		Name:     m.Name,
		Members:  m.Members,
		BuyLimit: m.Limit,
		HighAlch: m.HighAlch,
	}
}

// ToLatestPrice converts unix-second timestamps; zero stays unknown.
func (e LatestEntry) ToLatestPrice() *engine.LatestPrice {
	return &engine.LatestPrice{
		High:     e.High,
		Low:      e.Low,
		HighTime: unixOrZero(e.HighTime),
		LowTime:  unixOrZero(e.LowTime),
	}
}

// ToPriceWindow converts an averaged window.
func (e WindowEntry) ToPriceWindow() *engine.PriceWindow {
	return &engine.PriceWindow{
		High:       e.AvgHighPrice,
		Low:        e.AvgLowPrice,
		HighVolume: e.HighPriceVolume,
		LowVolume:  e.LowPriceVolume,
	}
}

func unixOrZero(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
