package wiki

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/logger"
)

// Snapshot fetches all five endpoints concurrently and assembles one
// immutable MarketData. /mapping and /latest are required; the averaged
// windows and /volumes degrade to empty with a warning.
func (c *Client) Snapshot(ctx context.Context) (*engine.MarketData, error) {
	var (
		mapping []MappingItem
		latest  map[int32]LatestEntry
		fiveMin map[int32]WindowEntry
		daily   map[int32]WindowEntry
		volumes map[int32]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mapping, err = c.Mapping(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = c.Latest(gctx)
		return err
	})
	g.Go(func() error {
		fiveMin = optional[WindowEntry](c.FiveMin(gctx))
		return nil
	})
	g.Go(func() error {
		daily = optional[WindowEntry](c.Daily(gctx))
		return nil
	})
	g.Go(func() error {
		volumes = optional[int64](c.Volumes(gctx))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(mapping) == 0 {
		return nil, &FetchError{Endpoint: EndpointMapping, Err: fmt.Errorf("empty item catalog")}
	}

	return buildMarketData(mapping, latest, fiveMin, daily, volumes, time.Now().UTC()), nil
}

// optional logs a failed optional endpoint and substitutes an empty map.
func optional[T any](m map[int32]T, err error) map[int32]T {
	if err != nil {
		logger.Warn("WIKI", err.Error()+" (continuing without it)")
		return map[int32]T{}
	}
	return m
}

func buildMarketData(
	mapping []MappingItem,
	latest map[int32]LatestEntry,
	fiveMin, daily map[int32]WindowEntry,
	volumes map[int32]int64,
	now time.Time,
) *engine.MarketData {
	data := &engine.MarketData{
		Items:     make([]engine.ItemMeta, 0, len(mapping)),
		Prices:    make(map[int32]engine.PriceSnapshot, len(mapping)),
		FetchedAt: now,
	}
	for _, m := range mapping {
		data.Items = append(data.Items, m.ToItemMeta())

		var snap engine.PriceSnapshot
		found := false
		if l, ok := latest[m.ID]; ok {
			snap.Latest = l.ToLatestPrice()
			found = true
		}
		if w, ok := fiveMin[m.ID]; ok {
			snap.FiveMin = w.ToPriceWindow()
			found = true
		}
		if w, ok := daily[m.ID]; ok {
			snap.Daily = w.ToPriceWindow()
			found = true
		}
		if v, ok := volumes[m.ID]; ok {
			snap.DailyVolume = v
			found = true
		}
		if found {
			data.Prices[m.ID] = snap
		}
	}
	return data
}
