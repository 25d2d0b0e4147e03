package engine

import (
	"math"
	"time"
)

const (
	// LatestMaxAge is how old a latest trade may be before the latest window is stale.
	LatestMaxAge = 30 * time.Minute
	// MaxWindowDeviation is the largest relative gap allowed between a window's
	// low/high and the reference prices before the window is rejected.
	MaxWindowDeviation = 0.20
)

// Quote is the selected entry/exit price pair for one item.
type Quote struct {
	Buy    int64
	Sell   int64
	Source PriceSource
}

type priceBounds struct {
	low, high int64
}

func (b priceBounds) usable() bool {
	return b.low > 0 && b.high > 0 && b.high > b.low
}

// deviates reports whether b is implausibly far from ref on either side.
func (b priceBounds) deviates(ref priceBounds) bool {
	return relDiff(b.low, ref.low) > MaxWindowDeviation || relDiff(b.high, ref.high) > MaxWindowDeviation
}

func relDiff(v, ref int64) float64 {
	if ref <= 0 {
		return 0
	}
	return math.Abs(float64(v-ref)) / float64(ref)
}

func windowBounds(w *PriceWindow) priceBounds {
	if w == nil {
		return priceBounds{}
	}
	return priceBounds{low: w.Low, high: w.High}
}

// freshLatest returns the latest prices when both trades happened within
// LatestMaxAge of now and within LatestMaxAge of each other. Zero times are
// treated as unknown and do not disqualify the window.
func freshLatest(l *LatestPrice, now time.Time) (priceBounds, bool) {
	if l == nil {
		return priceBounds{}, false
	}
	b := priceBounds{low: l.Low, high: l.High}
	if !b.usable() {
		return b, false
	}
	if !l.HighTime.IsZero() && now.Sub(l.HighTime) > LatestMaxAge {
		return b, false
	}
	if !l.LowTime.IsZero() && now.Sub(l.LowTime) > LatestMaxAge {
		return b, false
	}
	if !l.HighTime.IsZero() && !l.LowTime.IsZero() {
		gap := l.HighTime.Sub(l.LowTime)
		if gap < 0 {
			gap = -gap
		}
		if gap > LatestMaxAge {
			return b, false
		}
	}
	return b, true
}

// SelectPrices picks one consistent price window (5m, then 24h, then fresh
// latest) and places buy/sell inside its spread according to aggressiveness.
func SelectPrices(snap PriceSnapshot, aggr float64, now time.Time) (Quote, error) {
	latest, latestOK := freshLatest(snap.Latest, now)
	fiveMin := windowBounds(snap.FiveMin)
	daily := windowBounds(snap.Daily)

	type window struct {
		src    PriceSource
		bounds priceBounds
		ok     bool
		ref    priceBounds
		hasRef bool
	}
	windows := []window{
		{src: SourceFiveMin, bounds: fiveMin, ok: fiveMin.usable()},
		{src: SourceDaily, bounds: daily, ok: daily.usable()},
		{src: SourceLatest, bounds: latest, ok: latestOK},
	}
	// Averaged windows are checked against fresh latest prices. Without
	// them only 5m is checked, against 24h, so a spiking 5m falls back to 24h.
	if latestOK {
		windows[0].ref, windows[0].hasRef = latest, true
		windows[1].ref, windows[1].hasRef = latest, true
	} else {
		windows[0].ref, windows[0].hasRef = daily, daily.usable()
	}

	for _, w := range windows {
		if !w.ok {
			continue
		}
		if w.hasRef && w.bounds.deviates(w.ref) {
			continue
		}
		buy, sell := choosePrices(w.bounds.low, w.bounds.high, aggr)
		if buy >= sell {
			return Quote{}, ErrInvalidSpread
		}
		return Quote{Buy: buy, Sell: sell, Source: w.src}, nil
	}
	return Quote{}, ErrDataUnavailable
}

// choosePrices moves inward from both ends of the spread. The combined
// inward move is aggr of the spread, split evenly between buy and sell.
func choosePrices(low, high int64, aggr float64) (buy, sell int64) {
	spread := high - low
	if spread <= 1 {
		return low, high
	}
	step := int64(math.Floor(float64(spread)*aggr/2 + 1e-9))
	if step < 1 {
		step = 1
	}
	return low + step, high - step
}
