package engine

import "math"

// MaxCyclesPerDay caps how often a 4-hour buy limit can be refilled in a day.
const MaxCyclesPerDay = 6.0

// VolumeSignal returns the daily volume estimate for an item: the smaller side
// of the 24h window, else the smaller side of the 5m window, else the /volumes
// total. Zero means no signal.
func VolumeSignal(snap PriceSnapshot) int64 {
	if v := twoSided(snap.Daily); v > 0 {
		return v
	}
	if v := twoSided(snap.FiveMin); v > 0 {
		return v
	}
	if snap.DailyVolume > 0 {
		return snap.DailyVolume
	}
	return 0
}

func twoSided(w *PriceWindow) int64 {
	if w == nil || w.HighVolume <= 0 || w.LowVolume <= 0 {
		return 0
	}
	return min(w.HighVolume, w.LowVolume)
}

// MetricsInput carries everything the metrics step needs for one item.
type MetricsInput struct {
	Buy, Sell  int64
	Tax        int64
	Quantity   int64
	BuyLimit   int64
	Volume     int64
	HighAlch   int64
	HARuneCost int64
}

// ApplyMetrics fills the derived profit, timing and high-alch fields of c.
func ApplyMetrics(c *FlipCandidate, in MetricsInput) {
	c.BuyPrice = in.Buy
	c.SellPrice = in.Sell
	c.Tax = in.Tax
	c.Quantity = in.Quantity
	c.BuyLimit = in.BuyLimit
	c.Volume = in.Volume

	c.ProfitPerUnit = in.Sell - in.Tax - in.Buy
	c.EstProfit = c.ProfitPerUnit * in.Quantity
	c.GPNeeded = in.Quantity * in.Buy
	if c.GPNeeded > 0 {
		c.ROIPercent = float64(c.EstProfit) / float64(c.GPNeeded) * 100
	}

	c.CyclesPerDay = cyclesPerDay(in.Volume, in.BuyLimit)
	c.DailyEst = c.CyclesPerDay * float64(c.EstProfit)
	c.DailyCap = c.CyclesPerDay * float64(c.ProfitPerUnit) * float64(in.BuyLimit)

	c.ETAHours = etaHours(in.Quantity, in.Volume)
	c.ProfitPerHour = 0
	if !c.ETAHours.Infinite() && c.ETAHours > 0 {
		c.ProfitPerHour = float64(c.EstProfit) / float64(c.ETAHours)
	}

	c.ParticipationPct = nil
	if in.Volume > 0 {
		p := float64(in.Quantity) / float64(in.Volume) * 100
		c.ParticipationPct = &p
	}

	c.HAValue = in.HighAlch
	c.HAFloor, c.HANet, c.HASafe = 0, 0, false
	if in.HighAlch > 0 {
		c.HAFloor = in.HighAlch - in.HARuneCost
		c.HANet = c.HAFloor - in.Buy
		c.HASafe = in.Buy <= c.HAFloor
	}
}

func cyclesPerDay(volume, buyLimit int64) float64 {
	if buyLimit <= 0 || volume <= 0 {
		return 0
	}
	return math.Min(MaxCyclesPerDay, float64(volume)/float64(buyLimit))
}

// etaHours is the time to trade qty units at the observed daily volume.
func etaHours(qty, volume int64) Hours {
	if volume <= 0 {
		return Hours(math.Inf(1))
	}
	return Hours(float64(qty) / (float64(volume) / 24))
}
