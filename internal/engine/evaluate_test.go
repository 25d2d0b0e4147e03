package engine

import (
	"math/rand"
	"testing"
	"time"

	"osrs-flipper/internal/config"
)

// scenarioData is a single-item market: buy limit 125, high alch 9,984,
// 5m window 9,800/10,200 and a 120,000 two-sided daily volume.
func scenarioData(limit int64) *MarketData {
	return &MarketData{
		Items: []ItemMeta{{ID: 1127, Name: "Rune platebody", Members: true, BuyLimit: limit, HighAlch: 9_984}},
		Prices: map[int32]PriceSnapshot{
			1127: {
				FiveMin: &PriceWindow{Low: 9_800, High: 10_200, HighVolume: 300, LowVolume: 280},
				Daily:   &PriceWindow{Low: 9_800, High: 10_200, HighVolume: 130_000, LowVolume: 120_000},
			},
		},
		FetchedAt: testNow,
	}
}

func scenarioConfig() *config.Config {
	cfg := config.Default()
	cfg.Bank = 10_000_000
	cfg.Slots = 5
	cfg.Aggressiveness = 0.25
	cfg.HARuneCost = 180
	return cfg
}

func TestEvaluate_Scenario(t *testing.T) {
	out := Evaluate(scenarioData(125), scenarioConfig())
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	c := out[0]
	if c.BuyPrice != 9_850 || c.SellPrice != 10_150 {
		t.Errorf("buy/sell = %d/%d, want 9850/10150", c.BuyPrice, c.SellPrice)
	}
	if c.Tax != 203 || c.ProfitPerUnit != 97 {
		t.Errorf("tax/profit = %d/%d, want 203/97", c.Tax, c.ProfitPerUnit)
	}
	if c.Quantity != 125 {
		t.Errorf("Quantity = %d, want 125 (limit bound)", c.Quantity)
	}
	if !approx(c.ROIPercent, 0.98, 0.01) {
		t.Errorf("ROIPercent = %v, want ~0.98", c.ROIPercent)
	}
	if c.CyclesPerDay != 6 {
		t.Errorf("CyclesPerDay = %v, want 6", c.CyclesPerDay)
	}
	if c.HAFloor != 9_804 || c.HANet != -46 || c.HASafe {
		t.Errorf("HA = %d/%d/%v, want 9804/-46/false", c.HAFloor, c.HANet, c.HASafe)
	}
	if c.PriceSource != SourceFiveMin {
		t.Errorf("PriceSource = %q, want 5m", c.PriceSource)
	}
	if c.Score <= 0 {
		t.Errorf("Score = %v, want > 0", c.Score)
	}
}

func TestEvaluate_ScenarioWithFiftyLimit(t *testing.T) {
	out := Evaluate(scenarioData(50), scenarioConfig())
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	c := out[0]
	if c.Quantity != 50 || c.GPNeeded != 492_500 || c.EstProfit != 4_850 {
		t.Fatalf("qty/gp/est = %d/%d/%d, want 50/492500/4850", c.Quantity, c.GPNeeded, c.EstProfit)
	}
}

func TestEvaluate_RequireHAFloorExcludes(t *testing.T) {
	cfg := scenarioConfig()
	cfg.RequireHAFloor = true
	if out := Evaluate(scenarioData(125), cfg); len(out) != 0 {
		t.Fatalf("len = %d, want 0 (buy above HA floor)", len(out))
	}
}

func TestEvaluate_ZeroVolume(t *testing.T) {
	data := scenarioData(125)
	data.Prices[1127] = PriceSnapshot{FiveMin: &PriceWindow{Low: 9_800, High: 10_200}}

	cfg := scenarioConfig()
	out := Evaluate(data, cfg)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1 (min volume not enforced without a signal)", len(out))
	}
	if !out[0].ETAHours.Infinite() || out[0].CyclesPerDay != 0 {
		t.Fatalf("ETA/cycles = %v/%v, want +Inf/0", out[0].ETAHours, out[0].CyclesPerDay)
	}

	cfg.Filters.HideInfiniteETA = true
	if out := Evaluate(data, cfg); len(out) != 0 {
		t.Fatalf("len = %d with hide-infinite-ETA, want 0", len(out))
	}
}

func TestEvaluate_MembersOnly(t *testing.T) {
	data := scenarioData(125)
	data.Items[0].Members = false

	cfg := scenarioConfig()
	if out := Evaluate(data, cfg); len(out) != 0 {
		t.Fatalf("members-only: len = %d, want 0", len(out))
	}
	cfg.MembersOnly = false
	if out := Evaluate(data, cfg); len(out) != 1 {
		t.Fatalf("all items: len = %d, want 1", len(out))
	}
}

func TestEvaluate_EmptyIsNotNil(t *testing.T) {
	out := Evaluate(&MarketData{FetchedAt: testNow}, scenarioConfig())
	if out == nil || len(out) != 0 {
		t.Fatalf("Evaluate(empty) = %#v, want empty non-nil slice", out)
	}
	if out := Evaluate(nil, scenarioConfig()); out == nil {
		t.Fatal("Evaluate(nil) = nil, want empty slice")
	}
}

func TestCandidates_DropReasons(t *testing.T) {
	data := &MarketData{
		Items: []ItemMeta{
			{ID: 1, Members: true, BuyLimit: 100},                    // no prices at all
			{ID: 2, Members: true, BuyLimit: 0},                      // no buy limit
			{ID: 3, Members: true, BuyLimit: 100},                    // spread collapses
			{ID: 4, Members: true, BuyLimit: 100},                    // too expensive for a slot
			{ID: 5, Members: false, BuyLimit: 100},                   // f2p
			{ID: 6, Members: true, BuyLimit: 100, Name: "Good item"}, // survives
		},
		Prices: map[int32]PriceSnapshot{
			2: {FiveMin: &PriceWindow{Low: 10, High: 20}},
			3: {FiveMin: &PriceWindow{Low: 10, High: 12}},
			4: {FiveMin: &PriceWindow{Low: 5_000_000, High: 6_000_000}},
			5: {FiveMin: &PriceWindow{Low: 10, High: 20}},
			6: {FiveMin: &PriceWindow{Low: 10, High: 20}},
		},
		FetchedAt: testNow,
	}
	cfg := config.Default()
	cfg.Bank = 1_000_000
	cfg.Aggressiveness = 0.5

	cands, stats := Candidates(data, cfg)
	if len(cands) != 1 || cands[0].ItemID != 6 {
		t.Fatalf("candidates = %v, want [6]", ids(cands))
	}
	want := DropStats{NotMembers: 1, DataUnavailable: 2, InvalidSpread: 1, ZeroQuantity: 1}
	if stats != want {
		t.Fatalf("drops = %+v, want %+v", stats, want)
	}
}

// randomMarket builds a noisy market so the invariants are checked against
// many shapes of input, not just hand-picked ones.
func randomMarket(seed int64, n int) *MarketData {
	rng := rand.New(rand.NewSource(seed))
	data := &MarketData{Prices: make(map[int32]PriceSnapshot), FetchedAt: testNow}
	for i := 0; i < n; i++ {
		id := int32(i + 1)
		low := int64(1 + rng.Intn(200_000))
		high := low + int64(rng.Intn(int(low/5)+3))
		data.Items = append(data.Items, ItemMeta{
			ID: id, Name: "item", Members: rng.Intn(4) > 0,
			BuyLimit: int64(rng.Intn(30_000)), HighAlch: int64(rng.Intn(300_000)),
		})
		snap := PriceSnapshot{}
		if rng.Intn(3) > 0 {
			snap.FiveMin = &PriceWindow{Low: low, High: high, HighVolume: int64(rng.Intn(500)), LowVolume: int64(rng.Intn(500))}
		}
		if rng.Intn(2) > 0 {
			snap.Daily = &PriceWindow{Low: low, High: high, HighVolume: int64(rng.Intn(2_000_000)), LowVolume: int64(rng.Intn(2_000_000))}
		}
		if rng.Intn(2) > 0 {
			snap.Latest = &LatestPrice{
				Low: low, High: high,
				LowTime:  testNow.Add(-time.Duration(rng.Intn(60)) * time.Minute),
				HighTime: testNow.Add(-time.Duration(rng.Intn(60)) * time.Minute),
			}
		}
		data.Prices[id] = snap
	}
	return data
}

func TestEvaluate_Invariants(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		data := randomMarket(seed, 400)
		cfg := config.Default()
		cfg.Bank = 3_000_000 + seed*1_000_000
		cfg.Slots = int(seed)
		cfg.ResultCount = 1_000
		cfg.MinVolume24h = 0
		cfg.MinProfitUnit = 0
		cfg.NoTax = seed%2 == 0

		out := Evaluate(data, cfg)
		perSlot := cfg.Bank / int64(cfg.Slots)
		for _, c := range out {
			if c.BuyPrice >= c.SellPrice {
				t.Fatalf("seed %d item %d: buy %d >= sell %d", seed, c.ItemID, c.BuyPrice, c.SellPrice)
			}
			if c.Quantity*c.BuyPrice > perSlot {
				t.Fatalf("seed %d item %d: gp %d over per-slot %d", seed, c.ItemID, c.Quantity*c.BuyPrice, perSlot)
			}
			if c.Quantity > c.BuyLimit {
				t.Fatalf("seed %d item %d: qty %d over limit %d", seed, c.ItemID, c.Quantity, c.BuyLimit)
			}
			if cfg.NoTax && c.Tax != 0 {
				t.Fatalf("seed %d item %d: tax %d with tax disabled", seed, c.ItemID, c.Tax)
			}
			if c.ETAHours.Infinite() != (c.Volume == 0) {
				t.Fatalf("seed %d item %d: ETA %v with volume %d", seed, c.ItemID, c.ETAHours, c.Volume)
			}
		}

		again := Evaluate(data, cfg)
		if len(again) != len(out) {
			t.Fatalf("seed %d: rerun len %d, want %d", seed, len(again), len(out))
		}
		for i := range out {
			if out[i].ItemID != again[i].ItemID {
				t.Fatalf("seed %d: rerun order differs at %d", seed, i)
			}
		}
	}
}
