package engine

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestSelectPrices_FiveMinWindow(t *testing.T) {
	snap := PriceSnapshot{FiveMin: &PriceWindow{Low: 9_800, High: 10_200}}
	q, err := SelectPrices(snap, 0.25, testNow)
	if err != nil {
		t.Fatalf("SelectPrices error: %v", err)
	}
	if q.Buy != 9_850 || q.Sell != 10_150 {
		t.Fatalf("buy/sell = %d/%d, want 9850/10150", q.Buy, q.Sell)
	}
	if q.Source != SourceFiveMin {
		t.Fatalf("source = %q, want 5m", q.Source)
	}
}

func TestSelectPrices_FallsBackToDailyWhenFiveMinMissing(t *testing.T) {
	snap := PriceSnapshot{
		FiveMin: &PriceWindow{Low: 0, High: 500},
		Daily:   &PriceWindow{Low: 400, High: 500},
	}
	q, err := SelectPrices(snap, 0.2, testNow)
	if err != nil {
		t.Fatalf("SelectPrices error: %v", err)
	}
	if q.Source != SourceDaily {
		t.Fatalf("source = %q, want 24h", q.Source)
	}
	if q.Buy != 410 || q.Sell != 490 {
		t.Fatalf("buy/sell = %d/%d, want 410/490", q.Buy, q.Sell)
	}
}

func TestSelectPrices_RejectsFiveMinDeviatingFromLatest(t *testing.T) {
	snap := PriceSnapshot{
		Latest:  &LatestPrice{Low: 7_000, High: 7_500, LowTime: testNow.Add(-time.Minute), HighTime: testNow.Add(-2 * time.Minute)},
		FiveMin: &PriceWindow{Low: 9_800, High: 10_200},
		Daily:   &PriceWindow{Low: 7_100, High: 7_400},
	}
	q, err := SelectPrices(snap, 0, testNow)
	if err != nil {
		t.Fatalf("SelectPrices error: %v", err)
	}
	if q.Source != SourceDaily {
		t.Fatalf("source = %q, want 24h after 5m rejected", q.Source)
	}
}

func TestSelectPrices_FiveMinSpikeFallsBackToDailyWithoutLatest(t *testing.T) {
	snap := PriceSnapshot{
		FiveMin: &PriceWindow{Low: 5_000, High: 5_400},
		Daily:   &PriceWindow{Low: 9_800, High: 10_200},
	}
	q, err := SelectPrices(snap, 0.25, testNow)
	if err != nil {
		t.Fatalf("SelectPrices error: %v", err)
	}
	if q.Source != SourceDaily {
		t.Fatalf("source = %q, want 24h", q.Source)
	}
	if q.Buy != 9_850 || q.Sell != 10_150 {
		t.Fatalf("buy/sell = %d/%d, want 9850/10150", q.Buy, q.Sell)
	}
}

func TestSelectPrices_FiveMinAgreeingWithDailyWins(t *testing.T) {
	snap := PriceSnapshot{
		FiveMin: &PriceWindow{Low: 9_900, High: 10_100},
		Daily:   &PriceWindow{Low: 9_800, High: 10_200},
	}
	q, err := SelectPrices(snap, 0, testNow)
	if err != nil || q.Source != SourceFiveMin {
		t.Fatalf("q=%+v err=%v, want 5m source", q, err)
	}
}

func TestSelectPrices_LatestOnlyWhenFresh(t *testing.T) {
	fresh := PriceSnapshot{Latest: &LatestPrice{
		Low: 100, High: 120,
		LowTime: testNow.Add(-5 * time.Minute), HighTime: testNow.Add(-10 * time.Minute),
	}}
	q, err := SelectPrices(fresh, 0, testNow)
	if err != nil || q.Source != SourceLatest {
		t.Fatalf("fresh latest: q=%+v err=%v, want latest source", q, err)
	}

	stale := PriceSnapshot{Latest: &LatestPrice{
		Low: 100, High: 120,
		LowTime: testNow.Add(-45 * time.Minute), HighTime: testNow.Add(-time.Minute),
	}}
	if _, err := SelectPrices(stale, 0, testNow); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("stale latest: err = %v, want ErrDataUnavailable", err)
	}
}

func TestSelectPrices_LatestTimestampsFarApart(t *testing.T) {
	// Both trades are recent relative to a clock skewed between them, but
	// more than 30 minutes apart from each other.
	now := testNow
	snap := PriceSnapshot{Latest: &LatestPrice{
		Low: 100, High: 120,
		LowTime: now.Add(-29 * time.Minute), HighTime: now.Add(2 * time.Minute),
	}}
	if _, err := SelectPrices(snap, 0, now); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestSelectPrices_NoWindows(t *testing.T) {
	if _, err := SelectPrices(PriceSnapshot{}, 0.15, testNow); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestSelectPrices_FullAggressivenessCollapsesSpread(t *testing.T) {
	snap := PriceSnapshot{FiveMin: &PriceWindow{Low: 100, High: 120}}
	if _, err := SelectPrices(snap, 1, testNow); !errors.Is(err, ErrInvalidSpread) {
		t.Fatalf("err = %v, want ErrInvalidSpread", err)
	}
}

func TestChoosePrices(t *testing.T) {
	tests := []struct {
		low, high int64
		aggr      float64
		buy, sell int64
	}{
		{100, 101, 0.5, 100, 101}, // spread of 1 is left alone
		{100, 200, 0, 101, 199},   // minimum step of 1
		{100, 200, 0.15, 107, 193},
		{9_800, 10_200, 0.25, 9_850, 10_150},
		{100, 104, 0.1, 101, 103},
	}
	for _, tt := range tests {
		buy, sell := choosePrices(tt.low, tt.high, tt.aggr)
		if buy != tt.buy || sell != tt.sell {
			t.Errorf("choosePrices(%d, %d, %v) = %d/%d, want %d/%d",
				tt.low, tt.high, tt.aggr, buy, sell, tt.buy, tt.sell)
		}
	}
}
