package engine

import "testing"

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name  string
		bank  int64
		slots int
		limit int64
		buy   int64
		want  int64
	}{
		{"limit bound", 10_000_000, 5, 125, 9_850, 125},
		{"budget bound", 1_000_000, 5, 125, 9_850, 20},
		{"price above slot budget", 1_000_000, 5, 125, 300_000, 0},
		{"zero slots treated as one", 100_000, 0, 1_000, 100, 1_000},
		{"exact fit", 1_000, 1, 100, 10, 100},
		{"no limit", 1_000_000, 1, 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionSize(tt.bank, tt.slots, tt.limit, tt.buy)
			if got != tt.want {
				t.Fatalf("PositionSize = %d, want %d", got, tt.want)
			}
			slots := int64(max(tt.slots, 1))
			if got*tt.buy > tt.bank/slots {
				t.Fatalf("qty*buy = %d exceeds per-slot budget %d", got*tt.buy, tt.bank/slots)
			}
		})
	}
}
