package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"osrs-flipper/internal/config"
)

// Feed supplies one complete, immutable market snapshot per call.
type Feed interface {
	Snapshot(ctx context.Context) (*MarketData, error)
}

// Scanner pairs a Feed with the pure pipeline.
type Scanner struct {
	Feed Feed
}

// NewScanner creates a Scanner reading from feed.
func NewScanner(feed Feed) *Scanner {
	return &Scanner{Feed: feed}
}

// ScanResult is the outcome of one pass. Data is kept so callers can re-run
// Evaluate with different soft filters without refetching.
type ScanResult struct {
	RunID      string          `json:"run_id"`
	Candidates []FlipCandidate `json:"candidates"`
	Data       *MarketData     `json:"-"`
	Drops      DropStats       `json:"drops"`
	ItemCount  int             `json:"item_count"`
	FetchedAt  time.Time       `json:"fetched_at"`
	DurationMs int64           `json:"duration_ms"`
}

// Scan fetches a snapshot and evaluates it with cfg. Only the fetch can fail.
func (s *Scanner) Scan(ctx context.Context, cfg *config.Config, progress func(string)) (*ScanResult, error) {
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()
	runID := uuid.NewString()

	progress("Fetching prices...")
	data, err := s.Feed.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("Evaluating %d items...", len(data.Items)))
	results, drops := evaluate(data, cfg)

	progress(fmt.Sprintf("Found %d flips", len(results)))
	return &ScanResult{
		RunID:      runID,
		Candidates: results,
		Data:       data,
		Drops:      drops,
		ItemCount:  len(data.Items),
		FetchedAt:  data.FetchedAt,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// Reevaluate runs the pipeline again over the data of a previous pass.
func (r *ScanResult) Reevaluate(cfg *config.Config) []FlipCandidate {
	return Evaluate(r.Data, cfg)
}
