package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"osrs-flipper/internal/config"
	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/logger"
)

// ErrSuperseded is returned for a pass that a newer manual trigger replaced.
// Its result is never published.
var ErrSuperseded = errors.New("refresh: pass superseded by a newer one")

// ErrBusy is returned by an automatic pass when another pass is in flight.
var ErrBusy = errors.New("refresh: a pass is already running")

// Scanner runs one fetch-and-evaluate pass. *engine.Scanner implements it.
type Scanner interface {
	Scan(ctx context.Context, cfg *config.Config, progress func(string)) (*engine.ScanResult, error)
}

type pass struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Ready       bool       `json:"ready"`
	Generation  uint64     `json:"generation"`
	Running     bool       `json:"running"`
	AutoRefresh bool       `json:"auto_refresh"`
	IntervalSec int        `json:"interval_sec"`
	LastRunID   string     `json:"last_run_id,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Scheduler drives evaluation passes. At most one pass is in flight. A
// manual trigger cancels a running pass and bumps the generation, so the
// older pass is discarded when it returns. Published results are never
// modified after publication.
type Scheduler struct {
	scanner Scanner
	config  func() *config.Config

	// OnPublish, when set, is called with every published result and the
	// configuration it was evaluated with.
	OnPublish func(res *engine.ScanResult, cfg *config.Config)

	mu       sync.Mutex
	gen      uint64
	inflight *pass
	enabled  bool
	interval time.Duration
	changed  chan struct{}

	pubMu   sync.RWMutex
	latest  *engine.ScanResult
	lastErr error
	lastAt  time.Time
}

// NewScheduler creates a scheduler. cfg is called at the start of every pass
// and must return a copy the pass may keep.
func NewScheduler(scanner Scanner, cfg func() *config.Config) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		config:   cfg,
		interval: 30 * time.Second,
		changed:  make(chan struct{}, 1),
	}
}

// SetAuto enables or disables periodic passes. A non-positive interval keeps
// the current one.
func (s *Scheduler) SetAuto(enabled bool, interval time.Duration) {
	s.mu.Lock()
	s.enabled = enabled
	if interval > 0 {
		s.interval = interval
	}
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Scheduler) auto() (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, s.interval
}

// Trigger runs a pass now, superseding any pass in flight, and blocks until
// it finishes.
func (s *Scheduler) Trigger(ctx context.Context, progress func(string)) (*engine.ScanResult, error) {
	p, pctx := s.begin(ctx, true)
	return s.run(pctx, p, progress)
}

// tryAuto runs a pass unless one is already in flight.
func (s *Scheduler) tryAuto(ctx context.Context) (*engine.ScanResult, error) {
	p, pctx := s.begin(ctx, false)
	if p == nil {
		return nil, ErrBusy
	}
	return s.run(pctx, p, nil)
}

// begin registers a new in-flight pass. With preempt, a running pass is
// cancelled, marked stale and waited for; without it, begin returns nil
// when a pass is running.
func (s *Scheduler) begin(ctx context.Context, preempt bool) (*pass, context.Context) {
	for {
		s.mu.Lock()
		if s.inflight == nil {
			s.gen++
			pctx, cancel := context.WithCancel(ctx)
			p := &pass{gen: s.gen, cancel: cancel, done: make(chan struct{})}
			s.inflight = p
			s.mu.Unlock()
			return p, pctx
		}
		if !preempt {
			s.mu.Unlock()
			return nil, nil
		}
		old := s.inflight
		old.cancel()
		s.gen++
		s.mu.Unlock()

		logger.Info("REFRESH", fmt.Sprintf("Superseding pass #%d", old.gen))
		<-old.done
	}
}

func (s *Scheduler) run(ctx context.Context, p *pass, progress func(string)) (*engine.ScanResult, error) {
	cfg := s.config()
	res, err := s.scanner.Scan(ctx, cfg, progress)
	p.cancel()

	s.mu.Lock()
	stale := p.gen != s.gen
	s.inflight = nil
	close(p.done)
	s.mu.Unlock()

	if stale {
		logger.Debug("REFRESH", fmt.Sprintf("Discarded stale pass #%d", p.gen))
		return nil, ErrSuperseded
	}

	s.pubMu.Lock()
	s.lastAt = time.Now()
	s.lastErr = err
	if err == nil {
		s.latest = res
	}
	s.pubMu.Unlock()

	if err != nil {
		logger.Error("REFRESH", fmt.Sprintf("Pass #%d failed: %v", p.gen, err))
		return nil, err
	}
	logger.Success("REFRESH", fmt.Sprintf("Pass #%d: %d flips from %d items in %dms",
		p.gen, len(res.Candidates), res.ItemCount, res.DurationMs))
	if s.OnPublish != nil {
		s.OnPublish(res, cfg)
	}
	return res, nil
}

// Latest returns the most recently published result, or nil before the
// first successful pass.
func (s *Scheduler) Latest() *engine.ScanResult {
	s.pubMu.RLock()
	defer s.pubMu.RUnlock()
	return s.latest
}

// Status reports the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		Generation:  s.gen,
		Running:     s.inflight != nil,
		AutoRefresh: s.enabled,
		IntervalSec: int(s.interval / time.Second),
	}
	s.mu.Unlock()

	s.pubMu.RLock()
	defer s.pubMu.RUnlock()
	st.Ready = s.latest != nil
	if s.latest != nil {
		st.LastRunID = s.latest.RunID
	}
	if !s.lastAt.IsZero() {
		at := s.lastAt
		st.LastRunAt = &at
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Run drives automatic passes until ctx is done. Interval and enable changes
// made with SetAuto take effect immediately.
func (s *Scheduler) Run(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	reset := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		if enabled, interval := s.auto(); enabled {
			ticker = time.NewTicker(interval)
			tick = ticker.C
		}
	}
	reset()
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.inflight != nil {
				s.inflight.cancel()
			}
			s.mu.Unlock()
			return
		case <-s.changed:
			reset()
		case <-tick:
			if _, err := s.tryAuto(ctx); errors.Is(err, ErrBusy) {
				logger.Debug("REFRESH", "Skipping tick, pass in flight")
			}
		}
	}
}
