package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"osrs-flipper/internal/config"
	"osrs-flipper/internal/db"
	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/refresh"
)

const maxRecordedRuns = 64

// Server is the HTTP API connecting the refresh scheduler, the engine and
// the database.
type Server struct {
	mu        sync.RWMutex
	cfg       *config.Config
	scheduler *refresh.Scheduler
	db        *db.DB

	// Run id → scan_history id of recorded passes, so a manual scan can
	// report where its result was stored.
	recordedMu sync.Mutex
	recorded   map[string]int64
}

// NewServer creates a Server. database may be nil, in which case settings
// are not persisted and history endpoints answer 503.
func NewServer(cfg *config.Config, database *db.DB) *Server {
	return &Server{
		cfg:      cfg,
		db:       database,
		recorded: make(map[string]int64),
	}
}

// SetScheduler attaches the scheduler and records every published pass.
func (s *Server) SetScheduler(sched *refresh.Scheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler = sched
	if s.db != nil {
		sched.OnPublish = s.recordScan
	}
}

// Config returns a copy of the current configuration. It is the config
// source of the scheduler.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

func (s *Server) sched() *refresh.Scheduler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduler
}

func (s *Server) recordScan(res *engine.ScanResult, cfg *config.Config) {
	id, err := s.db.RecordScan(res, cfg)
	if err != nil {
		log.Printf("[API] Record scan %s: %v", res.RunID, err)
		return
	}
	s.recordedMu.Lock()
	if len(s.recorded) >= maxRecordedRuns {
		s.recorded = make(map[string]int64)
	}
	s.recorded[res.RunID] = id
	s.recordedMu.Unlock()
}

func (s *Server) scanID(runID string) int64 {
	s.recordedMu.Lock()
	defer s.recordedMu.Unlock()
	return s.recorded[runID]
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSetConfig)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/flips", s.handleFlips)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/scan/history", s.handleGetHistory)
	mux.HandleFunc("GET /api/scan/history/{id}", s.handleGetHistoryByID)
	mux.HandleFunc("GET /api/scan/history/{id}/results", s.handleGetHistoryResults)
	mux.HandleFunc("DELETE /api/scan/history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("POST /api/scan/history/clear", s.handleClearHistory)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// --- Handlers ---

type statusResponse struct {
	refresh.Status
	ItemCount int        `json:"item_count"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sched := s.sched()
	if sched == nil {
		writeJSON(w, statusResponse{})
		return
	}
	out := statusResponse{Status: sched.Status()}
	if latest := sched.Latest(); latest != nil {
		out.ItemCount = latest.ItemCount
		at := latest.FetchedAt
		out.FetchedAt = &at
	}
	writeJSON(w, out)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Config())
}

// handleSetConfig applies a partial config. Only keys present in the body
// change; unknown keys are rejected and the result must validate.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(r.Body); err != nil {
		writeError(w, 400, "invalid body")
		return
	}

	next := s.Config()
	dec := json.NewDecoder(&body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(next); err != nil {
		writeError(w, 400, "invalid json: "+err.Error())
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	if err := s.applyConfig(next); err != nil {
		writeError(w, 500, "save config: "+err.Error())
		return
	}
	writeJSON(w, next)
}

// applyConfig persists cfg, makes it current and pushes the auto-refresh
// settings to the scheduler.
func (s *Server) applyConfig(cfg *config.Config) error {
	if s.db != nil {
		if err := s.db.SaveConfig(cfg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.cfg = cfg.Clone()
	sched := s.scheduler
	s.mu.Unlock()

	if sched != nil {
		sched.SetAuto(cfg.AutoRefresh, cfg.RefreshInterval())
	}
	return nil
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sched := s.sched()
	if sched == nil {
		writeError(w, 503, "scanner not ready")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	emit := func(v interface{}) {
		line, _ := json.Marshal(v)
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	}

	log.Printf("[API] Scan requested")
	res, err := sched.Trigger(r.Context(), func(msg string) {
		emit(map[string]string{"type": "progress", "message": msg})
	})
	if err != nil {
		log.Printf("[API] Scan error: %v", err)
		kind := "error"
		if errors.Is(err, refresh.ErrSuperseded) {
			kind = "superseded"
		}
		emit(map[string]string{"type": kind, "message": err.Error()})
		return
	}

	log.Printf("[API] Scan complete: %d results in %dms", len(res.Candidates), res.DurationMs)
	emit(map[string]interface{}{
		"type":    "result",
		"run_id":  res.RunID,
		"scan_id": s.scanID(res.RunID),
		"count":   len(res.Candidates),
		"drops":   res.Drops,
		"data":    res.Candidates,
	})
}

// applyFlipQuery overrides soft filters and N from the query string.
func applyFlipQuery(cfg *config.Config, q map[string][]string) error {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	floats := []struct {
		key string
		dst **float64
	}{
		{"min_roi", &cfg.Filters.MinROIPercent},
		{"min_pph", &cfg.Filters.MinProfitHour},
		{"max_eta", &cfg.Filters.MaxETAHours},
		{"min_cycles", &cfg.Filters.MinCyclesPerDay},
	}
	for _, f := range floats {
		v := get(f.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: not a number", f.key)
		}
		*f.dst = &x
	}
	if v := get("min_ha"); v != "" {
		x, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("min_ha: not an integer")
		}
		cfg.Filters.MinHANet = &x
	}
	if v := get("hide_inf"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("hide_inf: not a boolean")
		}
		cfg.Filters.HideInfiniteETA = b
	}
	if _, ok := q["q"]; ok {
		cfg.Filters.NameQuery = get("q")
	}
	if v := get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("n: not an integer")
		}
		cfg.ResultCount = n
	}
	return cfg.Validate()
}

// handleFlips re-runs the pipeline over the latest published market data
// with the current config plus any query overrides. Nothing is refetched.
func (s *Server) handleFlips(w http.ResponseWriter, r *http.Request) {
	sched := s.sched()
	if sched == nil {
		writeError(w, 503, "scanner not ready")
		return
	}
	latest := sched.Latest()
	if latest == nil {
		writeError(w, 503, "no market data yet")
		return
	}

	cfg := s.Config()
	if err := applyFlipQuery(cfg, r.URL.Query()); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	flips := latest.Reevaluate(cfg)
	writeJSON(w, map[string]interface{}{
		"run_id":     latest.RunID,
		"fetched_at": latest.FetchedAt,
		"count":      len(flips),
		"data":       flips,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sched := s.sched()
	if sched == nil {
		writeError(w, 503, "scanner not ready")
		return
	}
	var req struct {
		Enabled     *bool `json:"enabled"`
		IntervalSec *int  `json:"interval_sec"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json")
		return
	}

	next := s.Config()
	if req.Enabled != nil {
		next.AutoRefresh = *req.Enabled
	}
	if req.IntervalSec != nil {
		next.RefreshSeconds = *req.IntervalSec
	}
	if err := next.Validate(); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	if err := s.applyConfig(next); err != nil {
		writeError(w, 500, "save config: "+err.Error())
		return
	}
	writeJSON(w, sched.Status())
}

// --- Scan History ---

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, 503, "history disabled")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, 400, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	writeJSON(w, s.db.GetHistory(limit))
}

func (s *Server) handleGetHistoryByID(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	record := s.db.GetHistoryByID(id)
	if record == nil {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, record)
}

func (s *Server) handleGetHistoryResults(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	record := s.db.GetHistoryByID(id)
	if record == nil {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, map[string]interface{}{
		"scan":    record,
		"results": s.db.GetFlipResults(id),
	})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	found, err := s.db.DeleteHistory(id)
	if err != nil {
		writeError(w, 500, "delete failed: "+err.Error())
		return
	}
	if !found {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.OlderThanDays = 7
	}
	if req.OlderThanDays < 1 {
		req.OlderThanDays = 7
	}
	count, err := s.db.ClearHistory(req.OlderThanDays)
	if err != nil {
		writeError(w, 500, "clear failed: "+err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{"status": "cleared", "deleted": count})
}
