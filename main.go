package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"osrs-flipper/internal/api"
	"osrs-flipper/internal/config"
	"osrs-flipper/internal/db"
	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/logger"
	"osrs-flipper/internal/refresh"
	"osrs-flipper/internal/report"
	"osrs-flipper/internal/wiki"
)

var version = "dev"

type options struct {
	port     int
	text     bool
	dbPath   string
	baseURL  string
	ua       string
	bank     int64
	slots    int
	n        int
	minVol   int64
	minProf  int64
	aggr     float64
	haRune   int64
	haFloor  bool
	noTax    bool
	allItems bool
	auto     bool
	interval int
}

func main() {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	var o options
	flag.IntVar(&o.port, "port", envInt("FLIPPER_PORT", 13370), "HTTP server port")
	flag.BoolVar(&o.text, "text", false, "print the top flips once and exit")
	flag.StringVar(&o.dbPath, "db", os.Getenv("FLIPPER_DB"), "SQLite database path (default ./flipper.db)")
	flag.StringVar(&o.baseURL, "api", envOrDefault("FLIPPER_API", wiki.DefaultBaseURL), "prices API base URL")
	flag.StringVar(&o.ua, "ua", "", "User-Agent identification string")
	flag.Int64Var(&o.bank, "bank", 0, "gp allocated to flipping")
	flag.IntVar(&o.slots, "slots", 0, "concurrent flips to budget for")
	flag.IntVar(&o.n, "n", 0, "how many flips to show")
	flag.Int64Var(&o.minVol, "min-vol", 0, "minimum daily volume")
	flag.Int64Var(&o.minProf, "min-profit-unit", 0, "minimum profit per unit after tax")
	flag.Float64Var(&o.aggr, "aggr", 0, "price aggressiveness in [0,1]")
	flag.Int64Var(&o.haRune, "ha-rune-cost", 0, "nature rune cost for the high-alch floor")
	flag.BoolVar(&o.haFloor, "require-ha-floor", false, "only keep flips whose buy is at or below the high-alch floor")
	flag.BoolVar(&o.noTax, "no-tax", false, "ignore GE tax")
	flag.BoolVar(&o.allItems, "all-items", false, "include free-to-play items")
	flag.BoolVar(&o.auto, "auto", false, "enable auto refresh")
	flag.IntVar(&o.interval, "interval", 0, "auto refresh interval in seconds")
	flag.Parse()

	logger.Banner(version)

	database, err := db.Open(o.dbPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}

	cfg := database.LoadConfig()
	if ua := os.Getenv("FLIPPER_UA"); ua != "" {
		cfg.UserAgent = ua
	}
	applyFlags(cfg, &o)
	if err := cfg.Validate(); err != nil {
		logger.Error("Config", err.Error())
		database.Close()
		os.Exit(2)
	}

	client := wiki.NewClient(o.baseURL, cfg.UserAgent)
	scanner := engine.NewScanner(client)

	var code int
	if o.text {
		code = runText(scanner, database, cfg)
	} else {
		code = runServer(&o, cfg, scanner, database)
	}
	// os.Exit skips deferred calls.
	database.Close()
	os.Exit(code)
}

// applyFlags overrides cfg with the flags given on the command line only.
func applyFlags(cfg *config.Config, o *options) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ua":
			cfg.UserAgent = o.ua
		case "bank":
			cfg.Bank = o.bank
		case "slots":
			cfg.Slots = o.slots
		case "n":
			cfg.ResultCount = o.n
		case "min-vol":
			cfg.MinVolume24h = o.minVol
		case "min-profit-unit":
			cfg.MinProfitUnit = o.minProf
		case "aggr":
			cfg.Aggressiveness = o.aggr
		case "ha-rune-cost":
			cfg.HARuneCost = o.haRune
		case "require-ha-floor":
			cfg.RequireHAFloor = o.haFloor
		case "no-tax":
			cfg.NoTax = o.noTax
		case "all-items":
			cfg.MembersOnly = !o.allItems
		case "auto":
			cfg.AutoRefresh = o.auto
		case "interval":
			cfg.RefreshSeconds = o.interval
		}
	})
}

func runText(scanner *engine.Scanner, database *db.DB, cfg *config.Config) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := scanner.Scan(ctx, cfg, func(msg string) { logger.Info("Scan", msg) })
	if err != nil {
		logger.Error("Scan", err.Error())
		return 1
	}
	if _, err := database.RecordScan(res, cfg); err != nil {
		logger.Warn("DB", fmt.Sprintf("Scan not recorded: %v", err))
	}

	logger.Section("Summary")
	logger.Stats("Items", res.ItemCount)
	logger.Stats("Not members", res.Drops.NotMembers)
	logger.Stats("No usable data", res.Drops.DataUnavailable)
	logger.Stats("Spread too thin", res.Drops.InvalidSpread)
	logger.Stats("Unaffordable", res.Drops.ZeroQuantity)
	logger.Stats("Duration (ms)", res.DurationMs)

	if err := report.WriteText(os.Stdout, res.Candidates, cfg); err != nil {
		logger.Error("Output", err.Error())
		return 1
	}
	return 0
}

func runServer(o *options, cfg *config.Config, scanner *engine.Scanner, database *db.DB) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := api.NewServer(cfg, database)
	sched := refresh.NewScheduler(scanner, srv.Config)
	srv.SetScheduler(sched)
	sched.SetAuto(cfg.AutoRefresh, cfg.RefreshInterval())
	go sched.Run(ctx)

	// First pass in the background so the API answers immediately.
	go func() {
		if _, err := sched.Trigger(ctx, nil); err != nil && !errors.Is(err, refresh.ErrSuperseded) {
			logger.Warn("Scan", fmt.Sprintf("Initial pass failed: %v", err))
		}
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", o.port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Server(addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		return 1
	}
	logger.Info("Server", "Stopped")
	return 0
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}
