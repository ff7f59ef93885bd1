package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"polysignal/internal/client/polymarket/clob"
	polymarketgamma "polysignal/internal/client/polymarket/gamma"
	"polysignal/internal/config"
	"polysignal/internal/dashboard"
	"polysignal/internal/embed"
	"polysignal/internal/export"
	"polysignal/internal/feed"
	"polysignal/internal/index"
	"polysignal/internal/judge"
	"polysignal/internal/logger"
	"polysignal/internal/match"
	"polysignal/internal/models"
	"polysignal/internal/paper"
	"polysignal/internal/store"
)

const usage = `usage: polysignal <command>

commands:
  markets     fetch active markets from Gamma and refresh the cache
              (--cached prints the cache without fetching)
  signals     pull all configured RSS feeds into the headline cache
  match       run the two-stage match pipeline over recent headlines
  trade       run matching and log paper trades for actionable matches
  check       re-price open trades and apply exit conditions
  dashboard   print the pipeline and performance overview
  export      write markets, signals, matches and trades as CSV

configuration is read from $PS_CONFIG (default config/config.yaml).
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfgPath := os.Getenv("PS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("PS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg, log)

	if err := app.run(ctx, command, os.Args[2:]); err != nil {
		log.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}

// app holds the wired pipeline. Every command shares the same stores and
// clients; only the entrypoint differs.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	files  store.Files
	gamma  *polymarketgamma.Client
	books  *clob.Client
	engine *match.Engine
	trader *paper.Trader
}

func newApp(cfg config.Config, log *zap.Logger) *app {
	files := store.NewFiles(cfg.Data.Dir)

	gammaHTTP := &http.Client{Timeout: cfg.Gamma.Timeout}
	gammaClient := polymarketgamma.NewClient(gammaHTTP, cfg.Gamma.BaseURL, cfg.Gamma.PageLimit, cfg.Gamma.PageRatePerSec)

	clobHTTP := &http.Client{Timeout: cfg.ClobREST.Timeout}
	clobClient := clob.NewClient(clobHTTP, cfg.ClobREST.BaseURL)

	embedHTTP := &http.Client{Timeout: cfg.Embed.Timeout}
	embedder := embed.NewClient(embedHTTP, cfg.Embed.BaseURL, cfg.Embed.Model, os.Getenv(cfg.Embed.APIKeyEnv))
	similarity := index.New(embedder, files.Vectors, cfg.Embed.Model, log)

	engine := &match.Engine{
		Markets:             files.Markets,
		Headlines:           files.Headlines,
		Index:               similarity,
		Matches:             files.Matches,
		Logger:              log,
		SimilarityThreshold: cfg.Matching.SimilarityThreshold,
		RecentHeadlines:     cfg.Matching.RecentHeadlines,
	}
	if key := os.Getenv(cfg.Judge.APIKeyEnv); key != "" {
		judgeHTTP := &http.Client{Timeout: cfg.Judge.Timeout}
		engine.Judge = judge.NewClient(judgeHTTP, cfg.Judge.BaseURL, cfg.Judge.Model, key, cfg.Judge.MaxTokens)
	} else {
		log.Warn("no judge API key configured, matches will carry no judgment",
			zap.String("env", cfg.Judge.APIKeyEnv),
		)
	}

	trader := paper.NewTrader(engine, files.Markets, files.Trades, clobClient, cfg.Trading, log)

	return &app{
		cfg:    cfg,
		log:    log,
		files:  files,
		gamma:  gammaClient,
		books:  clobClient,
		engine: engine,
		trader: trader,
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "markets":
		return a.runMarkets(ctx, args)
	case "signals":
		return a.runSignals(ctx)
	case "match":
		_, err := a.engine.Run(ctx, nil)
		return err
	case "trade":
		return a.runTrade(ctx)
	case "check":
		return a.runCheck(ctx)
	case "dashboard":
		return a.runDashboard(ctx)
	case "export":
		return a.runExport(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) runMarkets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("markets", flag.ContinueOnError)
	cached := fs.Bool("cached", false, "print the cached market set without fetching")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var markets []models.Market
	if *cached {
		var err error
		markets, err = a.files.Markets.Load()
		if err != nil {
			return err
		}
	} else {
		var err error
		markets, err = a.gamma.FetchAllActiveMarkets(ctx)
		if err != nil {
			return fmt.Errorf("fetch markets: %w", err)
		}
		if err := a.files.Markets.Save(markets); err != nil {
			return fmt.Errorf("save markets: %w", err)
		}
		a.log.Info("market cache refreshed", zap.Int("markets", len(markets)))
	}

	fmt.Printf("\n  %d active markets cached. Top by volume:\n\n", len(markets))
	for _, m := range models.TopByVolume(markets, 10) {
		fmt.Printf("  %-12s vol=%-14s %s\n", m.ID, m.Volume.StringFixed(0), m.Question)
	}
	fmt.Println()
	return nil
}

func (a *app) runSignals(ctx context.Context) error {
	feedHTTP := &http.Client{Timeout: a.cfg.Feeds.Timeout}
	collector := &feed.Collector{
		Sources: feed.RSSSources(a.cfg.Feeds.Sources, feedHTTP),
		Store:   a.files.Headlines,
		Logger:  a.log,
		Limiter: rate.NewLimiter(rate.Limit(a.cfg.Feeds.FetchRatePerSec), 1),
	}
	added, err := collector.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %d new headlines ingested.\n\n", added)
	return nil
}

func (a *app) runTrade(ctx context.Context) error {
	trades, skipped, err := a.trader.LogTrades(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %d paper trades logged, %d skipped for liquidity.\n\n", len(trades), len(skipped))
	for _, t := range trades {
		fmt.Printf("  %s  %-3s @ $%s  %s\n", t.TradeID, t.Direction, t.EntryPrice.StringFixed(4), t.MarketTitle)
	}
	if len(trades) > 0 {
		fmt.Println()
	}
	return nil
}

func (a *app) runCheck(ctx context.Context) error {
	statuses, err := a.trader.CheckTrades(ctx)
	if err != nil {
		return err
	}
	open, closed := 0, 0
	for _, s := range statuses {
		if s.Trade.Closed() {
			closed++
		} else {
			open++
		}
	}
	fmt.Printf("\n  %d trades checked: %d open, %d closed.\n\n", len(statuses), open, closed)
	for _, s := range statuses {
		state := "OPEN"
		if s.Trade.Closed() {
			state = "CLOSED " + s.Trade.ExitReason
		}
		fmt.Printf("  %s  %-20s pnl=$%s (%s%%)  %s\n",
			s.Trade.TradeID, state, s.PnLUSD.StringFixed(2), s.PnLPct.StringFixed(2), s.Trade.MarketTitle)
	}
	if len(statuses) > 0 {
		fmt.Println()
	}
	return nil
}

func (a *app) runDashboard(ctx context.Context) error {
	d := &dashboard.Dashboard{
		Markets:             a.files.Markets,
		Headlines:           a.files.Headlines,
		Matches:             a.files.Matches,
		Trades:              a.files.Trades,
		Checker:             a.trader,
		ConfidenceThreshold: a.cfg.Trading.ConfidenceThreshold,
	}
	stats, err := d.Collect(ctx)
	if err != nil {
		return err
	}
	dashboard.Render(os.Stdout, stats)
	return nil
}

func (a *app) runExport(ctx context.Context) error {
	exporter := &export.Exporter{
		Markets:             a.files.Markets,
		Headlines:           a.files.Headlines,
		Matches:             a.files.Matches,
		Trades:              a.files.Trades,
		Checker:             a.trader,
		Logger:              a.log,
		ConfidenceThreshold: a.cfg.Trading.ConfidenceThreshold,
	}
	paths, err := exporter.Run(ctx, a.cfg.Data.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("\n  Done. %d CSVs written to %s/\n\n", len(paths), a.cfg.Data.Dir)
	return nil
}
