package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Gamma.BaseURL != "https://gamma-api.polymarket.com" {
		t.Fatalf("gamma base url = %q", cfg.Gamma.BaseURL)
	}
	if cfg.ClobREST.BaseURL != "https://clob.polymarket.com" {
		t.Fatalf("clob base url = %q", cfg.ClobREST.BaseURL)
	}
	if cfg.Matching.SimilarityThreshold != 0.65 {
		t.Fatalf("similarity threshold = %f", cfg.Matching.SimilarityThreshold)
	}
	if cfg.Matching.RecentHeadlines != 20 {
		t.Fatalf("recent headlines = %d", cfg.Matching.RecentHeadlines)
	}
	if cfg.Trading.PositionSizeUSD != 25 {
		t.Fatalf("position size = %f", cfg.Trading.PositionSizeUSD)
	}
	if cfg.Trading.ConfidenceThreshold != 0.6 {
		t.Fatalf("confidence threshold = %f", cfg.Trading.ConfidenceThreshold)
	}
	if cfg.Trading.SpreadLimit != 0.05 {
		t.Fatalf("spread limit = %f", cfg.Trading.SpreadLimit)
	}
	if cfg.Trading.StopLossPct != 5 || cfg.Trading.TakeProfitPct != 3 {
		t.Fatalf("exit pcts = %f / %f", cfg.Trading.StopLossPct, cfg.Trading.TakeProfitPct)
	}
	if cfg.Trading.MinHoldForTP != 15*time.Minute {
		t.Fatalf("min hold = %s", cfg.Trading.MinHoldForTP)
	}
	if cfg.Trading.MaxHoldTime != 2*time.Hour {
		t.Fatalf("max hold = %s", cfg.Trading.MaxHoldTime)
	}
	if cfg.Data.Dir != "data" {
		t.Fatalf("data dir = %q", cfg.Data.Dir)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
trading:
  position_size_usd: 100
  max_hold_time: 4h
matching:
  similarity_threshold: 0.8
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trading.PositionSizeUSD != 100 {
		t.Fatalf("position size = %f", cfg.Trading.PositionSizeUSD)
	}
	if cfg.Trading.MaxHoldTime != 4*time.Hour {
		t.Fatalf("max hold = %s", cfg.Trading.MaxHoldTime)
	}
	if cfg.Matching.SimilarityThreshold != 0.8 {
		t.Fatalf("similarity threshold = %f", cfg.Matching.SimilarityThreshold)
	}
	// Untouched keys keep defaults.
	if cfg.Trading.StopLossPct != 5 {
		t.Fatalf("stop loss = %f", cfg.Trading.StopLossPct)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PS_TRADING_POSITION_SIZE_USD", "50")
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trading.PositionSizeUSD != 50 {
		t.Fatalf("position size = %f, want env override 50", cfg.Trading.PositionSizeUSD)
	}
}
