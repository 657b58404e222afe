package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TopN != 10 || cfg.TopK != 5 {
		t.Fatalf("TopN/TopK = %d/%d", cfg.TopN, cfg.TopK)
	}
	if cfg.LotSize != 100 {
		t.Fatalf("LotSize = %d", cfg.LotSize)
	}
	if cfg.HistoryProvider != "stooq" {
		t.Fatalf("HistoryProvider = %q", cfg.HistoryProvider)
	}
	if cfg.PriceActionWeight != 0.35 {
		t.Fatalf("PriceActionWeight = %v", cfg.PriceActionWeight)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOP_N", "7")
	t.Setenv("LOT_SIZE", "1")
	t.Setenv("PRICE_SOURCE", "yahoo_quote")
	t.Setenv("ABOVE_EMA_200", "true")
	t.Setenv("INITIAL_CASH_JPY", "2500000")

	cfg := DefaultConfig()
	if cfg.TopN != 7 {
		t.Fatalf("TopN = %d, want 7", cfg.TopN)
	}
	if cfg.LotSize != 1 {
		t.Fatalf("LotSize = %d, want 1", cfg.LotSize)
	}
	if cfg.PriceSource != "yahoo_quote" {
		t.Fatalf("PriceSource = %q", cfg.PriceSource)
	}
	if !cfg.AboveEMA200 {
		t.Fatalf("AboveEMA200 not overridden")
	}
	if cfg.InitialCash != 2_500_000 {
		t.Fatalf("InitialCash = %v", cfg.InitialCash)
	}
}

func TestEnvOverridesScoreWeightsAndLevels(t *testing.T) {
	t.Setenv("W_MOMENTUM_63D", "0.5")
	t.Setenv("W_MOMENTUM_126D", "0.25")
	t.Setenv("W_TREND_EMA", "0.15")
	t.Setenv("W_VOLATILITY_PENALTY", "0.05")
	t.Setenv("ENTRY_KIND", "close")
	t.Setenv("ENTRY_BUFFER_ATR", "0.2")
	t.Setenv("STOP_ATR_MULT", "3")
	t.Setenv("TAKE_PROFIT_RR", "1.5")

	cfg := DefaultConfig()
	if cfg.WeightMomentum63 != 0.5 {
		t.Fatalf("WeightMomentum63 = %v, want 0.5", cfg.WeightMomentum63)
	}
	if cfg.WeightMomentum126 != 0.25 {
		t.Fatalf("WeightMomentum126 = %v, want 0.25", cfg.WeightMomentum126)
	}
	if cfg.WeightTrendEMA != 0.15 {
		t.Fatalf("WeightTrendEMA = %v, want 0.15", cfg.WeightTrendEMA)
	}
	if cfg.WeightVolPenalty != 0.05 {
		t.Fatalf("WeightVolPenalty = %v, want 0.05", cfg.WeightVolPenalty)
	}
	if cfg.EntryKind != "close" {
		t.Fatalf("EntryKind = %q", cfg.EntryKind)
	}
	if cfg.EntryBufferATR != 0.2 {
		t.Fatalf("EntryBufferATR = %v, want 0.2", cfg.EntryBufferATR)
	}
	if cfg.StopATRMult != 3 {
		t.Fatalf("StopATRMult = %v, want 3", cfg.StopATRMult)
	}
	if cfg.TakeProfitRR != 1.5 {
		t.Fatalf("TakeProfitRR = %v, want 1.5", cfg.TakeProfitRR)
	}
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("TOP_N", "lots")

	cfg := DefaultConfig()
	if cfg.TopN != 10 {
		t.Fatalf("TopN = %d, want default 10", cfg.TopN)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.UniverseKind = "sp500" },
		func(c *Config) { c.HistoryProvider = "bloomberg" },
		func(c *Config) { c.TopN = 0 },
		func(c *Config) { c.TopK = -1 },
		func(c *Config) { c.LotSize = 0 },
		func(c *Config) { c.PriceActionWeight = 1.5 },
		func(c *Config) { c.AIScoreWeight = -0.1 },
		func(c *Config) { c.LLMProvider = "claude" },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ProjectDir = dir
	cfg.DataCacheDir = filepath.Join(dir, "cache")
	cfg.ReportsDir = filepath.Join(dir, "reports")
	cfg.PaperDir = filepath.Join(dir, "paper")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.DataCacheDir, cfg.ReportsDir, cfg.PaperDir} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s not created: %v", p, err)
		}
	}
}
