package trading

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/torisan/KabutoGo/config"
)

func testTradeConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ProjectDir:   dir,
		DataCacheDir: filepath.Join(dir, "cache"),
		ReportsDir:   filepath.Join(dir, "reports"),
		PaperDir:     filepath.Join(dir, "paper"),

		PaperEnabled: true,
		TopK:         5,
		LotSize:      100,
		InitialCash:  1_000_000,

		PriceSource:         "yahoo_jp",
		FallbackLocal:       true,
		LocalPriceField:     "close",
		FallbackPickClose:   true,
		YahooSymbolTemplate: "{code}.T",
		YahooTimeoutSec:     1,
	}
	return cfg
}

func TestTradeSessionRequiresScanOutput(t *testing.T) {
	session := NewTradeSession(testTradeConfig(t))
	if _, err := session.Execute(context.Background(), "2025-06-02", false); err == nil {
		t.Fatalf("expected error without a picks payload")
	}
}

func TestTradeSessionSkipsWhenPaperDisabled(t *testing.T) {
	cfg := testTradeConfig(t)
	cfg.PaperEnabled = false

	// No picks payload exists on disk; a disabled session must still
	// succeed as a no-op instead of failing on the missing file.
	session := NewTradeSession(cfg)
	res, err := session.Execute(context.Background(), "2025-06-02", false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Skipped {
		t.Fatalf("disabled paper trading must skip the round")
	}
	if len(res.Trades) != 0 {
		t.Fatalf("disabled round produced trades: %v", res.Trades)
	}
}

func TestBuildResolverRejectsUnknownPriceSource(t *testing.T) {
	cfg := testTradeConfig(t)
	cfg.PriceSource = "nyse"

	session := NewTradeSession(cfg)
	if _, err := session.buildResolver(nil); err == nil {
		t.Fatalf("expected error for unknown price source")
	}
}

func TestBuildResolverKnownSources(t *testing.T) {
	for _, src := range []string{"yahoo_jp", "yahoo_quote"} {
		cfg := testTradeConfig(t)
		cfg.PriceSource = src

		session := NewTradeSession(cfg)
		chain, err := session.buildResolver(map[string]float64{"7203": 1000})
		if err != nil {
			t.Fatalf("buildResolver(%s): %v", src, err)
		}
		if chain == nil {
			t.Fatalf("buildResolver(%s) returned nil chain", src)
		}
	}
}
