// Package trading wires the data providers, ranking strategy, AI
// collaborators and the paper engine into the two daily runs: the evening
// scan and the morning trade.
package trading

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/torisan/KabutoGo/config"
	"github.com/torisan/KabutoGo/internal/ai"
	"github.com/torisan/KabutoGo/internal/dataflows"
	"github.com/torisan/KabutoGo/internal/models"
	"github.com/torisan/KabutoGo/internal/paper"
	"github.com/torisan/KabutoGo/internal/report"
	"github.com/torisan/KabutoGo/internal/strategy"
	"github.com/torisan/KabutoGo/internal/universe"
)

// ScanSession runs the end-of-day screen: fetch history for the whole
// universe, rank, optionally AI-review, then write the picks payload and
// markdown report.
type ScanSession struct {
	cfg *config.Config
}

func NewScanSession(cfg *config.Config) *ScanSession {
	return &ScanSession{cfg: cfg}
}

// Execute runs the scan. asofOverride pins the payload date when set;
// limitUniverse truncates the universe, useful for smoke runs.
func (s *ScanSession) Execute(ctx context.Context, asofOverride string, limitUniverse int) (*models.PicksPayload, error) {
	cfg := s.cfg
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	tickers, err := universe.Load(cfg.UniverseKind, cfg.UniverseCSV)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if limitUniverse > 0 && limitUniverse < len(tickers) {
		tickers = tickers[:limitUniverse]
	}
	log.Printf("universe loaded: %d tickers", len(tickers))

	history, asof, err := fetchHistory(ctx, cfg, tickers)
	if err != nil {
		return nil, err
	}
	if asofOverride != "" {
		asof = asofOverride
	}

	picks := strategy.Rank(tickers, history, cfg)
	log.Printf("ranked %d candidates as of %s", len(picks), asof)

	if cfg.AIReviewEnabled {
		picks = s.reviewPicks(ctx, picks, history)
	}

	payload := &models.PicksPayload{Asof: asof, Picks: picks}
	if _, err := report.WritePicks(cfg.ReportsDir, payload); err != nil {
		return nil, err
	}
	path, err := report.WriteReport(cfg.ReportsDir, payload)
	if err != nil {
		return nil, err
	}
	log.Printf("report written: %s", path)
	return payload, nil
}

// reviewPicks runs the per-candidate AI review over the top slice and
// re-blends scores. Any AI failure leaves the ranked list unchanged.
func (s *ScanSession) reviewPicks(ctx context.Context, picks []models.Pick, history map[string][]models.PriceBar) []models.Pick {
	advisor, err := ai.New(ctx, s.cfg)
	if err != nil {
		log.Printf("ai advisor unavailable: %v", err)
		return picks
	}
	if advisor == nil {
		log.Printf("ai review enabled but no API key configured, skipping")
		return picks
	}

	n := s.cfg.AIReviewTopN
	if n > len(picks) {
		n = len(picks)
	}
	reviewed := 0
	for i := 0; i < n; i++ {
		p := &picks[i]
		rv := advisor.ReviewPick(ctx, p.Code, p.Name, history[p.Code])
		if rv == nil {
			continue
		}
		p.AIScore = rv.AIScore
		p.AISummary = rv.Summary
		p.AISetupTags = rv.SetupTags
		reviewed++
	}
	log.Printf("ai review: %d/%d candidates reviewed", reviewed, n)
	return strategy.BlendExternalScores(picks, s.cfg.AIScoreWeight, s.cfg.TopN)
}

// fetchHistory downloads daily bars for every ticker with the configured
// provider. The as-of date is the latest bar date seen across the universe.
func fetchHistory(ctx context.Context, cfg *config.Config, tickers []universe.Ticker) (map[string][]models.PriceBar, string, error) {
	history := make(map[string][]models.PriceBar, len(tickers))
	asof := ""

	stooq := dataflows.NewStooqProvider(
		cfg.DataCacheDir,
		time.Duration(cfg.StooqThrottleSec*float64(time.Second)),
		time.Duration(cfg.StooqCacheMaxAge)*time.Second,
	)
	var yahoo *dataflows.FinanceAPI
	if cfg.HistoryProvider == "yahoo" {
		yahoo = dataflows.NewFinanceAPI(time.Duration(cfg.YahooThrottleSec * float64(time.Second)))
	}

	for i, t := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		var bars []models.PriceBar
		var err error
		switch cfg.HistoryProvider {
		case "yahoo":
			symbol := strings.ReplaceAll(cfg.YahooSymbolTemplate, "{code}", t.Code)
			bars, err = yahoo.FetchDaily(symbol, cfg.LookbackDays)
		default:
			bars, err = stooq.FetchDaily(t.StooqSymbol())
		}
		if err != nil {
			log.Printf("history fetch failed for %s: %v", t.Code, err)
			continue
		}
		if len(bars) > cfg.LookbackDays {
			bars = bars[len(bars)-cfg.LookbackDays:]
		}
		history[t.Code] = bars
		if len(bars) > 0 && bars[len(bars)-1].Date > asof {
			asof = bars[len(bars)-1].Date
		}
		if (i+1)%25 == 0 {
			log.Printf("history: %d/%d fetched", i+1, len(tickers))
		}
	}
	if asof == "" {
		asof = paper.TradeDate()
	}
	return history, asof, nil
}

// WarmCache pre-downloads daily history so the evening scan runs from a
// hot cache. offset and batchSize select a universe slice for spreading the
// warmup across multiple invocations; batchSize 0 means the rest.
func WarmCache(ctx context.Context, cfg *config.Config, offset, batchSize int) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	tickers, err := universe.Load(cfg.UniverseKind, cfg.UniverseCSV)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	if offset >= len(tickers) {
		return fmt.Errorf("offset %d beyond universe of %d", offset, len(tickers))
	}
	if offset > 0 {
		tickers = tickers[offset:]
	}
	if batchSize > 0 && batchSize < len(tickers) {
		tickers = tickers[:batchSize]
	}
	history, asof, err := fetchHistory(ctx, cfg, tickers)
	if err != nil {
		return err
	}
	log.Printf("cache warmed: %d/%d tickers, latest bar %s", len(history), len(tickers), asof)
	return nil
}

// TradeSession runs the morning paper rebalance against the latest scan
// output.
type TradeSession struct {
	cfg *config.Config
}

func NewTradeSession(cfg *config.Config) *TradeSession {
	return &TradeSession{cfg: cfg}
}

// Execute rebalances the paper portfolio for the given trade date (today in
// exchange time when empty). force reruns a date that was already traded.
func (t *TradeSession) Execute(ctx context.Context, date string, force bool) (*paper.Result, error) {
	cfg := t.cfg
	if date == "" {
		date = paper.TradeDate()
	}
	if !cfg.PaperEnabled {
		log.Printf("paper trading disabled, nothing to do")
		return &paper.Result{Date: date, Skipped: true}, nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	payload, err := report.LoadPicks(filepath.Join(cfg.ReportsDir, "latest_picks.json"))
	if err != nil {
		return nil, fmt.Errorf("no scan output to trade on: %w", err)
	}

	target := make([]string, 0, cfg.TopK)
	pickClose := make(map[string]float64, len(payload.Picks))
	for _, p := range payload.Picks {
		pickClose[p.Code] = p.Close
		if len(target) < cfg.TopK {
			target = append(target, p.Code)
		}
	}

	store := paper.NewStore(filepath.Join(cfg.PaperDir, "portfolio.json"))
	if cfg.AITradeEnabled {
		target = t.adjustTarget(ctx, date, payload, store, target)
	}

	tradesPath := filepath.Join(cfg.PaperDir, "trades.csv")
	if err := paper.MigrateTrades(tradesPath); err != nil {
		return nil, err
	}

	resolver, err := t.buildResolver(pickClose)
	if err != nil {
		return nil, err
	}

	ledger := paper.NewLedger(tradesPath, filepath.Join(cfg.PaperDir, "equity.csv"))
	engine := paper.NewEngine(store, ledger, resolver,
		cfg.TopK, cfg.LotSize, cfg.InitialCash, cfg.BuyMinLotIfAffordable)
	return engine.Run(date, target, force)
}

// adjustTarget lets the AI reviewer reorder or prune the morning target
// list. The baseline list survives any AI failure, and the AI can only
// pick from yesterday's candidates.
func (t *TradeSession) adjustTarget(ctx context.Context, date string, payload *models.PicksPayload, store *paper.Store, target []string) []string {
	advisor, err := ai.New(ctx, t.cfg)
	if err != nil || advisor == nil {
		if err != nil {
			log.Printf("ai advisor unavailable: %v", err)
		}
		return target
	}
	state, err := store.Load(t.cfg.InitialCash)
	if err != nil {
		log.Printf("skip ai trade plan, state unreadable: %v", err)
		return target
	}

	plan := advisor.SuggestTradePlan(ctx, payload.Asof, payload.Picks, state.Positions, t.cfg.TopK)
	if plan == nil {
		log.Printf("ai trade plan unavailable, using ranked order")
		return target
	}

	candidates := make(map[string]bool, len(payload.Picks))
	for _, p := range payload.Picks {
		candidates[p.Code] = true
	}
	adjusted := make([]string, 0, t.cfg.TopK)
	for _, code := range plan.Codes {
		if candidates[code] && len(adjusted) < t.cfg.TopK {
			adjusted = append(adjusted, code)
		}
	}
	if len(adjusted) == 0 {
		log.Printf("ai trade plan named no known candidates, using ranked order")
		return target
	}

	planPath := filepath.Join(t.cfg.PaperDir, fmt.Sprintf("ai-trade-%s.json", date))
	if err := dataflows.SaveDataToFile(plan, planPath); err != nil {
		log.Printf("could not persist ai trade plan: %v", err)
	}
	log.Printf("ai trade plan applied: %s", strings.Join(adjusted, ", "))
	return adjusted
}

// buildResolver assembles the execution price chain: the configured live
// source first, then the optional local-cache and pick-close fallbacks.
func (t *TradeSession) buildResolver(pickClose map[string]float64) (*dataflows.Chain, error) {
	cfg := t.cfg
	var sources []dataflows.PriceSource

	switch cfg.PriceSource {
	case "yahoo_jp":
		sources = append(sources, &dataflows.LiveYahooJPSource{
			Client: dataflows.NewYahooJPQuote(
				time.Duration(cfg.YahooTimeoutSec*float64(time.Second)),
				time.Duration(cfg.YahooThrottleSec*float64(time.Second)),
			),
			SymbolTemplate: cfg.YahooSymbolTemplate,
			UseForumPage:   cfg.UseForumPage,
		})
	case "yahoo_quote":
		sources = append(sources, &dataflows.QuoteAPISource{
			Client:         dataflows.NewFinanceAPI(time.Duration(cfg.YahooThrottleSec * float64(time.Second))),
			SymbolTemplate: cfg.YahooSymbolTemplate,
		})
	default:
		return nil, fmt.Errorf("unknown price source: %s", cfg.PriceSource)
	}

	if cfg.FallbackLocal {
		sources = append(sources, &dataflows.LocalCacheSource{
			Provider: dataflows.NewStooqProvider(
				cfg.DataCacheDir,
				time.Duration(cfg.StooqThrottleSec*float64(time.Second)),
				time.Duration(cfg.StooqCacheMaxAge)*time.Second,
			),
			Field: cfg.LocalPriceField,
		})
	}
	if cfg.FallbackPickClose {
		sources = append(sources, &dataflows.PickCloseSource{Closes: pickClose})
	}
	return dataflows.NewChain(sources...), nil
}
