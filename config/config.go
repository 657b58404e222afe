package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	ReportsDir   string `json:"reports_dir"`
	PaperDir     string `json:"paper_dir"`

	// Universe
	UniverseKind string `json:"universe_kind"` // nikkei225 | csv
	UniverseCSV  string `json:"universe_csv"`

	// History data
	HistoryProvider  string  `json:"history_provider"` // stooq | yahoo
	LookbackDays     int     `json:"lookback_days"`
	StooqThrottleSec float64 `json:"stooq_throttle_sec"`
	StooqCacheMaxAge int     `json:"stooq_cache_max_age_sec"`

	// Ranking filters
	MinAvgValueTraded float64 `json:"min_avg_value_traded_jpy"`
	MinPrice          float64 `json:"min_price_jpy"`
	AboveEMA50        bool    `json:"above_ema_50"`
	AboveEMA200       bool    `json:"above_ema_200"`
	TopN              int     `json:"top_n"`

	// Score weights
	WeightMomentum63  float64 `json:"w_momentum_63d"`
	WeightMomentum126 float64 `json:"w_momentum_126d"`
	WeightTrendEMA    float64 `json:"w_trend_ema"`
	WeightVolPenalty  float64 `json:"w_volatility_penalty"`
	PriceActionWeight float64 `json:"price_action_weight"`

	// Suggested levels
	EntryKind      string  `json:"entry_kind"` // breakout | close
	EntryBufferATR float64 `json:"entry_buffer_atr"`
	StopKind       string  `json:"stop_kind"` // atr | pct
	StopATRMult    float64 `json:"stop_atr_mult"`
	TakeProfitKind string  `json:"take_profit_kind"` // rr | pct
	TakeProfitRR   float64 `json:"take_profit_rr"`

	// Paper trading
	PaperEnabled          bool    `json:"paper_enabled"`
	TopK                  int     `json:"top_k"`
	InitialCash           float64 `json:"initial_cash_jpy"`
	LotSize               int     `json:"lot_size"`
	BuyMinLotIfAffordable bool    `json:"buy_min_lot_if_affordable"`
	PriceSource           string  `json:"price_source"` // yahoo_jp | yahoo_quote
	FallbackLocal         bool    `json:"fallback_local"`
	LocalPriceField       string  `json:"local_price_field"` // close | open
	FallbackPickClose     bool    `json:"fallback_pick_close"`

	// Yahoo JP quote scraping
	YahooSymbolTemplate string  `json:"yahoo_symbol_template"`
	YahooTimeoutSec     float64 `json:"yahoo_timeout_sec"`
	YahooThrottleSec    float64 `json:"yahoo_throttle_sec"`
	UseForumPage        bool    `json:"use_forum_page"`

	// AI collaborators (best-effort; disabled without an API key)
	LLMProvider     string  `json:"llm_provider"` // openai | deepseek
	OpenAIAPIKey    string  `json:"openai_api_key"`
	DeepSeekAPIKey  string  `json:"deepseek_api_key"`
	AITradeEnabled  bool    `json:"ai_trade_enabled"`
	AIReviewEnabled bool    `json:"ai_review_enabled"`
	AITradeModel    string  `json:"ai_trade_model"`
	AIReviewModel   string  `json:"ai_review_model"`
	AIScoreWeight   float64 `json:"ai_score_weight"`
	AIReviewTopN    int     `json:"ai_review_top_n"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataCacheDir: filepath.Join(currentDir, "data_cache"),
		ReportsDir:   filepath.Join(currentDir, "reports"),
		PaperDir:     filepath.Join(currentDir, "paper"),

		UniverseKind: "csv",
		UniverseCSV:  filepath.Join(currentDir, "universe.csv"),

		HistoryProvider:  "stooq",
		LookbackDays:     260,
		StooqThrottleSec: 0.2,
		StooqCacheMaxAge: 604800,

		MinAvgValueTraded: 100_000_000,
		MinPrice:          200,
		AboveEMA50:        true,
		AboveEMA200:       false,
		TopN:              10,

		WeightMomentum63:  0.4,
		WeightMomentum126: 0.3,
		WeightTrendEMA:    0.2,
		WeightVolPenalty:  0.1,
		PriceActionWeight: 0.35,

		EntryKind:      "breakout",
		EntryBufferATR: 0.1,
		StopKind:       "atr",
		StopATRMult:    2.5,
		TakeProfitKind: "rr",
		TakeProfitRR:   2.0,

		PaperEnabled:          true,
		TopK:                  5,
		InitialCash:           1_000_000,
		LotSize:               100,
		BuyMinLotIfAffordable: true,
		PriceSource:           "yahoo_jp",
		FallbackLocal:         true,
		LocalPriceField:       "close",
		FallbackPickClose:     true,

		YahooSymbolTemplate: "{code}.T",
		YahooTimeoutSec:     15,
		YahooThrottleSec:    0.3,
		UseForumPage:        true,

		LLMProvider:     "openai",
		AITradeEnabled:  false,
		AIReviewEnabled: false,
		AITradeModel:    "gpt-4.1-mini",
		AIReviewModel:   "gpt-4.1-mini",
		AIScoreWeight:   0.2,
		AIReviewTopN:    20,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("REPORTS_DIR"); val != "" {
		c.ReportsDir = val
	}
	if val := os.Getenv("PAPER_DIR"); val != "" {
		c.PaperDir = val
	}

	if val := os.Getenv("UNIVERSE_KIND"); val != "" {
		c.UniverseKind = val
	}
	if val := os.Getenv("UNIVERSE_CSV"); val != "" {
		c.UniverseCSV = val
	}

	if val := os.Getenv("HISTORY_PROVIDER"); val != "" {
		c.HistoryProvider = val
	}
	if val := os.Getenv("LOOKBACK_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LookbackDays = v
		}
	}
	if val := os.Getenv("STOOQ_THROTTLE_SEC"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.StooqThrottleSec = v
		}
	}
	if val := os.Getenv("STOOQ_CACHE_MAX_AGE_SEC"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.StooqCacheMaxAge = v
		}
	}

	if val := os.Getenv("MIN_AVG_VALUE_TRADED_JPY"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.MinAvgValueTraded = v
		}
	}
	if val := os.Getenv("MIN_PRICE_JPY"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.MinPrice = v
		}
	}
	if val := os.Getenv("ABOVE_EMA_50"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.AboveEMA50 = v
		}
	}
	if val := os.Getenv("ABOVE_EMA_200"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.AboveEMA200 = v
		}
	}
	if val := os.Getenv("TOP_N"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.TopN = v
		}
	}

	if val := os.Getenv("W_MOMENTUM_63D"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.WeightMomentum63 = v
		}
	}
	if val := os.Getenv("W_MOMENTUM_126D"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.WeightMomentum126 = v
		}
	}
	if val := os.Getenv("W_TREND_EMA"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.WeightTrendEMA = v
		}
	}
	if val := os.Getenv("W_VOLATILITY_PENALTY"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.WeightVolPenalty = v
		}
	}
	if val := os.Getenv("PRICE_ACTION_WEIGHT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.PriceActionWeight = v
		}
	}

	if val := os.Getenv("ENTRY_KIND"); val != "" {
		c.EntryKind = val
	}
	if val := os.Getenv("ENTRY_BUFFER_ATR"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.EntryBufferATR = v
		}
	}
	if val := os.Getenv("STOP_KIND"); val != "" {
		c.StopKind = val
	}
	if val := os.Getenv("STOP_ATR_MULT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.StopATRMult = v
		}
	}
	if val := os.Getenv("TAKE_PROFIT_KIND"); val != "" {
		c.TakeProfitKind = val
	}
	if val := os.Getenv("TAKE_PROFIT_RR"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.TakeProfitRR = v
		}
	}

	if val := os.Getenv("PAPER_ENABLED"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.PaperEnabled = v
		}
	}
	if val := os.Getenv("TOP_K"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.TopK = v
		}
	}
	if val := os.Getenv("INITIAL_CASH_JPY"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.InitialCash = v
		}
	}
	if val := os.Getenv("LOT_SIZE"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LotSize = v
		}
	}
	if val := os.Getenv("BUY_MIN_LOT_IF_AFFORDABLE"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.BuyMinLotIfAffordable = v
		}
	}
	if val := os.Getenv("PRICE_SOURCE"); val != "" {
		c.PriceSource = val
	}
	if val := os.Getenv("FALLBACK_LOCAL"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.FallbackLocal = v
		}
	}
	if val := os.Getenv("LOCAL_PRICE_FIELD"); val != "" {
		c.LocalPriceField = val
	}
	if val := os.Getenv("FALLBACK_PICK_CLOSE"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.FallbackPickClose = v
		}
	}

	if val := os.Getenv("YAHOO_SYMBOL_TEMPLATE"); val != "" {
		c.YahooSymbolTemplate = val
	}
	if val := os.Getenv("YAHOO_TIMEOUT_SEC"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.YahooTimeoutSec = v
		}
	}
	if val := os.Getenv("YAHOO_THROTTLE_SEC"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.YahooThrottleSec = v
		}
	}
	if val := os.Getenv("USE_FORUM_PAGE"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.UseForumPage = v
		}
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("AI_TRADE_ENABLED"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.AITradeEnabled = v
		}
	}
	if val := os.Getenv("AI_REVIEW_ENABLED"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.AIReviewEnabled = v
		}
	}
	if val := os.Getenv("AI_TRADE_MODEL"); val != "" {
		c.AITradeModel = val
	}
	if val := os.Getenv("AI_REVIEW_MODEL"); val != "" {
		c.AIReviewModel = val
	}
	if val := os.Getenv("AI_SCORE_WEIGHT"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.AIScoreWeight = v
		}
	}
	if val := os.Getenv("AI_REVIEW_TOP_N"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.AIReviewTopN = v
		}
	}
}

// Validate rejects option values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.UniverseKind {
	case "nikkei225", "csv":
	default:
		return fmt.Errorf("unknown universe kind: %s", c.UniverseKind)
	}
	switch c.HistoryProvider {
	case "stooq", "yahoo":
	default:
		return fmt.Errorf("unknown history provider: %s", c.HistoryProvider)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.LotSize <= 0 {
		return fmt.Errorf("lot_size must be positive, got %d", c.LotSize)
	}
	if c.PriceActionWeight < 0 || c.PriceActionWeight > 1 {
		return fmt.Errorf("price_action_weight must be in [0,1], got %v", c.PriceActionWeight)
	}
	if c.AIScoreWeight < 0 || c.AIScoreWeight > 1 {
		return fmt.Errorf("ai_score_weight must be in [0,1], got %v", c.AIScoreWeight)
	}
	switch c.LLMProvider {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataCacheDir, c.ReportsDir, c.PaperDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
