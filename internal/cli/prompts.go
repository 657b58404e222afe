package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/torisan/KabutoGo/config"
)

// runConfigInit walks through the common settings and writes them to a
// .env file in the project directory.
func runConfigInit(cfg *config.Config) error {
	answers := struct {
		UniverseKind string
		Provider     string
		TopN         string
		TopK         string
		InitialCash  string
		LotSize      string
		PriceSource  string
		LLMProvider  string
		APIKey       string
		AIReview     bool
		AITrade      bool
	}{}

	questions := []*survey.Question{
		{
			Name: "UniverseKind",
			Prompt: &survey.Select{
				Message: "Universe source:",
				Options: []string{"csv", "nikkei225"},
				Default: cfg.UniverseKind,
			},
		},
		{
			Name: "Provider",
			Prompt: &survey.Select{
				Message: "Daily history provider:",
				Options: []string{"stooq", "yahoo"},
				Default: cfg.HistoryProvider,
			},
		},
		{
			Name: "TopN",
			Prompt: &survey.Input{
				Message: "Candidates per scan (top N):",
				Default: strconv.Itoa(cfg.TopN),
			},
			Validate: positiveInt,
		},
		{
			Name: "TopK",
			Prompt: &survey.Input{
				Message: "Positions to hold (top K):",
				Default: strconv.Itoa(cfg.TopK),
			},
			Validate: positiveInt,
		},
		{
			Name: "InitialCash",
			Prompt: &survey.Input{
				Message: "Initial paper cash (JPY):",
				Default: strconv.FormatFloat(cfg.InitialCash, 'f', 0, 64),
			},
		},
		{
			Name: "LotSize",
			Prompt: &survey.Input{
				Message: "Lot size (shares):",
				Default: strconv.Itoa(cfg.LotSize),
			},
			Validate: positiveInt,
		},
		{
			Name: "PriceSource",
			Prompt: &survey.Select{
				Message: "Morning execution price source:",
				Options: []string{"yahoo_jp", "yahoo_quote"},
				Default: cfg.PriceSource,
			},
		},
		{
			Name: "LLMProvider",
			Prompt: &survey.Select{
				Message: "LLM provider:",
				Options: []string{"openai", "deepseek"},
				Default: cfg.LLMProvider,
			},
		},
		{
			Name: "APIKey",
			Prompt: &survey.Password{
				Message: "API key (empty disables AI features):",
			},
		},
		{
			Name: "AIReview",
			Prompt: &survey.Confirm{
				Message: "Enable AI candidate review during the scan?",
				Default: cfg.AIReviewEnabled,
			},
		},
		{
			Name: "AITrade",
			Prompt: &survey.Confirm{
				Message: "Enable AI trade-plan review before the rebalance?",
				Default: cfg.AITradeEnabled,
			},
		},
	}

	if err := survey.Ask(questions, &answers); err != nil {
		return fmt.Errorf("config init aborted: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UNIVERSE_KIND=%s\n", answers.UniverseKind)
	fmt.Fprintf(&b, "HISTORY_PROVIDER=%s\n", answers.Provider)
	fmt.Fprintf(&b, "TOP_N=%s\n", answers.TopN)
	fmt.Fprintf(&b, "TOP_K=%s\n", answers.TopK)
	fmt.Fprintf(&b, "INITIAL_CASH_JPY=%s\n", answers.InitialCash)
	fmt.Fprintf(&b, "LOT_SIZE=%s\n", answers.LotSize)
	fmt.Fprintf(&b, "PRICE_SOURCE=%s\n", answers.PriceSource)
	fmt.Fprintf(&b, "LLM_PROVIDER=%s\n", answers.LLMProvider)
	if answers.APIKey != "" {
		switch answers.LLMProvider {
		case "deepseek":
			fmt.Fprintf(&b, "DEEPSEEK_API_KEY=%s\n", answers.APIKey)
		default:
			fmt.Fprintf(&b, "OPENAI_API_KEY=%s\n", answers.APIKey)
		}
	}
	fmt.Fprintf(&b, "AI_REVIEW_ENABLED=%t\n", answers.AIReview)
	fmt.Fprintf(&b, "AI_TRADE_ENABLED=%t\n", answers.AITrade)

	path := filepath.Join(cfg.ProjectDir, ".env")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func positiveInt(val interface{}) error {
	str, ok := val.(string)
	if !ok {
		return fmt.Errorf("expected a number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive integer")
	}
	return nil
}
