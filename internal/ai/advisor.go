// Package ai holds the optional LLM collaborators: pre-market trade plan
// review and per-candidate price-action review. Both are strictly
// best-effort; every failure path returns nil and the caller proceeds with
// no adjustment.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/torisan/KabutoGo/config"
	"github.com/torisan/KabutoGo/internal/models"
)

const requestTimeout = 35 * time.Second

// TradePlan is the re-ranked execution plan for a trading day.
type TradePlan struct {
	Codes     []string `json:"codes"`
	Rationale []string `json:"rationale"`
}

// PickReview is the per-candidate assessment: a 0..1 tradeability score,
// a short summary, and setup tags.
type PickReview struct {
	AIScore   float64  `json:"ai_score"`
	Summary   string   `json:"summary"`
	SetupTags []string `json:"setup_tags"`
	Context   string   `json:"context"`
}

// Advisor wraps a chat model. A nil *Advisor is valid and means "AI
// disabled"; all methods no-op on it.
type Advisor struct {
	model       einomodel.BaseChatModel
	reviewModel einomodel.BaseChatModel
}

// New builds an advisor for the configured provider. It returns (nil, nil)
// when no API key is configured, which disables AI adjustments without
// failing the run.
func New(ctx context.Context, cfg *config.Config) (*Advisor, error) {
	var tradeCM, reviewCM einomodel.BaseChatModel
	var err error

	switch cfg.LLMProvider {
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			return nil, nil
		}
		tradeCM, err = deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey: cfg.DeepSeekAPIKey,
			Model:  cfg.AITradeModel,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek model: %w", err)
		}
		reviewCM, err = deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey: cfg.DeepSeekAPIKey,
			Model:  cfg.AIReviewModel,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek review model: %w", err)
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		tradeCM, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AITradeModel,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		reviewCM, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIReviewModel,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai review model: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}

	return &Advisor{model: tradeCM, reviewModel: reviewCM}, nil
}

// SuggestTradePlan asks the model to reorder (and possibly prune) today's
// candidate list given current positions. Returns nil on any failure.
func (a *Advisor) SuggestTradePlan(ctx context.Context, asof string, candidates []models.Pick, positions map[string]models.Position, topK int) *TradePlan {
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	input, err := json.Marshal(map[string]interface{}{
		"asof":       asof,
		"top_k":      topK,
		"candidates": candidates,
		"positions":  positions,
	})
	if err != nil {
		return nil
	}

	system := "You are a pre-market execution reviewer for Japanese equities. " +
		"You receive yesterday's end-of-day candidate list (with score/entry/stop/tp) " +
		"and the current positions. Reorder the candidates for today's execution, " +
		"drop names you judge unsuitable, and give 3-6 short rationale bullet points. " +
		"Do not invent news; review only the given inputs. " +
		`Respond with JSON only: {"codes": ["....", ...], "rationale": ["...", ...]}. ` +
		"Codes are 4-digit strings."
	user := fmt.Sprintf("Trade date: %s, top_k=%d\nInput data (JSON):\n%s", asof, topK, input)

	resp, err := a.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		log.Printf("ai trade plan request failed: %v", err)
		return nil
	}

	var plan TradePlan
	if err := unmarshalModelJSON(resp.Content, &plan); err != nil {
		log.Printf("ai trade plan response unusable: %v", err)
		return nil
	}
	if len(plan.Codes) > topK {
		plan.Codes = plan.Codes[:topK]
	}
	for i, c := range plan.Codes {
		plan.Codes[i] = padCode(c)
	}
	if len(plan.Rationale) > 8 {
		plan.Rationale = plan.Rationale[:8]
	}
	if len(plan.Codes) == 0 {
		return nil
	}
	return &plan
}

// ReviewPick asks the model for a price-action read of one candidate from
// its recent daily bars. Returns nil on any failure.
func (a *Advisor) ReviewPick(ctx context.Context, code, name string, bars []models.PriceBar) *PickReview {
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	// Cost control: only the recent window is sent.
	if len(bars) > 120 {
		bars = bars[len(bars)-120:]
	}
	data, err := json.Marshal(bars)
	if err != nil {
		return nil
	}

	system := "You are a price-action analyst for daily equity bars. " +
		"Given OHLCV data, judge the market context (trend, channel or trading range), " +
		"name the most relevant recent price-action signals (second entries, wedges, " +
		"double tops/bottoms, breakouts or failed breakouts), and give a 0..1 " +
		"tradeability score. Do not invent news and do not use future information. " +
		`Respond with JSON only: {"ai_score": 0.0, "summary": "...", "setup_tags": ["..."], "context": "..."}`
	user := fmt.Sprintf("Instrument: %s %s\nDaily OHLCV ascending (JSON):\n%s", code, name, data)

	resp, err := a.reviewModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		log.Printf("ai review request for %s failed: %v", code, err)
		return nil
	}

	var review PickReview
	if err := unmarshalModelJSON(resp.Content, &review); err != nil {
		log.Printf("ai review response for %s unusable: %v", code, err)
		return nil
	}
	if review.AIScore < 0 {
		review.AIScore = 0
	}
	if review.AIScore > 1 {
		review.AIScore = 1
	}
	if len(review.SetupTags) > 6 {
		review.SetupTags = review.SetupTags[:6]
	}
	return &review
}

// unmarshalModelJSON parses a JSON object out of a model reply, tolerating
// markdown code fences and leading prose.
func unmarshalModelJSON(content string, v interface{}) error {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "{"); i >= 0 {
		if j := strings.LastIndex(content, "}"); j > i {
			content = content[i : j+1]
		}
	}
	if content == "" {
		return fmt.Errorf("empty model response")
	}
	return json.Unmarshal([]byte(content), v)
}

func padCode(code string) string {
	code = strings.TrimSpace(code)
	for len(code) < 4 {
		code = "0" + code
	}
	return code
}
