package ai

import (
	"context"
	"testing"

	"github.com/torisan/KabutoGo/config"
)

func TestUnmarshalModelJSONPlain(t *testing.T) {
	var plan TradePlan
	err := unmarshalModelJSON(`{"codes":["7203"],"rationale":["momentum intact"]}`, &plan)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(plan.Codes) != 1 || plan.Codes[0] != "7203" {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestUnmarshalModelJSONStripsFencesAndProse(t *testing.T) {
	content := "Here is the plan:\n```json\n{\"codes\": [\"6758\"], \"rationale\": []}\n```"
	var plan TradePlan
	if err := unmarshalModelJSON(content, &plan); err != nil {
		t.Fatalf("unmarshal fenced: %v", err)
	}
	if len(plan.Codes) != 1 || plan.Codes[0] != "6758" {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestUnmarshalModelJSONRejectsNonJSON(t *testing.T) {
	var plan TradePlan
	if err := unmarshalModelJSON("I cannot help with that.", &plan); err == nil {
		t.Fatalf("expected error for non-JSON reply")
	}
}

func TestPadCode(t *testing.T) {
	if got := padCode(" 203 "); got != "0203" {
		t.Fatalf("padCode = %q, want 0203", got)
	}
	if got := padCode("7203"); got != "7203" {
		t.Fatalf("padCode = %q, want 7203", got)
	}
}

func TestNewWithoutAPIKeyDisables(t *testing.T) {
	cfg := &config.Config{LLMProvider: "openai"}
	advisor, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if advisor != nil {
		t.Fatalf("advisor should be nil without a key")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := &config.Config{LLMProvider: "claude"}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNilAdvisorNoops(t *testing.T) {
	var a *Advisor
	if plan := a.SuggestTradePlan(context.Background(), "2025-06-02", nil, nil, 5); plan != nil {
		t.Fatalf("nil advisor returned a plan")
	}
	if review := a.ReviewPick(context.Background(), "7203", "Toyota", nil); review != nil {
		t.Fatalf("nil advisor returned a review")
	}
}
