// Package report renders the end-of-day scan results as markdown and JSON
// artifacts under the reports directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/torisan/KabutoGo/internal/models"
)

// RenderMarkdown builds the daily screening report.
func RenderMarkdown(payload *models.PicksPayload) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Nikkei 225 Swing Candidates — %s\n\n", payload.Asof)
	b.WriteString("How to read: picks are ranked by blended score (momentum + trend + " +
		"liquidity, minus a volatility penalty, blended with price action). Entry is a " +
		"stop-buy above the 20-day high; nothing here is investment advice.\n\n")
	if len(payload.Picks) == 0 {
		b.WriteString("No candidates passed the screen today.\n")
		return b.String()
	}

	b.WriteString("| # | Code | Name | Score | Close | Entry | Stop | TP |\n")
	b.WriteString("|---|------|------|-------|-------|-------|------|----|\n")
	for i, p := range payload.Picks {
		fmt.Fprintf(&b, "| %d | %s | %s | %.3f | %.1f | %.1f | %.1f | %.1f |\n",
			i+1, p.Code, p.Name, p.Score, p.Close, p.Entry, p.Stop, p.TakeProfit)
	}
	b.WriteString("\n")

	for i, p := range payload.Picks {
		fmt.Fprintf(&b, "## %d. %s %s\n\n", i+1, p.Code, p.Name)
		fmt.Fprintf(&b, "- Score: %.3f (base %.3f, price action %.3f)\n", p.Score, p.BaseScore, p.PriceActionScore)
		fmt.Fprintf(&b, "- Levels: entry %.1f / stop %.1f / tp %.1f\n", p.Entry, p.Stop, p.TakeProfit)
		if len(p.Reasons) > 0 {
			fmt.Fprintf(&b, "- Factors: %s\n", strings.Join(p.Reasons, "; "))
		}
		if len(p.PriceActionTags) > 0 {
			fmt.Fprintf(&b, "- Price action: %s\n", strings.Join(p.PriceActionTags, ", "))
		}
		if p.AISummary != "" {
			fmt.Fprintf(&b, "- AI review (%.2f): %s\n", p.AIScore, p.AISummary)
			if len(p.AISetupTags) > 0 {
				fmt.Fprintf(&b, "- AI setups: %s\n", strings.Join(p.AISetupTags, ", "))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	b.WriteString("Screen: 63/126-day momentum, EMA trend filter, 20-day volatility penalty, price-action blend.\n")
	b.WriteString("Levels: entry = 20-day high + 0.1 ATR, stop = entry - 2.5 ATR, tp at 2R.\n")
	return b.String()
}

// WriteReport writes the dated markdown report and refreshes latest.md.
func WriteReport(dir string, payload *models.PicksPayload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	content := RenderMarkdown(payload)
	path := filepath.Join(dir, fmt.Sprintf("nikkei-scan-%s.md", payload.Asof))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "latest.md"), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write latest report: %w", err)
	}
	return path, nil
}

// WritePicks writes the dated picks payload and refreshes
// latest_picks.json, which the trade command consumes next morning.
func WritePicks(dir string, payload *models.PicksPayload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal picks: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("nikkei-picks-%s.json", payload.Asof))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write picks: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "latest_picks.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("write latest picks: %w", err)
	}
	return path, nil
}

// LoadPicks reads a picks payload written by WritePicks.
func LoadPicks(path string) (*models.PicksPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read picks %s: %w", path, err)
	}
	var payload models.PicksPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse picks %s: %w", path, err)
	}
	return &payload, nil
}
