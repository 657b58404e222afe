package report

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/torisan/KabutoGo/internal/models"
)

func samplePayload() *models.PicksPayload {
	return &models.PicksPayload{
		Asof: "2025-06-02",
		Picks: []models.Pick{
			{
				Code: "7203", Name: "Toyota", Score: 0.812,
				Close: 2500, Entry: 2540.5, Stop: 2410, TakeProfit: 2801.5,
				Reasons:          []string{"63D momentum +12.0%", "Close above EMA50"},
				BaseScore:        0.75,
				PriceActionScore: 0.9,
				PriceActionTags:  []string{"uptrend context", "near 20-day high"},
				AIScore:          0.8, AISummary: "Tight pullback near highs",
				AISetupTags: []string{"second entry"},
			},
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(samplePayload())

	for _, want := range []string{
		"# Nikkei 225 Swing Candidates — 2025-06-02",
		"| 1 | 7203 | Toyota |",
		"## 1. 7203 Toyota",
		"entry 2540.5 / stop 2410.0 / tp 2801.5",
		"uptrend context, near 20-day high",
		"AI review (0.80): Tight pullback near highs",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	md := RenderMarkdown(&models.PicksPayload{Asof: "2025-06-02"})
	if !strings.Contains(md, "No candidates passed the screen today.") {
		t.Fatalf("empty payload markdown:\n%s", md)
	}
}

func TestWriteReportAndLatestPointer(t *testing.T) {
	dir := t.TempDir()
	payload := samplePayload()

	path, err := WriteReport(dir, payload)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if filepath.Base(path) != "nikkei-scan-2025-06-02.md" {
		t.Fatalf("report path = %s", path)
	}

	dated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dated report: %v", err)
	}
	latest, err := os.ReadFile(filepath.Join(dir, "latest.md"))
	if err != nil {
		t.Fatalf("read latest report: %v", err)
	}
	if string(dated) != string(latest) {
		t.Fatalf("latest.md differs from dated report")
	}
}

func TestWritePicksRoundtrip(t *testing.T) {
	dir := t.TempDir()
	payload := samplePayload()

	path, err := WritePicks(dir, payload)
	if err != nil {
		t.Fatalf("WritePicks: %v", err)
	}
	if filepath.Base(path) != "nikkei-picks-2025-06-02.json" {
		t.Fatalf("picks path = %s", path)
	}

	got, err := LoadPicks(filepath.Join(dir, "latest_picks.json"))
	if err != nil {
		t.Fatalf("LoadPicks: %v", err)
	}
	if !reflect.DeepEqual(got, payload) {
		t.Fatalf("roundtrip mismatch:\n%+v\n%+v", got, payload)
	}
}

func TestLoadPicksMissingFile(t *testing.T) {
	if _, err := LoadPicks(filepath.Join(t.TempDir(), "latest_picks.json")); err == nil {
		t.Fatalf("expected error for missing picks file")
	}
}
