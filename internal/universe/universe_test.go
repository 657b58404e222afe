package universe

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestPadCode(t *testing.T) {
	cases := map[string]string{
		"7203":  "7203",
		"203":   "0203",
		"3":     "0003",
		" 7203": "7203",
	}
	for in, want := range cases {
		if got := PadCode(in); got != want {
			t.Fatalf("PadCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStooqSymbol(t *testing.T) {
	if got := (Ticker{Code: "7203"}).StooqSymbol(); got != "7203.JP" {
		t.Fatalf("StooqSymbol = %q", got)
	}
}

func TestLoadCSVWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.csv")
	content := "code,name\n7203,Toyota\n203,Short\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	want := []Ticker{{Code: "7203", Name: "Toyota"}, {Code: "0203", Name: "Short"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLoadCSVWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.csv")
	if err := os.WriteFile(path, []byte("7203,Toyota\n6758,Sony\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(got) != 2 || got[0].Code != "7203" || got[1].Name != "Sony" {
		t.Fatalf("got %v", got)
	}
}

func TestLoadCSVEmptyFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.csv")
	if err := os.WriteFile(path, []byte("code,name\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCSV(path); err == nil {
		t.Fatalf("expected error for header-only file")
	}
}

func TestWriteCSVRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.csv")
	in := []Ticker{{Code: "7203", Name: "Toyota"}, {Code: "6758", Name: "Sony"}}

	if err := WriteCSV(path, in); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("roundtrip mismatch: %v vs %v", in, out)
	}
}

func TestLoadUnknownKind(t *testing.T) {
	if _, err := Load("nasdaq", ""); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestLoadCSVKindRequiresPath(t *testing.T) {
	if _, err := Load("csv", ""); err == nil {
		t.Fatalf("expected error for missing csv path")
	}
}

func TestExtractFromTablesPicksLargestTable(t *testing.T) {
	var rows strings.Builder
	for i := 0; i < 5; i++ {
		rows.WriteString("<tr><td>800" + string(rune('0'+i)) + "</td><td>Name</td></tr>")
	}
	html := `<html><body>
		<table><tr><td>1234</td><td>Lonely</td></tr></table>
		<table>` + rows.String() + `</table>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := extractFromTables(doc)
	if len(got) != 5 {
		t.Fatalf("got %d tickers, want 5: %v", len(got), got)
	}
	if got[0].Code != "8000" || got[0].Name != "Name" {
		t.Fatalf("first ticker = %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Code < got[i-1].Code {
			t.Fatalf("tickers not sorted: %v", got)
		}
	}
}

func TestExtractFromTablesDeduplicatesCodes(t *testing.T) {
	html := `<table>
		<tr><td>7203</td><td>Toyota</td></tr>
		<tr><td>7203</td><td>Toyota again</td></tr>
	</table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := extractFromTables(doc); len(got) != 1 {
		t.Fatalf("got %v, want one deduped ticker", got)
	}
}
