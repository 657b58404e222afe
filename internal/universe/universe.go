// Package universe maintains the list of instruments eligible for screening.
package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Ticker is one listed instrument, identified by its 4-digit code.
type Ticker struct {
	Code string
	Name string
}

// StooqSymbol returns the Stooq daily-data symbol for this ticker.
func (t Ticker) StooqSymbol() string {
	return t.Code + ".JP"
}

// PadCode zero-pads a code to 4 digits, matching the payload convention.
func PadCode(code string) string {
	code = strings.TrimSpace(code)
	for len(code) < 4 {
		code = "0" + code
	}
	return code
}

// LoadCSV reads a universe file with columns code,name (name optional).
func LoadCSV(path string) ([]Ticker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read universe csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("universe csv %s is empty", path)
	}

	var out []Ticker
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		// Header row is optional.
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}
		code := PadCode(rec[0])
		if code == "0000" || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		name := ""
		if len(rec) > 1 {
			name = strings.TrimSpace(rec[1])
		}
		out = append(out, Ticker{Code: code, Name: name})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("universe csv %s has no codes", path)
	}
	return out, nil
}

// WriteCSV saves a universe list with a code,name header.
func WriteCSV(path string, tickers []Ticker) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create universe csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"code", "name"}); err != nil {
		return err
	}
	for _, t := range tickers {
		if err := w.Write([]string{t.Code, t.Name}); err != nil {
			return err
		}
	}
	return nil
}

// Load resolves a universe by kind: "csv" reads the given path, "nikkei225"
// scrapes public constituent lists.
func Load(kind, csvPath string) ([]Ticker, error) {
	switch strings.ToLower(kind) {
	case "csv":
		if csvPath == "" {
			return nil, fmt.Errorf("csv path required when universe kind is csv")
		}
		return LoadCSV(csvPath)
	case "nikkei225":
		return FetchNikkei225()
	default:
		return nil, fmt.Errorf("unknown universe kind: %s", kind)
	}
}
