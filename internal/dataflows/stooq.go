package dataflows

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/torisan/KabutoGo/internal/models"
)

const stooqBaseURL = "https://stooq.com/q/d/l/"

// stooqRateLimitMarker appears in the plain-text body when the free daily
// request quota is exhausted.
const stooqRateLimitMarker = "Exceeded the daily hits limit"

// StooqProvider downloads daily OHLCV bars from Stooq with a fixed
// inter-request throttle and an on-disk CSV cache. When Stooq rate-limits,
// a fresh cache entry is preferred and a stale one is acceptable.
type StooqProvider struct {
	client      *resty.Client
	baseURL     string
	throttle    time.Duration
	cacheDir    string
	cacheMaxAge time.Duration
}

// NewStooqProvider creates a provider caching into cacheDir. An empty
// cacheDir disables caching.
func NewStooqProvider(cacheDir string, throttle, cacheMaxAge time.Duration) *StooqProvider {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; KabutoGo/1.0)")

	if cacheDir != "" {
		_ = os.MkdirAll(cacheDir, 0o755)
	}

	return &StooqProvider{
		client:      client,
		baseURL:     stooqBaseURL,
		throttle:    throttle,
		cacheDir:    cacheDir,
		cacheMaxAge: cacheMaxAge,
	}
}

// SetBaseURL overrides the endpoint, used by tests.
func (p *StooqProvider) SetBaseURL(url string) { p.baseURL = url }

func (p *StooqProvider) cachePath(symbol string) string {
	if p.cacheDir == "" {
		return ""
	}
	safe := strings.ReplaceAll(strings.ToLower(symbol), "/", "_")
	return filepath.Join(p.cacheDir, safe+".csv")
}

func (p *StooqProvider) readCache(symbol string, allowStale bool) (string, bool) {
	path := p.cachePath(symbol)
	if path == "" {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if !allowStale && time.Since(info.ModTime()) > p.cacheMaxAge {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (p *StooqProvider) writeCache(symbol, text string) {
	path := p.cachePath(symbol)
	if path == "" {
		return
	}
	_ = os.WriteFile(path, []byte(text), 0o644)
}

// FetchDaily downloads the full daily series for a symbol (e.g. "7203.JP")
// and returns it sorted ascending by date.
func (p *StooqProvider) FetchDaily(symbol string) ([]models.PriceBar, error) {
	symbol = strings.ToLower(symbol)

	time.Sleep(p.throttle)
	var text string
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := p.client.R().
			SetQueryParams(map[string]string{"s": symbol, "i": "d"}).
			Get(p.baseURL)
		if err != nil {
			return err
		}
		text = resp.String()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch stooq daily for %s: %w", symbol, err)
	}

	if strings.Contains(text, stooqRateLimitMarker) {
		cached, ok := p.readCache(symbol, false)
		if !ok {
			cached, ok = p.readCache(symbol, true)
		}
		if !ok {
			snippet := strings.TrimSpace(text)
			if len(snippet) > 400 {
				snippet = snippet[:400]
			}
			return nil, fmt.Errorf("stooq daily hits limit exceeded for %s and no cache available: %s", symbol, snippet)
		}
		text = cached
	} else if strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "date,open,high,low,close,volume") {
		// Only cache valid CSV payloads.
		p.writeCache(symbol, text)
	}

	bars, err := ParseStooqCSV(text)
	if err != nil {
		return nil, fmt.Errorf("parse stooq response for %s: %w", symbol, err)
	}
	return bars, nil
}

// ParseStooqCSV parses the Stooq daily CSV payload into ascending bars.
func ParseStooqCSV(text string) ([]models.PriceBar, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	header := make(map[string]int)
	for i, col := range records[0] {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("unexpected columns: %v", records[0])
		}
	}

	var bars []models.PriceBar
	for _, rec := range records[1:] {
		if len(rec) < len(header) {
			continue
		}
		open, _ := strconv.ParseFloat(rec[header["open"]], 64)
		high, _ := strconv.ParseFloat(rec[header["high"]], 64)
		low, _ := strconv.ParseFloat(rec[header["low"]], 64)
		closePx, _ := strconv.ParseFloat(rec[header["close"]], 64)
		volume, _ := strconv.ParseFloat(rec[header["volume"]], 64)

		bars = append(bars, models.PriceBar{
			Date:   strings.TrimSpace(rec[header["date"]]),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: int64(volume),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

// LastCachedPrice returns the most recent cached value of the given field
// ("close" or "open") for a 4-digit code, reading the cache even when stale.
func (p *StooqProvider) LastCachedPrice(code, field string) (float64, bool) {
	symbol := strings.ToLower(code) + ".jp"
	text, ok := p.readCache(symbol, true)
	if !ok {
		return 0, false
	}
	bars, err := ParseStooqCSV(text)
	if err != nil || len(bars) == 0 {
		return 0, false
	}
	last := bars[len(bars)-1]
	v := last.Close
	if strings.EqualFold(field, "open") {
		v = last.Open
	}
	if v <= 0 {
		return 0, false
	}
	return v, true
}
