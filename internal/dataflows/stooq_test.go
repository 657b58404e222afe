package dataflows

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleCSV = "Date,Open,High,Low,Close,Volume\n" +
	"2025-06-02,1010,1030,1000,1020,120000\n" +
	"2025-05-30,990,1015,985,1010,100000\n"

func TestFetchDailySortsAscendingAndCaches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") != "7203.jp" {
			t.Errorf("symbol query = %q", r.URL.Query().Get("s"))
		}
		if r.URL.Query().Get("i") != "d" {
			t.Errorf("interval query = %q", r.URL.Query().Get("i"))
		}
		w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	p := NewStooqProvider(cacheDir, 0, time.Hour)
	p.SetBaseURL(server.URL)

	bars, err := p.FetchDaily("7203.JP")
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars", len(bars))
	}
	if bars[0].Date != "2025-05-30" || bars[1].Date != "2025-06-02" {
		t.Fatalf("bars not ascending: %v", bars)
	}
	if bars[1].Close != 1020 || bars[1].Volume != 120000 {
		t.Fatalf("bar fields wrong: %+v", bars[1])
	}

	if _, err := os.Stat(filepath.Join(cacheDir, "7203.jp.csv")); err != nil {
		t.Fatalf("payload not cached: %v", err)
	}
}

func TestFetchDailyRateLimitFallsBackToCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Exceeded the daily hits limit"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cacheDir, "7203.jp.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	p := NewStooqProvider(cacheDir, 0, time.Hour)
	p.SetBaseURL(server.URL)

	bars, err := p.FetchDaily("7203.JP")
	if err != nil {
		t.Fatalf("FetchDaily should use cache on rate limit: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars from cache", len(bars))
	}
}

func TestFetchDailyRateLimitAcceptsStaleCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Exceeded the daily hits limit"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	path := filepath.Join(cacheDir, "7203.jp.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("age cache: %v", err)
	}

	// Max age far below the cache file's age.
	p := NewStooqProvider(cacheDir, 0, time.Minute)
	p.SetBaseURL(server.URL)

	if _, err := p.FetchDaily("7203.JP"); err != nil {
		t.Fatalf("stale cache must be accepted under rate limit: %v", err)
	}
}

func TestFetchDailyRateLimitNoCacheErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Exceeded the daily hits limit"))
	}))
	defer server.Close()

	p := NewStooqProvider(t.TempDir(), 0, time.Hour)
	p.SetBaseURL(server.URL)

	if _, err := p.FetchDaily("7203.JP"); err == nil {
		t.Fatalf("expected error without cache")
	}
}

func TestFetchDailyDoesNotCacheGarbage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	p := NewStooqProvider(cacheDir, 0, time.Hour)
	p.SetBaseURL(server.URL)

	if _, err := p.FetchDaily("7203.JP"); err == nil {
		t.Fatalf("expected parse error for non-CSV payload")
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "7203.jp.csv")); !os.IsNotExist(err) {
		t.Fatalf("garbage payload was cached")
	}
}

func TestParseStooqCSVRejectsWrongColumns(t *testing.T) {
	if _, err := ParseStooqCSV("foo,bar\n1,2\n"); err == nil {
		t.Fatalf("expected error for unexpected columns")
	}
}

func TestLastCachedPrice(t *testing.T) {
	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cacheDir, "7203.jp.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	p := NewStooqProvider(cacheDir, 0, time.Hour)

	px, ok := p.LastCachedPrice("7203", "close")
	if !ok || px != 1020 {
		t.Fatalf("close = %v %v, want 1020 true", px, ok)
	}
	px, ok = p.LastCachedPrice("7203", "open")
	if !ok || px != 1010 {
		t.Fatalf("open = %v %v, want 1010 true", px, ok)
	}
	if _, ok := p.LastCachedPrice("9999", "close"); ok {
		t.Fatalf("uncached code must miss")
	}
}
