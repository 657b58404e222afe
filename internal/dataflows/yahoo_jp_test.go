package dataflows

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newYahooTestClient(t *testing.T, body string, status int) *YahooJPQuote {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	y := NewYahooJPQuote(5*time.Second, 0)
	y.SetBaseURL(server.URL + "/")
	return y
}

func TestFetchIntradayRegularMarketPrice(t *testing.T) {
	body := `<script>{"regularMarketPrice":{"raw":2534.5,"fmt":"2,534.5"}}</script>`
	y := newYahooTestClient(t, body, 200)

	q, err := y.FetchIntraday("7203.T")
	if err != nil {
		t.Fatalf("FetchIntraday: %v", err)
	}
	if q.Price != 2534.5 {
		t.Fatalf("price = %v, want 2534.5", q.Price)
	}
	if q.Symbol != "7203.T" {
		t.Fatalf("symbol = %q", q.Symbol)
	}
}

func TestFetchIntradayJSONLDPrice(t *testing.T) {
	body := `<script type="application/ld+json">{"@type":"Product","price":"1,234.5"}</script>`
	y := newYahooTestClient(t, body, 200)

	q, err := y.FetchIntraday("7203.T")
	if err != nil {
		t.Fatalf("FetchIntraday: %v", err)
	}
	if q.Price != 1234.5 {
		t.Fatalf("price = %v, want 1234.5 (comma stripped)", q.Price)
	}
}

func TestFetchIntradayOGMetaPrice(t *testing.T) {
	body := `<meta property="og:price:amount" content="987.6">`
	y := newYahooTestClient(t, body, 200)

	q, err := y.FetchIntraday("7203.T")
	if err != nil {
		t.Fatalf("FetchIntraday: %v", err)
	}
	if q.Price != 987.6 {
		t.Fatalf("price = %v, want 987.6", q.Price)
	}
}

func TestFetchIntradayElementTextFallback(t *testing.T) {
	y := newYahooTestClient(t, `<span>2,345</span>`, 200)

	q, err := y.FetchIntraday("7203.T")
	if err != nil {
		t.Fatalf("FetchIntraday: %v", err)
	}
	if q.Price != 2345 {
		t.Fatalf("price = %v, want 2345", q.Price)
	}
}

func TestFetchIntradayNoPrice(t *testing.T) {
	y := newYahooTestClient(t, "<html><body>nothing here</body></html>", 200)
	if _, err := y.FetchIntraday("7203.T"); err == nil {
		t.Fatalf("expected error when no pattern matches")
	}
}

func TestFetchIntradayHTTPError(t *testing.T) {
	y := newYahooTestClient(t, "slow down", 429)
	if _, err := y.FetchIntraday("7203.T"); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}
