package dataflows

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/torisan/KabutoGo/internal/models"
)

// YahooJPQuote scrapes intraday prices from the Yahoo Japan quote pages.
// Best-effort: the HTML changes often, so several extraction patterns are
// tried in order.
type YahooJPQuote struct {
	client   *resty.Client
	baseURL  string
	throttle time.Duration
}

var yahooPricePatterns = []*regexp.Regexp{
	// regularMarketPrice embedded in page JSON
	regexp.MustCompile(`regularMarketPrice"\s*:\s*\{[^}]*"raw"\s*:\s*([0-9.]+)`),
	// price in JSON-LD
	regexp.MustCompile(`"price"\s*:\s*"([0-9,.]+)"`),
	// og:price:amount meta
	regexp.MustCompile(`property="og:price:amount"\s+content="([0-9,.]+)"`),
	// last resort: first short number in element text, avoids volumes
	regexp.MustCompile(`>\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]+)?)\s*<`),
}

func NewYahooJPQuote(timeout, throttle time.Duration) *YahooJPQuote {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeaders(map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/122.0.0.0 Safari/537.36",
		"Accept-Language": "ja,en-US;q=0.8,en;q=0.7",
	})
	return &YahooJPQuote{
		client:   client,
		baseURL:  "https://finance.yahoo.co.jp/quote/",
		throttle: throttle,
	}
}

// SetBaseURL overrides the endpoint, used by tests.
func (y *YahooJPQuote) SetBaseURL(url string) { y.baseURL = url }

// FetchIntraday scrapes the current price for a symbol such as "7203.T"
// or "7203.T/forum".
func (y *YahooJPQuote) FetchIntraday(symbol string) (*models.Quote, error) {
	time.Sleep(y.throttle)

	resp, err := y.client.R().Get(y.baseURL + symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch yahoo quote %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP %d for yahoo quote %s", resp.StatusCode(), symbol)
	}

	html := resp.String()
	for _, pattern := range yahooPricePatterns {
		m := pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || price <= 0 {
			continue
		}
		return &models.Quote{Symbol: symbol, Price: price}, nil
	}

	return nil, fmt.Errorf("could not parse price from yahoo page for %s", symbol)
}
