package universe

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// The index is proprietary, so there is no official free API. These public
// sources are tried in order; the table with the most 4-digit codes wins.
var constituentSources = []string{
	"https://stooq.com/q/i/?s=^nkx",
	"https://ja.wikipedia.org/wiki/%E6%97%A5%E7%B5%8C225",
	"https://en.wikipedia.org/wiki/Nikkei_225",
}

// minConstituents guards against picking up a partial or unrelated table.
const minConstituents = 200

var codePattern = regexp.MustCompile(`\b(\d{4})\b`)

// FetchNikkei225 pulls the current constituent list from public sources.
// All sources failing is an error; the caller keeps its existing list.
func FetchNikkei225() ([]Ticker, error) {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; KabutoGo/1.0)")

	var lastErr error
	for _, url := range constituentSources {
		tickers, err := fetchConstituentsFrom(client, url)
		if err != nil {
			log.Printf("universe source %s failed: %v", url, err)
			lastErr = err
			continue
		}
		return tickers, nil
	}
	return nil, fmt.Errorf("all constituent sources failed: %w", lastErr)
}

func fetchConstituentsFrom(client *resty.Client, url string) ([]Ticker, error) {
	resp, err := client.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode(), url)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	best := extractFromTables(doc)
	if len(best) < minConstituents {
		return nil, fmt.Errorf("found only %d codes at %s", len(best), url)
	}
	return best, nil
}

// extractFromTables picks the table most likely holding the constituent
// list: the one yielding the most unique 4-digit stock codes.
func extractFromTables(doc *goquery.Document) []Ticker {
	var best []Ticker

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		seen := make(map[string]bool)
		var tickers []Ticker

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			var code, name string
			cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
				text := strings.TrimSpace(cell.Text())
				if code == "" {
					if m := codePattern.FindStringSubmatch(text); m != nil && len(text) <= 12 {
						code = m[1]
						return true
					}
					return true
				}
				if name == "" && text != "" && !codePattern.MatchString(text) {
					name = text
					return false
				}
				return i < 4
			})
			if code == "" || seen[code] {
				return
			}
			seen[code] = true
			tickers = append(tickers, Ticker{Code: code, Name: name})
		})

		if len(tickers) > len(best) {
			best = tickers
		}
	})

	sort.Slice(best, func(i, j int) bool { return best[i].Code < best[j].Code })
	return best
}
