package dataflows

import (
	"log"
	"strings"
)

// PriceSource resolves current prices for a set of codes. Partial results
// are expected and valid: codes a source cannot price are simply omitted.
type PriceSource interface {
	Name() string
	Resolve(codes []string) map[string]float64
}

// Chain tries sources in order; the first source to price a code wins.
type Chain struct {
	sources []PriceSource
}

func NewChain(sources ...PriceSource) *Chain {
	return &Chain{sources: sources}
}

// Resolve prices as many of the codes as possible. Codes no source can
// price are absent from the result, never errored.
func (c *Chain) Resolve(codes []string) map[string]float64 {
	out := make(map[string]float64, len(codes))
	missing := codes

	for _, src := range c.sources {
		if len(missing) == 0 {
			break
		}
		got := src.Resolve(missing)
		var still []string
		for _, code := range missing {
			if px, ok := got[code]; ok && px > 0 {
				out[code] = px
			} else {
				still = append(still, code)
			}
		}
		if len(got) > 0 {
			log.Printf("price source %s resolved %d/%d codes", src.Name(), len(missing)-len(still), len(missing))
		}
		missing = still
	}
	return out
}

// LiveYahooJPSource prices codes by scraping the Yahoo Japan quote pages.
type LiveYahooJPSource struct {
	Client         *YahooJPQuote
	SymbolTemplate string
	UseForumPage   bool
}

func (s *LiveYahooJPSource) Name() string { return "yahoo_jp" }

func (s *LiveYahooJPSource) Resolve(codes []string) map[string]float64 {
	out := make(map[string]float64)
	for _, code := range codes {
		symbol := strings.ReplaceAll(s.SymbolTemplate, "{code}", code)
		if s.UseForumPage {
			// The forum page renders the price server-side and is less
			// aggressively rate limited.
			symbol += "/forum"
		}
		q, err := s.Client.FetchIntraday(symbol)
		if err != nil {
			continue
		}
		out[code] = q.Price
	}
	return out
}

// QuoteAPISource prices codes through the Yahoo Finance quote API.
type QuoteAPISource struct {
	Client         *FinanceAPI
	SymbolTemplate string
}

func (s *QuoteAPISource) Name() string { return "yahoo_quote" }

func (s *QuoteAPISource) Resolve(codes []string) map[string]float64 {
	out := make(map[string]float64)
	for _, code := range codes {
		symbol := strings.ReplaceAll(s.SymbolTemplate, "{code}", code)
		q, err := s.Client.GetQuote(symbol)
		if err != nil {
			continue
		}
		out[code] = q.Price
	}
	return out
}

// LocalCacheSource prices codes from the last bar in the local Stooq cache,
// accepting stale entries.
type LocalCacheSource struct {
	Provider *StooqProvider
	Field    string // close | open
}

func (s *LocalCacheSource) Name() string { return "local_cache" }

func (s *LocalCacheSource) Resolve(codes []string) map[string]float64 {
	out := make(map[string]float64)
	for _, code := range codes {
		if px, ok := s.Provider.LastCachedPrice(code, s.Field); ok {
			out[code] = px
		}
	}
	return out
}

// PickCloseSource prices codes from the signal-time closes embedded in the
// day's picks payload. Last resort in the chain.
type PickCloseSource struct {
	Closes map[string]float64
}

func (s *PickCloseSource) Name() string { return "pick_close" }

func (s *PickCloseSource) Resolve(codes []string) map[string]float64 {
	out := make(map[string]float64)
	for _, code := range codes {
		if px, ok := s.Closes[code]; ok && px > 0 {
			out[code] = px
		}
	}
	return out
}
