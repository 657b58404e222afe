package dataflows

import (
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"github.com/torisan/KabutoGo/internal/models"
)

// FinanceAPI serves quotes and daily history through the public Yahoo
// Finance API. It accepts the same dotted symbols as the scraper
// (e.g. "7203.T") and is the backend for the "yahoo_quote" price source
// and the "yahoo" history provider.
type FinanceAPI struct {
	throttle time.Duration
}

func NewFinanceAPI(throttle time.Duration) *FinanceAPI {
	return &FinanceAPI{throttle: throttle}
}

// GetQuote returns the current regular-market price for one symbol.
func (f *FinanceAPI) GetQuote(symbol string) (*models.Quote, error) {
	time.Sleep(f.throttle)

	q, err := quote.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("get quote for %s: %w", symbol, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("no market price for %s", symbol)
	}
	return &models.Quote{Symbol: symbol, Price: q.RegularMarketPrice}, nil
}

// FetchDaily returns up to lookback days of daily bars, ascending by date.
func (f *FinanceAPI) FetchDaily(symbol string, lookbackDays int) ([]models.PriceBar, error) {
	time.Sleep(f.throttle)

	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	var bars []models.PriceBar
	for iter.Next() {
		bar := iter.Bar()
		open, _ := bar.Open.Float64()
		high, _ := bar.High.Float64()
		low, _ := bar.Low.Float64()
		closePx, _ := bar.Close.Float64()

		bars = append(bars, models.PriceBar{
			Date:   time.Unix(int64(bar.Timestamp), 0).Format("2006-01-02"),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("get history for %s: %w", symbol, err)
	}
	return bars, nil
}
