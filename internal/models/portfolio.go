package models

// Trade sides as written to the trade ledger.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
	SideHold = "HOLD"
)

// Position is an open holding. Qty is a multiple of the configured lot size,
// except positions carried over from before lot sizing was enforced.
type Position struct {
	Qty     int     `json:"qty"`
	AvgCost float64 `json:"avg_cost"`
}

// PortfolioState is the durable snapshot of the paper portfolio. It is
// mutated at most once per trading day; LastTradeDate is the idempotency key
// (empty until the first completed round).
type PortfolioState struct {
	Cash          float64             `json:"cash"`
	Positions     map[string]Position `json:"positions"`
	LastTradeDate string              `json:"last_trade_date"`
}

// TradeRecord is one append-only trade ledger row. A HOLD row with Qty 0 is
// written when a round produces no trades so the ledger stays date-complete.
type TradeRecord struct {
	TS       string  `json:"ts"`
	Date     string  `json:"date"`
	Code     string  `json:"code"`
	Side     string  `json:"side"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"price"`
	Notional float64 `json:"notional"`
	Reason   string  `json:"reason"`
}

// EquitySnapshot is one append-only equity ledger row.
// Total = Cash + HoldingsValue at the end of the round.
type EquitySnapshot struct {
	Date          string  `json:"date"`
	Cash          float64 `json:"cash"`
	HoldingsValue float64 `json:"holdings_value"`
	Total         float64 `json:"total"`
}
