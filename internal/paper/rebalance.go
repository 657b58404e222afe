package paper

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/torisan/KabutoGo/internal/models"
)

// PriceResolver resolves execution prices for a set of codes. Codes it
// cannot price are simply absent from the returned map.
type PriceResolver interface {
	Resolve(codes []string) map[string]float64
}

// Result summarizes one rebalance round.
type Result struct {
	Date          string
	Skipped       bool
	Trades        []models.TradeRecord
	Unpriced      []string
	Cash          float64
	HoldingsValue float64
	Total         float64
	Positions     map[string]models.Position
}

// Engine runs the daily target-portfolio rebalance. Each run is a full
// round: sell names that left the target list, then size the survivors
// and new entries to equal weights in whole lots.
type Engine struct {
	store    *Store
	ledger   *Ledger
	resolver PriceResolver

	topK                  int
	lotSize               int
	initialCash           float64
	buyMinLotIfAffordable bool

	nowFn func() time.Time
}

func NewEngine(store *Store, ledger *Ledger, resolver PriceResolver, topK, lotSize int, initialCash float64, buyMinLotIfAffordable bool) *Engine {
	return &Engine{
		store:                 store,
		ledger:                ledger,
		resolver:              resolver,
		topK:                  topK,
		lotSize:               lotSize,
		initialCash:           initialCash,
		buyMinLotIfAffordable: buyMinLotIfAffordable,
		nowFn:                 func() time.Time { return time.Now().In(JST) },
	}
}

// Run executes one rebalance round for the given trade date. target is the
// ranked list of codes to hold; pickClose supplies reference closes used by
// the price resolver chain's final fallback. A round that already ran for
// this date is skipped unless force is set.
func (e *Engine) Run(date string, target []string, force bool) (*Result, error) {
	state, err := e.store.Load(e.initialCash)
	if err != nil {
		return nil, err
	}

	if state.LastTradeDate == date && !force {
		log.Printf("rebalance for %s already recorded, skipping (use --force to rerun)", date)
		return &Result{Date: date, Skipped: true, Cash: state.Cash, Positions: clonePositions(state.Positions)}, nil
	}

	if len(target) > e.topK {
		target = target[:e.topK]
	}
	targetSet := make(map[string]bool, len(target))
	for _, c := range target {
		targetSet[c] = true
	}

	// Price every name we may touch in this round.
	universe := make([]string, 0, len(target)+len(state.Positions))
	universe = append(universe, target...)
	for code := range state.Positions {
		if !targetSet[code] {
			universe = append(universe, code)
		}
	}
	sort.Strings(universe[len(target):])
	prices := e.resolver.Resolve(universe)

	e.ledger.Discard()
	var trades []models.TradeRecord
	var unpriced []string

	record := func(code, side string, qty int, price float64, reason string) {
		notional := price * float64(qty)
		rec := models.TradeRecord{
			TS:       e.nowFn().Format(time.RFC3339),
			Date:     date,
			Code:     code,
			Side:     side,
			Qty:      qty,
			Price:    price,
			Notional: notional,
			Reason:   reason,
		}
		e.ledger.RecordTrade(rec)
		trades = append(trades, rec)
	}

	// Sell phase: exit positions that fell out of the target list. A
	// position we cannot price is deferred, never sold blind.
	exits := make([]string, 0)
	for code := range state.Positions {
		if !targetSet[code] {
			exits = append(exits, code)
		}
	}
	sort.Strings(exits)
	for _, code := range exits {
		pos := state.Positions[code]
		price, ok := prices[code]
		if !ok {
			log.Printf("no price for held %s, deferring exit", code)
			unpriced = append(unpriced, code)
			continue
		}
		state.Cash += price * float64(pos.Qty)
		delete(state.Positions, code)
		record(code, models.SideSell, pos.Qty, price, "rebalance_out")
	}

	// Equity after exits, marking remaining holdings at resolved prices.
	// Positions we could not price this round are left out of the mark;
	// they stay held but do not inflate the sizing budget.
	equity := state.Cash
	for code, pos := range state.Positions {
		if price, ok := prices[code]; ok {
			equity += price * float64(pos.Qty)
		}
	}
	if equity <= 0 {
		e.ledger.Discard()
		return nil, fmt.Errorf("portfolio equity is %.2f, refusing to rebalance", equity)
	}

	// Equal-weight sizing over the names actually targeted today, floored
	// to whole lots.
	slots := len(target)
	if slots < 1 {
		slots = 1
	}
	budget := equity / float64(slots)
	lot := float64(e.lotSize)

	for _, code := range target {
		price, ok := prices[code]
		if !ok || price <= 0 {
			log.Printf("no price for target %s, skipping", code)
			unpriced = append(unpriced, code)
			continue
		}
		desired := int(math.Floor(budget/(price*lot))) * e.lotSize
		if desired == 0 && e.buyMinLotIfAffordable && price*lot <= equity {
			desired = e.lotSize
		}

		held := state.Positions[code].Qty
		switch {
		case held > desired:
			sellQty := held - desired
			pos := state.Positions[code]
			state.Cash += price * float64(sellQty)
			pos.Qty -= sellQty
			if pos.Qty == 0 {
				delete(state.Positions, code)
			} else {
				state.Positions[code] = pos
			}
			record(code, models.SideSell, sellQty, price, "rebalance_trim")
		case held < desired:
			buyQty := desired - held
			// Downscale lot by lot until the buy fits in cash.
			for buyQty > 0 && price*float64(buyQty) > state.Cash {
				buyQty -= e.lotSize
			}
			if buyQty <= 0 {
				continue
			}
			cost := price * float64(buyQty)
			pos := state.Positions[code]
			newQty := pos.Qty + buyQty
			pos.AvgCost = (pos.AvgCost*float64(pos.Qty) + cost) / float64(newQty)
			pos.Qty = newQty
			state.Positions[code] = pos
			state.Cash -= cost
			record(code, models.SideBuy, buyQty, price, "rebalance_in")
		}
	}

	if len(trades) == 0 {
		record("-", models.SideHold, 0, 0, "no_change")
	}

	holdings := 0.0
	for code, pos := range state.Positions {
		if price, ok := prices[code]; ok {
			holdings += price * float64(pos.Qty)
		}
	}
	total := state.Cash + holdings
	e.ledger.RecordEquity(models.EquitySnapshot{
		Date:          date,
		Cash:          state.Cash,
		HoldingsValue: holdings,
		Total:         total,
	})

	state.LastTradeDate = date

	// Nothing touches disk until the whole round has resolved: an abort
	// above this point leaves both ledgers and the state untouched.
	if err := e.ledger.Flush(); err != nil {
		return nil, err
	}
	if err := e.store.Save(state); err != nil {
		return nil, err
	}

	return &Result{
		Date:          date,
		Trades:        trades,
		Unpriced:      unpriced,
		Cash:          state.Cash,
		HoldingsValue: holdings,
		Total:         total,
		Positions:     clonePositions(state.Positions),
	}, nil
}

func clonePositions(in map[string]models.Position) map[string]models.Position {
	out := make(map[string]models.Position, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// TradeDate returns today's trade date in exchange time.
func TradeDate() string {
	return time.Now().In(JST).Format("2006-01-02")
}
