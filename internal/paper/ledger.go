package paper

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/torisan/KabutoGo/internal/models"
)

const (
	tradesHeader = "ts,date,code,side,qty,price,notional,reason"
	equityHeader = "date,cash,holdings_value,total"

	legacyTradesHeader = "date,code,side,qty,price,notional,reason"
)

// Ledger owns the two append-only CSV files: trades.csv and equity.csv.
// Rows for a round are buffered in memory and flushed only after the
// whole round succeeds, so an aborted round leaves no partial history.
type Ledger struct {
	tradesPath string
	equityPath string

	pendingTrades []models.TradeRecord
	pendingEquity []models.EquitySnapshot
}

func NewLedger(tradesPath, equityPath string) *Ledger {
	return &Ledger{tradesPath: tradesPath, equityPath: equityPath}
}

// RecordTrade buffers a trade row for the current round.
func (l *Ledger) RecordTrade(rec models.TradeRecord) {
	l.pendingTrades = append(l.pendingTrades, rec)
}

// RecordEquity buffers an equity snapshot for the current round.
func (l *Ledger) RecordEquity(snap models.EquitySnapshot) {
	l.pendingEquity = append(l.pendingEquity, snap)
}

// Discard drops all buffered rows without writing them.
func (l *Ledger) Discard() {
	l.pendingTrades = nil
	l.pendingEquity = nil
}

// Flush appends every buffered row to disk and clears the buffers.
func (l *Ledger) Flush() error {
	if len(l.pendingTrades) > 0 {
		rows := make([]string, 0, len(l.pendingTrades))
		for _, t := range l.pendingTrades {
			rows = append(rows, strings.Join([]string{
				t.TS,
				t.Date,
				t.Code,
				t.Side,
				fmt.Sprintf("%d", t.Qty),
				money(t.Price),
				money(t.Notional),
				t.Reason,
			}, ","))
		}
		if err := appendCSV(l.tradesPath, tradesHeader, rows); err != nil {
			return fmt.Errorf("append trades ledger: %w", err)
		}
	}
	if len(l.pendingEquity) > 0 {
		rows := make([]string, 0, len(l.pendingEquity))
		for _, e := range l.pendingEquity {
			rows = append(rows, strings.Join([]string{
				e.Date,
				money(e.Cash),
				money(e.HoldingsValue),
				money(e.Total),
			}, ","))
		}
		if err := appendCSV(l.equityPath, equityHeader, rows); err != nil {
			return fmt.Errorf("append equity ledger: %w", err)
		}
	}
	l.pendingTrades = nil
	l.pendingEquity = nil
	return nil
}

// money renders a price or notional with exactly two decimal places.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func appendCSV(path, header string, rows []string) error {
	_, statErr := os.Stat(path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if needHeader {
		fmt.Fprintln(w, header)
	}
	for _, row := range rows {
		fmt.Fprintln(w, row)
	}
	return w.Flush()
}

// MigrateTrades upgrades a legacy trades.csv (rows without a ts column)
// to the current format in place. Each legacy row gets a synthetic
// timestamp of 09:00 JST on its trade date, and duplicate header lines
// left by older appends are dropped. Already-current files are untouched.
func MigrateTrades(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read trades ledger: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil
	}

	first := strings.TrimSpace(lines[0])
	legacy := first == legacyTradesHeader
	if !legacy && first != tradesHeader {
		return nil
	}

	changed := legacy
	out := []string{tradesHeader}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || line == legacyTradesHeader || line == tradesHeader {
			// Older appends could repeat the header mid-file.
			changed = true
			continue
		}
		if legacy && strings.Count(line, ",") >= 6 {
			date := line[:strings.Index(line, ",")]
			out = append(out, date+"T09:00:00+09:00,"+line)
			changed = true
		} else {
			out = append(out, line)
		}
	}
	if !changed {
		return nil
	}

	tmp := path + ".migrating"
	if err := os.WriteFile(tmp, []byte(strings.Join(out, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write migrated trades ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace trades ledger: %w", err)
	}
	return nil
}

// JST is the exchange timezone for trade dates and timestamps.
var JST = loadJST()

func loadJST() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}
