package journal

import (
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/market"
)

// LedgerEntry pairs the buys and sells of one ticker on one trade date.
type LedgerEntry struct {
	Ticker    string
	TradeDate string // Eastern session date

	BuyID    string
	BuyTime  time.Time
	BuyQty   int64
	BuyPrice float64 // volume-weighted

	SellID    string
	SellTime  time.Time
	SellQty   int64
	SellPrice float64

	GrossCost     float64
	GrossProceeds float64
	GainLoss      float64 // NaN until every share bought has been sold
}

// Closed reports whether the day's position is flat.
func (e LedgerEntry) Closed() bool { return !math.IsNaN(e.GainLoss) }

// Reconcile folds fills into ledger entries sorted by date and ticker.
func Reconcile(fills []broker.Fill) []LedgerEntry {
	type key struct{ ticker, date string }
	byKey := map[key]*LedgerEntry{}

	sorted := append([]broker.Fill(nil), fills...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FilledAt.Before(sorted[j].FilledAt) })

	for _, f := range sorted {
		if f.Qty <= 0 {
			continue
		}
		k := key{f.Ticker, market.SessionDate(f.FilledAt)}
		e, ok := byKey[k]
		if !ok {
			e = &LedgerEntry{Ticker: f.Ticker, TradeDate: k.date}
			byKey[k] = e
		}
		amount := f.Price * float64(f.Qty)
		switch f.Side {
		case broker.Buy:
			if e.BuyID == "" {
				e.BuyID, e.BuyTime = f.OrderID, f.FilledAt
			}
			e.BuyQty += f.Qty
			e.GrossCost += amount
		case broker.Sell:
			if e.SellID == "" {
				e.SellID, e.SellTime = f.OrderID, f.FilledAt
			}
			e.SellQty += f.Qty
			e.GrossProceeds += amount
		}
	}

	out := make([]LedgerEntry, 0, len(byKey))
	for _, e := range byKey {
		if e.BuyQty > 0 {
			e.BuyPrice = e.GrossCost / float64(e.BuyQty)
		}
		if e.SellQty > 0 {
			e.SellPrice = e.GrossProceeds / float64(e.SellQty)
		}
		e.GainLoss = math.NaN()
		if e.BuyQty > 0 && e.SellQty == e.BuyQty {
			e.GainLoss = e.GrossProceeds - e.GrossCost
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeDate != out[j].TradeDate {
			return out[i].TradeDate < out[j].TradeDate
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// UpsertLedger replaces ledger rows for the same ticker and trade date.
func (j *SQLite) UpsertLedger(entries []LedgerEntry) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO ledger
		(ticker, trade_date, buy_id, buy_time, buy_qty, buy_price, sell_id, sell_time,
		 sell_qty, sell_price, gross_cost, gross_proceeds, gain_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(
			e.Ticker, e.TradeDate, e.BuyID, nullTime(e.BuyTime), e.BuyQty, e.BuyPrice,
			e.SellID, nullTime(e.SellTime), e.SellQty, e.SellPrice,
			e.GrossCost, e.GrossProceeds, nullable(e.GainLoss),
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LastLedgerDate is the most recent trade date in the ledger, or "" if empty.
func (j *SQLite) LastLedgerDate() (string, error) {
	var d sql.NullString
	if err := j.db.QueryRow(`SELECT max(trade_date) FROM ledger`).Scan(&d); err != nil {
		return "", err
	}
	return d.String, nil
}

// ListLedger returns entries with trade dates in [from, to], inclusive.
func (j *SQLite) ListLedger(from, to string) ([]LedgerEntry, error) {
	rows, err := j.db.Query(`
		SELECT ticker, trade_date, buy_id, buy_time, buy_qty, buy_price, sell_id, sell_time,
		       sell_qty, sell_price, gross_cost, gross_proceeds, gain_loss
		FROM ledger
		WHERE trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC, ticker ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var (
			e                 LedgerEntry
			buyTime, sellTime sql.NullTime
			gain              sql.NullFloat64
		)
		if err := rows.Scan(
			&e.Ticker, &e.TradeDate, &e.BuyID, &buyTime, &e.BuyQty, &e.BuyPrice,
			&e.SellID, &sellTime, &e.SellQty, &e.SellPrice,
			&e.GrossCost, &e.GrossProceeds, &gain,
		); err != nil {
			return nil, err
		}
		e.BuyTime, e.SellTime = buyTime.Time, sellTime.Time
		e.GainLoss = fromNull(gain)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
