package journal

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/ouro/indicators"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; concurrent writers only buy SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(rowsSchema()); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordAction(a ActionRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO actions
		(id, time, ticker, family, decision, reason, price, cash, open_orders,
		 trade_capital, max_risk_amt, ceiling_price, floor_price, order_shares,
		 trade_risk_amt, risk_pct, buy_limit, trade_return_pct, signals, threshold, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Time.UTC(), a.Ticker, a.Family, string(a.Action), string(a.Reason),
		a.Price, a.Cash, a.OpenOrders,
		a.TradeCapital, a.MaxRiskAmt, a.CeilingPrice, a.FloorPrice, a.Shares,
		a.TradeRisk, a.RiskPct, a.BuyLimit, a.ReturnPct, a.Signals, a.Threshold, a.OrderID,
	)
	return err
}

func (j *SQLite) RecordStatus(at time.Time, status []StatusRecord) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO status (time, ticker, family, signals, threshold, decision, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range status {
		var decision, reason string
		if s.Action != nil {
			decision, reason = string(s.Action.Action), string(s.Action.Reason)
		}
		if _, err := stmt.Exec(at.UTC(), s.Ticker, s.Family, s.Signals, nullable(s.Threshold), decision, reason); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, ticker, qty, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Ticker, t.Qty, t.EntryPrice,
		t.ExitPrice, t.OpenTime.UTC(), t.CloseTime.UTC(), t.RealizedPL, t.Reason,
	)
	return err
}

// RowRecord is an indicator row and its strategy code, or "" when the row
// could not be classified.
type RowRecord struct {
	indicators.Row
	Code string
}

// SaveRows stores rows, replacing any earlier row for the same ticker and
// time.
func (j *SQLite) SaveRows(rows []RowRecord) error {
	if len(rows) == 0 {
		return nil
	}
	cols := append([]string{"ticker", "time"}, rowColumns...)
	q := fmt.Sprintf("INSERT OR REPLACE INTO indicator_rows (%s) VALUES (%s)",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(q)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		args := make([]any, 0, len(cols))
		args = append(args, r.Ticker, r.Time.UTC(), r.Open, r.High, r.Low, r.Close, r.Volume)
		for _, v := range r.Values() {
			args = append(args, nullable(v))
		}
		args = append(args, r.Trend.String(), r.Code)
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("save row %s %s: %w", r.Ticker, r.Time.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
