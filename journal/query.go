package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/ouro/risk"
)

const actionColumns = `id, time, ticker, family, decision, reason, price, cash, open_orders,
	trade_capital, max_risk_amt, ceiling_price, floor_price, order_shares,
	trade_risk_amt, risk_pct, buy_limit, trade_return_pct, signals, threshold, order_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanAction(s scanner) (ActionRecord, error) {
	var (
		rec            ActionRecord
		action, reason string
	)
	err := s.Scan(
		&rec.ID, &rec.Time, &rec.Ticker, &rec.Family, &action, &reason,
		&rec.Price, &rec.Cash, &rec.OpenOrders,
		&rec.TradeCapital, &rec.MaxRiskAmt, &rec.CeilingPrice, &rec.FloorPrice, &rec.Shares,
		&rec.TradeRisk, &rec.RiskPct, &rec.BuyLimit, &rec.ReturnPct,
		&rec.Signals, &rec.Threshold, &rec.OrderID,
	)
	rec.Action = risk.Action(action)
	rec.Reason = risk.Reason(reason)
	return rec, err
}

// GetAction returns a single action by ID.
func (j *SQLite) GetAction(id string) (ActionRecord, error) {
	row := j.db.QueryRow(`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id)
	rec, err := scanAction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ActionRecord{}, fmt.Errorf("action %q not found", id)
		}
		return ActionRecord{}, err
	}
	return rec, nil
}

// ListActionsBetween returns actions whose time is within [start, end).
func (j *SQLite) ListActionsBetween(start, end time.Time) ([]ActionRecord, error) {
	rows, err := j.db.Query(`SELECT `+actionColumns+` FROM actions
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, ticker ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		rec, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	var rec TradeRecord

	row := j.db.QueryRow(`
		SELECT trade_id, ticker, qty, entry_price, exit_price, open_time, close_time, realized_pl, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	err := row.Scan(
		&rec.TradeID,
		&rec.Ticker,
		&rec.Qty,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, ticker, qty, entry_price, exit_price, open_time, close_time, realized_pl, reason
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.Ticker,
			&rec.Qty,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.RealizedPL,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRows returns stored indicator rows for ticker within [start, end),
// oldest first. Undefined values come back as NaN.
func (j *SQLite) ListRows(ticker string, start, end time.Time) ([]RowRecord, error) {
	cols := append([]string{"ticker", "time"}, rowColumns...)
	rows, err := j.db.Query(fmt.Sprintf(`SELECT %s FROM indicator_rows
		WHERE ticker = ? AND time >= ? AND time < ?
		ORDER BY time ASC`, strings.Join(cols, ", ")), ticker, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RowRecord
	for rows.Next() {
		var (
			rec   RowRecord
			trend string
			vals  = make([]sql.NullFloat64, len(rowColumns)-2)
		)
		dest := []any{&rec.Ticker, &rec.Time}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		dest = append(dest, &trend, &rec.Code)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		rec.Open, rec.High, rec.Low, rec.Close, rec.Volume =
			fromNull(vals[0]), fromNull(vals[1]), fromNull(vals[2]), fromNull(vals[3]), fromNull(vals[4])
		ind := make([]float64, len(vals)-5)
		for i := range ind {
			ind[i] = fromNull(vals[i+5])
		}
		if err := rec.SetValues(ind); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountRows counts stored indicator rows per ticker.
func (j *SQLite) CountRows() (map[string]int, error) {
	rows, err := j.db.Query(`SELECT ticker, count(*) FROM indicator_rows GROUP BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			ticker string
			n      int
		)
		if err := rows.Scan(&ticker, &n); err != nil {
			return nil, err
		}
		out[ticker] = n
	}
	return out, rows.Err()
}
