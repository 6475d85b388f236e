package journal

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// StatusHeader is the column layout of the status snapshot file.
var StatusHeader = []string{
	"datetime", "ticker", "family", "signals", "threshold", "cash",
	"trade_risk_amt", "trade_capital", "order_shares", "floor_price",
	"ceiling_price", "buy_limit", "decision", "reason",
}

var tradeHeader = []string{"trade_id", "ticker", "qty", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}

// FileJournal keeps the operator-facing files of a session in one directory:
//
//	status.csv    rewritten every cycle
//	actions.json  {ticker: latest action}, rewritten on every action
//	trades.csv    appended
type FileJournal struct {
	mu      sync.Mutex
	dir     string
	actions map[string]ActionRecord
	trades  *csv.Writer
	tf      *os.File
}

func NewFiles(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "trades.csv")
	_, statErr := os.Stat(path)
	tf, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	tw := csv.NewWriter(tf)
	if errors.Is(statErr, os.ErrNotExist) {
		if err := tw.Write(tradeHeader); err != nil {
			tf.Close()
			return nil, err
		}
		tw.Flush()
		if err := tw.Error(); err != nil {
			tf.Close()
			return nil, err
		}
	}
	return &FileJournal{
		dir:     dir,
		actions: make(map[string]ActionRecord),
		trades:  tw,
		tf:      tf,
	}, nil
}

func (j *FileJournal) StatusPath() string  { return filepath.Join(j.dir, "status.csv") }
func (j *FileJournal) ActionsPath() string { return filepath.Join(j.dir, "actions.json") }

func (j *FileJournal) RecordAction(a ActionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.actions[a.Ticker] = a
	b, err := json.MarshalIndent(j.actions, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(j.ActionsPath(), b)
}

func (j *FileJournal) RecordStatus(at time.Time, status []StatusRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	tmp, err := os.CreateTemp(j.dir, ".status-*.csv")
	if err != nil {
		return err
	}
	if err := WriteStatusCSV(tmp, at, status); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), j.StatusPath())
}

func (j *FileJournal) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.trades.Write([]string{
		t.TradeID,
		t.Ticker,
		strconv.FormatInt(t.Qty, 10),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.RealizedPL),
		t.Reason,
	}); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		j.tf.Close()
		return err
	}
	return j.tf.Close()
}

// WriteStatusCSV writes one snapshot. Tickers without a decision this
// session leave the sizing columns empty.
func WriteStatusCSV(w io.Writer, at time.Time, status []StatusRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatusHeader); err != nil {
		return err
	}
	for _, s := range status {
		rec := []string{
			at.Format(time.RFC3339),
			s.Ticker,
			s.Family,
			strconv.Itoa(s.Signals),
			optional(s.Threshold),
			"", "", "", "", "", "", "", "", "",
		}
		if d := s.Action; d != nil {
			rec[5] = f(d.Cash)
			rec[6] = f(d.TradeRisk)
			rec[7] = f(d.TradeCapital)
			rec[8] = strconv.FormatInt(d.Shares, 10)
			rec[9] = f(d.FloorPrice)
			rec[10] = f(d.CeilingPrice)
			rec[11] = f(d.BuyLimit)
			rec[12] = string(d.Action)
			rec[13] = string(d.Reason)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFileAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func optional(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
