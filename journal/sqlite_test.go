package journal

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ouro/indicators"
	"github.com/rustyeddy/ouro/market"
	"github.com/rustyeddy/ouro/risk"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	for _, table := range []string{"actions", "status", "trades", "ledger", "indicator_rows"} {
		assert.True(t, found[table], table)
	}
}

func TestSQLiteRecordStatus(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	at := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	d := sampleDecision("IBM")
	require.NoError(t, j.RecordStatus(at, []StatusRecord{
		{Ticker: "IBM", Family: "+MACD+RSI", Signals: 16, Threshold: 15, Action: &d},
		{Ticker: "VZ", Family: "", Signals: 1, Threshold: math.NaN()},
	}))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		decision  string
		threshold sql.NullFloat64
	)
	require.NoError(t, db.QueryRow(`SELECT decision, threshold FROM status WHERE ticker = 'IBM'`).Scan(&decision, &threshold))
	assert.Equal(t, "buy", decision)
	assert.True(t, threshold.Valid)
	assert.Equal(t, 15.0, threshold.Float64)

	require.NoError(t, db.QueryRow(`SELECT decision, threshold FROM status WHERE ticker = 'VZ'`).Scan(&decision, &threshold))
	assert.Equal(t, "", decision)
	assert.False(t, threshold.Valid)
}

func TestSQLiteRowsRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, 40)
	for i := range bars {
		c := 50 + math.Sin(float64(i)/3)
		bars[i] = market.Bar{Ticker: "IBM", Time: base.Add(time.Duration(i) * time.Minute),
			Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 100}
	}
	rows, err := indicators.Compute(bars)
	require.NoError(t, err)

	recs := make([]RowRecord, len(rows))
	for i, r := range rows {
		recs[i] = RowRecord{Row: r}
	}
	recs[39].Code = "BBBBBBBBBBC"
	require.NoError(t, j.SaveRows(recs))

	// recomputation replaces
	recs[39].Close = 99
	require.NoError(t, j.SaveRows(recs[39:]))

	got, err := j.ListRows("IBM", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 40)

	assert.True(t, got[0].Time.Equal(base))
	assert.True(t, math.IsNaN(got[0].RSI))
	assert.InDelta(t, rows[20].RSI, got[20].RSI, 1e-9)
	assert.InDelta(t, rows[39].MACDHist, got[39].MACDHist, 1e-9)
	assert.Equal(t, 99.0, got[39].Close)
	assert.Equal(t, "BBBBBBBBBBC", got[39].Code)
	assert.Equal(t, rows[39].Trend, got[39].Trend)

	counts, err := j.CountRows()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"IBM": 40}, counts)
}

func TestSQLiteRecordAndGetAction(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	rec := ActionRecord{ID: "01HX", Decision: sampleDecision("IBM"), Signals: 16, Threshold: 15, OrderID: "ord-1"}
	require.NoError(t, j.RecordAction(rec))

	got, err := j.GetAction("01HX")
	require.NoError(t, err)
	assert.Equal(t, "IBM", got.Ticker)
	assert.Equal(t, risk.Buy, got.Action)
	assert.Equal(t, risk.ReasonNone, got.Reason)
	assert.Equal(t, int64(60), got.Shares)
	assert.InDelta(t, 50.0975, got.BuyLimit, 1e-9)
	assert.Equal(t, "ord-1", got.OrderID)
	assert.True(t, got.Time.Equal(rec.Time))

	_, err = j.GetAction("missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
