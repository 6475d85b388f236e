package indicators

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// Columns lists the numeric columns in the order WriteCSV emits them after
// the bar fields.
var Columns = []string{
	"adx14", "adxr14", "apo", "aroon_up", "aroon_down", "aroonosc", "bop", "cci14",
	"cmo14", "dx14", "macd", "macd_signal", "macd_hist", "mfi14", "mom10", "ppo",
	"roc10", "rsi14", "stoch_k", "stoch_d", "stochrsi_k", "stochrsi_d", "trix30",
	"ultosc", "bb_upper", "bb_middle", "bb_lower", "ema14", "sma14", "ad", "adosc", "obv",
}

// Values returns the numeric columns of r in Columns order.
func (r Row) Values() []float64 {
	return []float64{
		r.ADX, r.ADXR, r.APO, r.AroonUp, r.AroonDown, r.AroonOsc(), r.BOP, r.CCI,
		r.CMO, r.DX, r.MACD, r.MACDSignal, r.MACDHist, r.MFI, r.MOM, r.PPO,
		r.ROC, r.RSI, r.SlowK, r.SlowD, r.StochRSIK, r.StochRSID, r.TRIX,
		r.ULTOSC, r.BBUpper, r.BBMiddle, r.BBLower, r.EMA, r.SMA, r.AD, r.ADOSC, r.OBV,
	}
}

// SetValues is the inverse of Values. The derived aroonosc column is
// ignored and Trend is recomputed from ADX.
func (r *Row) SetValues(v []float64) error {
	if len(v) != len(Columns) {
		return fmt.Errorf("set values: got %d, want %d", len(v), len(Columns))
	}
	dst := []*float64{
		&r.ADX, &r.ADXR, &r.APO, &r.AroonUp, &r.AroonDown, nil, &r.BOP, &r.CCI,
		&r.CMO, &r.DX, &r.MACD, &r.MACDSignal, &r.MACDHist, &r.MFI, &r.MOM, &r.PPO,
		&r.ROC, &r.RSI, &r.SlowK, &r.SlowD, &r.StochRSIK, &r.StochRSID, &r.TRIX,
		&r.ULTOSC, &r.BBUpper, &r.BBMiddle, &r.BBLower, &r.EMA, &r.SMA, &r.AD, &r.ADOSC, &r.OBV,
	}
	for i, p := range dst {
		if p != nil {
			*p = v[i]
		}
	}
	r.Trend = TrendStrength(r.ADX)
	return nil
}

// FormatFloat renders NaN as an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes rows with a header line. Undefined values are empty cells.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	header := append([]string{"ticker", "time", "open", "high", "low", "close", "volume"}, Columns...)
	header = append(header, "trend")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Ticker,
			r.Time.UTC().Format(time.RFC3339),
			FormatFloat(r.Open),
			FormatFloat(r.High),
			FormatFloat(r.Low),
			FormatFloat(r.Close),
			FormatFloat(r.Volume),
		}
		for _, v := range r.Values() {
			rec = append(rec, FormatFloat(v))
		}
		rec = append(rec, r.Trend.String())
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
