package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ouro/market"
)

func waveBars(n int) []market.Bar {
	base := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := range bars {
		c := 50 + 2.5*math.Sin(float64(i)*2*math.Pi/20)
		bars[i] = market.Bar{
			Ticker: "IBM",
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   c - 0.1,
			High:   c + 0.3,
			Low:    c - 0.3,
			Close:  c,
			Volume: 1000 + float64(i%7)*100,
		}
	}
	return bars
}

func risingBars(n int) []market.Bar {
	bars := waveBars(n)
	for i := range bars {
		c := 10 + float64(i)
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = c-0.5, c+0.5, c-1, c
	}
	return bars
}

func TestCompute_Empty(t *testing.T) {
	rows, err := Compute(nil)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestCompute_OutOfOrder(t *testing.T) {
	bars := waveBars(20)
	bars[5], bars[6] = bars[6], bars[5]
	_, err := Compute(bars)
	assert.ErrorIs(t, err, market.ErrOutOfOrder)
}

func TestCompute_ShortSeries(t *testing.T) {
	rows, err := Compute(waveBars(10))
	require.NoError(t, err)
	require.Len(t, rows, 10)

	for _, r := range rows {
		assert.True(t, math.IsNaN(r.RSI))
		assert.True(t, math.IsNaN(r.TRIX))
		assert.True(t, math.IsNaN(r.MACD))
		assert.Equal(t, Undefined, r.Trend)
		assert.False(t, math.IsNaN(r.BOP))
	}
}

func TestCompute_Lookbacks(t *testing.T) {
	bars := waveBars(120)
	rows, err := Compute(bars)
	require.NoError(t, err)
	require.Len(t, rows, 120)

	for i := 0; i < 88; i++ {
		assert.True(t, math.IsNaN(rows[i].TRIX), "TRIX row %d", i)
	}
	last := rows[len(rows)-1]
	assert.True(t, Defined(
		last.ADX, last.ADXR, last.APO, last.AroonUp, last.AroonDown, last.BOP,
		last.CCI, last.CMO, last.DX, last.MACD, last.MACDSignal, last.MACDHist,
		last.MFI, last.MOM, last.PPO, last.ROC, last.RSI, last.SlowK, last.SlowD,
		last.StochRSIK, last.StochRSID, last.TRIX, last.ULTOSC, last.BBUpper,
		last.BBMiddle, last.BBLower, last.EMA, last.SMA, last.AD, last.ADOSC, last.OBV,
	))
	assert.NotEqual(t, Undefined, last.Trend)

	assert.True(t, math.IsNaN(rows[32].MACD))
	assert.False(t, math.IsNaN(rows[33].MACD))
}

func TestCompute_SMA(t *testing.T) {
	bars := waveBars(30)
	rows, err := Compute(bars)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(rows[12].SMA))

	var sum float64
	for i := 0; i < MAPeriod; i++ {
		sum += bars[i].Close
	}
	assert.InDelta(t, sum/MAPeriod, rows[13].SMA, 1e-9)
}

func TestCompute_BOP(t *testing.T) {
	bars := waveBars(5)
	rows, err := Compute(bars)
	require.NoError(t, err)
	for i, r := range rows {
		b := bars[i]
		assert.InDelta(t, (b.Close-b.Open)/(b.High-b.Low), r.BOP, 1e-9)
	}
}

func TestCompute_ROCMatchesMomentum(t *testing.T) {
	rows, err := Compute(waveBars(40))
	require.NoError(t, err)
	for i, r := range rows {
		if math.IsNaN(r.MOM) {
			assert.True(t, math.IsNaN(r.ROC), "row %d", i)
			continue
		}
		assert.Equal(t, r.MOM, r.ROC, "row %d", i)
	}
	assert.InDelta(t, rows[20].Close-rows[10].Close, rows[20].MOM, 1e-9)
}

func TestCompute_RSIRising(t *testing.T) {
	rows, err := Compute(risingBars(30))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rows[29].RSI, 1e-9)
	assert.True(t, math.IsNaN(rows[13].RSI))
}

func TestAroonOsc(t *testing.T) {
	r := Row{AroonUp: 71.4, AroonDown: 28.6}
	assert.InDelta(t, -42.8, r.AroonOsc(), 1e-9)
}

func TestWarmupAndLookback(t *testing.T) {
	assert.Equal(t, 89, Warmup())
	assert.Equal(t, 14, Lookback("RSI(14)"))
	assert.Equal(t, 33, Lookback("MACD(12,26,9)"))
	assert.Equal(t, -1, Lookback("VWAP"))
	assert.Contains(t, Names(), "STOCHRSI(14,5,3)")
}

func TestTrendStrength(t *testing.T) {
	tests := []struct {
		adx  float64
		want Strength
	}{
		{math.NaN(), Undefined},
		{10, Absent},
		{24.999, Absent},
		{25, Strong},
		{50, VeryStrong},
		{75, ExtremelyStrong},
		{99, ExtremelyStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TrendStrength(tt.adx), "adx %v", tt.adx)
	}
	assert.Equal(t, "Strong Trend", Strong.String())
}
