// Package indicators computes the fixed catalogue of technical indicators
// for an ordered bar series.
package indicators

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/rustyeddy/ouro/market"
)

// Row is one bar plus every indicator computed for it. A value without
// enough lookback history is NaN; it is never defaulted to zero.
type Row struct {
	market.Bar

	ADX       float64 `json:"adx14"`
	ADXR      float64 `json:"adxr14"`
	APO       float64 `json:"apo"`
	AroonUp   float64 `json:"aroon_up"`
	AroonDown float64 `json:"aroon_down"`
	BOP       float64 `json:"bop"`
	CCI       float64 `json:"cci14"`
	CMO       float64 `json:"cmo14"`
	DX        float64 `json:"dx14"`

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	MFI float64 `json:"mfi14"`
	MOM float64 `json:"mom10"`
	PPO float64 `json:"ppo"`
	ROC float64 `json:"roc10"`
	RSI float64 `json:"rsi14"`

	SlowK     float64 `json:"stoch_k"`
	SlowD     float64 `json:"stoch_d"`
	StochRSIK float64 `json:"stochrsi_k"`
	StochRSID float64 `json:"stochrsi_d"`

	TRIX   float64 `json:"trix30"`
	ULTOSC float64 `json:"ultosc"`

	BBUpper  float64 `json:"bb_upper"`
	BBMiddle float64 `json:"bb_middle"`
	BBLower  float64 `json:"bb_lower"`

	EMA   float64 `json:"ema14"`
	SMA   float64 `json:"sma14"`
	AD    float64 `json:"ad"`
	ADOSC float64 `json:"adosc"`
	OBV   float64 `json:"obv"`

	Trend Strength `json:"trend"`
}

// AroonOsc is AROON-down minus AROON-up.
func (r Row) AroonOsc() float64 {
	return r.AroonDown - r.AroonUp
}

// Defined reports whether every value is a number.
func Defined(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Fixed parameterizations.
const (
	ADXPeriod    = 14
	APOFast      = 12
	APOSlow      = 26
	AroonPeriod  = 14
	CCIPeriod    = 14
	CMOPeriod    = 14
	MACDFast     = 12
	MACDSlow     = 26
	MACDSignalP  = 9
	MFIPeriod    = 14
	MOMPeriod    = 10
	RSIPeriod    = 14
	StochFastK   = 5
	StochSlowK   = 3
	StochSlowD   = 3
	StochRSIP    = 14
	StochRSIK    = 5
	StochRSID    = 3
	TRIXPeriod   = 30
	UltOscP1     = 7
	UltOscP2     = 14
	UltOscP3     = 28
	BBandsPeriod = 5
	BBandsDev    = 2.0
	MAPeriod     = 14
	ADOSCFast    = 3
	ADOSCSlow    = 10
)

type input struct {
	open, high, low, close, volume []float64
}

// series describes one indicator family: how many leading rows it leaves
// undefined, how to compute it, and which Row fields receive its outputs.
type series struct {
	name     string
	lookback int
	compute  func(in input) [][]float64
	fields   []func(r *Row) *float64
}

func one(v []float64) [][]float64 { return [][]float64{v} }

var catalogue = []series{
	{
		name:     fmt.Sprintf("ADX(%d)", ADXPeriod),
		lookback: 2*ADXPeriod - 1,
		compute:  func(in input) [][]float64 { return one(talib.Adx(in.high, in.low, in.close, ADXPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.ADX }},
	},
	{
		name:     fmt.Sprintf("ADXR(%d)", ADXPeriod),
		lookback: 3*ADXPeriod - 2,
		compute:  func(in input) [][]float64 { return one(talib.AdxR(in.high, in.low, in.close, ADXPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.ADXR }},
	},
	{
		name:     fmt.Sprintf("APO(%d,%d)", APOFast, APOSlow),
		lookback: APOSlow - 1,
		compute:  func(in input) [][]float64 { return one(talib.Apo(in.close, APOFast, APOSlow, talib.SMA)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.APO }},
	},
	{
		name:     fmt.Sprintf("AROON(%d)", AroonPeriod),
		lookback: AroonPeriod,
		compute: func(in input) [][]float64 {
			down, up := talib.Aroon(in.high, in.low, AroonPeriod)
			return [][]float64{down, up}
		},
		fields: []func(r *Row) *float64{
			func(r *Row) *float64 { return &r.AroonDown },
			func(r *Row) *float64 { return &r.AroonUp },
		},
	},
	{
		name:     "BOP",
		lookback: 0,
		compute:  func(in input) [][]float64 { return one(talib.Bop(in.open, in.high, in.low, in.close)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.BOP }},
	},
	{
		name:     fmt.Sprintf("CCI(%d)", CCIPeriod),
		lookback: CCIPeriod - 1,
		compute:  func(in input) [][]float64 { return one(talib.Cci(in.high, in.low, in.close, CCIPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.CCI }},
	},
	{
		name:     fmt.Sprintf("CMO(%d)", CMOPeriod),
		lookback: CMOPeriod,
		compute:  func(in input) [][]float64 { return one(talib.Cmo(in.close, CMOPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.CMO }},
	},
	{
		name:     fmt.Sprintf("DX(%d)", ADXPeriod),
		lookback: ADXPeriod,
		compute:  func(in input) [][]float64 { return one(talib.Dx(in.high, in.low, in.close, ADXPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.DX }},
	},
	{
		name:     fmt.Sprintf("MACD(%d,%d,%d)", MACDFast, MACDSlow, MACDSignalP),
		lookback: MACDSlow - 1 + MACDSignalP - 1,
		compute: func(in input) [][]float64 {
			macd, signal, hist := talib.Macd(in.close, MACDFast, MACDSlow, MACDSignalP)
			return [][]float64{macd, signal, hist}
		},
		fields: []func(r *Row) *float64{
			func(r *Row) *float64 { return &r.MACD },
			func(r *Row) *float64 { return &r.MACDSignal },
			func(r *Row) *float64 { return &r.MACDHist },
		},
	},
	{
		name:     fmt.Sprintf("MFI(%d)", MFIPeriod),
		lookback: MFIPeriod,
		compute:  func(in input) [][]float64 { return one(talib.Mfi(in.high, in.low, in.close, in.volume, MFIPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.MFI }},
	},
	{
		name:     fmt.Sprintf("MOM(%d)", MOMPeriod),
		lookback: MOMPeriod,
		compute:  func(in input) [][]float64 { return one(talib.Mom(in.close, MOMPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.MOM }},
	},
	{
		name:     fmt.Sprintf("PPO(%d,%d)", APOFast, APOSlow),
		lookback: APOSlow - 1,
		compute:  func(in input) [][]float64 { return one(talib.Ppo(in.close, APOFast, APOSlow, talib.SMA)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.PPO }},
	},
	{
		// ROC(10) is computed with the momentum formula. Historical rows
		// were produced this way and downstream tables depend on it.
		name:     fmt.Sprintf("ROC(%d)", MOMPeriod),
		lookback: MOMPeriod,
		compute:  func(in input) [][]float64 { return one(talib.Mom(in.close, MOMPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.ROC }},
	},
	{
		name:     fmt.Sprintf("RSI(%d)", RSIPeriod),
		lookback: RSIPeriod,
		compute:  func(in input) [][]float64 { return one(talib.Rsi(in.close, RSIPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.RSI }},
	},
	{
		name:     fmt.Sprintf("STOCH(%d,%d,%d)", StochFastK, StochSlowK, StochSlowD),
		lookback: StochFastK - 1 + StochSlowK - 1 + StochSlowD - 1,
		compute: func(in input) [][]float64 {
			k, d := talib.Stoch(in.high, in.low, in.close, StochFastK, StochSlowK, talib.SMA, StochSlowD, talib.SMA)
			return [][]float64{k, d}
		},
		fields: []func(r *Row) *float64{
			func(r *Row) *float64 { return &r.SlowK },
			func(r *Row) *float64 { return &r.SlowD },
		},
	},
	{
		name:     fmt.Sprintf("STOCHRSI(%d,%d,%d)", StochRSIP, StochRSIK, StochRSID),
		lookback: StochRSIP + StochRSIK - 1 + StochRSID - 1,
		compute: func(in input) [][]float64 {
			k, d := talib.StochRsi(in.close, StochRSIP, StochRSIK, StochRSID, talib.SMA)
			return [][]float64{k, d}
		},
		fields: []func(r *Row) *float64{
			func(r *Row) *float64 { return &r.StochRSIK },
			func(r *Row) *float64 { return &r.StochRSID },
		},
	},
	{
		name:     fmt.Sprintf("TRIX(%d)", TRIXPeriod),
		lookback: 3*(TRIXPeriod-1) + 1,
		compute:  func(in input) [][]float64 { return one(talib.Trix(in.close, TRIXPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.TRIX }},
	},
	{
		name:     fmt.Sprintf("ULTOSC(%d,%d,%d)", UltOscP1, UltOscP2, UltOscP3),
		lookback: UltOscP3,
		compute: func(in input) [][]float64 {
			return one(talib.UltOsc(in.high, in.low, in.close, UltOscP1, UltOscP2, UltOscP3))
		},
		fields: []func(r *Row) *float64{func(r *Row) *float64 { return &r.ULTOSC }},
	},
	{
		name:     fmt.Sprintf("BBANDS(%d,%.0f)", BBandsPeriod, BBandsDev),
		lookback: BBandsPeriod - 1,
		compute: func(in input) [][]float64 {
			upper, mid, lower := talib.BBands(in.close, BBandsPeriod, BBandsDev, BBandsDev, talib.SMA)
			return [][]float64{upper, mid, lower}
		},
		fields: []func(r *Row) *float64{
			func(r *Row) *float64 { return &r.BBUpper },
			func(r *Row) *float64 { return &r.BBMiddle },
			func(r *Row) *float64 { return &r.BBLower },
		},
	},
	{
		name:     fmt.Sprintf("EMA(%d)", MAPeriod),
		lookback: MAPeriod - 1,
		compute:  func(in input) [][]float64 { return one(talib.Ema(in.close, MAPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.EMA }},
	},
	{
		name:     fmt.Sprintf("SMA(%d)", MAPeriod),
		lookback: MAPeriod - 1,
		compute:  func(in input) [][]float64 { return one(talib.Sma(in.close, MAPeriod)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.SMA }},
	},
	{
		name:     "AD",
		lookback: 0,
		compute:  func(in input) [][]float64 { return one(talib.Ad(in.high, in.low, in.close, in.volume)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.AD }},
	},
	{
		name:     fmt.Sprintf("ADOSC(%d,%d)", ADOSCFast, ADOSCSlow),
		lookback: ADOSCSlow - 1,
		compute: func(in input) [][]float64 {
			return one(talib.AdOsc(in.high, in.low, in.close, in.volume, ADOSCFast, ADOSCSlow))
		},
		fields: []func(r *Row) *float64{func(r *Row) *float64 { return &r.ADOSC }},
	},
	{
		name:     "OBV",
		lookback: 0,
		compute:  func(in input) [][]float64 { return one(talib.Obv(in.close, in.volume)) },
		fields:   []func(r *Row) *float64{func(r *Row) *float64 { return &r.OBV }},
	},
}

// Names lists the computed indicator families in table order.
func Names() []string {
	out := make([]string, len(catalogue))
	for i, s := range catalogue {
		out[i] = s.name
	}
	return out
}

// Lookback returns the number of leading rows the named indicator leaves
// undefined, or -1 for an unknown name.
func Lookback(name string) int {
	for _, s := range catalogue {
		if s.name == name {
			return s.lookback
		}
	}
	return -1
}

// Warmup is the minimum number of bars for every indicator to produce at
// least one value.
func Warmup() int {
	max := 0
	for _, s := range catalogue {
		if s.lookback > max {
			max = s.lookback
		}
	}
	return max + 1
}

// Compute returns one Row per bar. Bars must share a ticker and be in
// strictly increasing time order; anything else is rejected rather than
// silently producing meaningless lookback values. An empty input yields an
// empty, non-nil result. Indicators whose lookback exceeds the series are
// left NaN on every row.
func Compute(bars []market.Bar) ([]Row, error) {
	if err := market.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}

	n := len(bars)
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = blank(bars[i])
	}
	if n == 0 {
		return rows, nil
	}

	var in input
	in.open, in.high, in.low, in.close, in.volume = market.Columns(bars)

	for _, s := range catalogue {
		// go-talib indexes past the end of short inputs; skip rather than recover.
		if n <= s.lookback {
			continue
		}
		outs := s.compute(in)
		for k, field := range s.fields {
			out := outs[k]
			for i := s.lookback; i < n && i < len(out); i++ {
				*field(&rows[i]) = out[i]
			}
		}
	}

	for i := range rows {
		rows[i].Trend = TrendStrength(rows[i].ADX)
	}
	return rows, nil
}

func blank(b market.Bar) Row {
	r := Row{Bar: b}
	for _, s := range catalogue {
		for _, field := range s.fields {
			*field(&r) = math.NaN()
		}
	}
	return r
}
