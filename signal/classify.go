package signal

import (
	"time"

	"github.com/rustyeddy/ouro/indicators"
)

// Vote thresholds.
const (
	AroonBand     = 25.0
	CCIBand       = 100.0
	CMOBand       = 50.0
	RSIOverbought = 70.0
	RSIOversold   = 30.0
	StochLow      = 20.0
	StochHigh     = 80.0
)

func sign(v float64) Vote {
	switch {
	case v > 0:
		return Bullish
	case v < 0:
		return Bearish
	}
	return Neutral
}

// band votes bullish at or above hi and bearish at or below lo.
func band(v, lo, hi float64) Vote {
	switch {
	case v >= hi:
		return Bullish
	case v <= lo:
		return Bearish
	}
	return Neutral
}

func AroonVote(osc float64) Vote { return band(osc, -AroonBand, AroonBand) }

func BOPVote(bop float64) Vote { return sign(bop) }

func CCIVote(cci float64) Vote { return band(cci, -CCIBand, CCIBand) }

// CMOVote is contrarian: a deeply negative oscillator votes bullish.
func CMOVote(cmo float64) Vote {
	switch {
	case cmo < -CMOBand:
		return Bullish
	case cmo > CMOBand:
		return Bearish
	}
	return Neutral
}

// MACDVote fires only on the bar where the histogram crosses zero.
func MACDVote(prevHist, hist float64) Vote {
	switch {
	case prevHist <= 0 && hist > 0:
		return Bullish
	case prevHist > 0 && hist <= 0:
		return Bearish
	}
	return Neutral
}

// PPOVote never returns Neutral; zero lands on the bearish side.
func PPOVote(ppo float64) Vote {
	v := Neutral
	if ppo >= 0 {
		v = Bullish
	}
	if ppo <= 0 {
		v = Bearish
	}
	return v
}

func RSIVote(rsi float64) Vote { return band(rsi, RSIOversold, RSIOverbought) }

// StochVote is used for both the price and the RSI stochastic.
func StochVote(k, d float64) Vote {
	switch {
	case k <= StochLow && d <= StochLow:
		return Bullish
	case k >= StochHigh && d >= StochHigh:
		return Bearish
	}
	return Neutral
}

func TRIXVote(trix float64) Vote { return sign(trix) }

func ADOSCVote(adosc float64) Vote { return sign(adosc) }

// ClassifyRow builds the code for cur, using prev for the MACD crossing.
// ok is false when any input is undefined.
func ClassifyRow(prev, cur indicators.Row) (Code, bool) {
	if !indicators.Defined(
		cur.AroonUp, cur.AroonDown, cur.BOP, cur.CCI, cur.CMO,
		prev.MACDHist, cur.MACDHist, cur.PPO, cur.RSI,
		cur.SlowK, cur.SlowD, cur.StochRSIK, cur.StochRSID,
		cur.TRIX, cur.ADOSC,
	) {
		return Code{}, false
	}

	var c Code
	c[AROON] = AroonVote(cur.AroonOsc())
	c[BOP] = BOPVote(cur.BOP)
	c[CCI] = CCIVote(cur.CCI)
	c[CMO] = CMOVote(cur.CMO)
	c[MACD] = MACDVote(prev.MACDHist, cur.MACDHist)
	c[PPO] = PPOVote(cur.PPO)
	c[RSI] = RSIVote(cur.RSI)
	c[STOCH] = StochVote(cur.SlowK, cur.SlowD)
	c[STOCHRSI] = StochVote(cur.StochRSIK, cur.StochRSID)
	c[TRIX] = TRIXVote(cur.TRIX)
	c[ADOSC] = ADOSCVote(cur.ADOSC)
	return c, true
}

// Classified is a row that carried enough history to be voted on.
type Classified struct {
	Ticker string
	Time   time.Time
	Index  int // position in the input rows
	Close  float64
	Code   Code
	Trend  indicators.Strength
}

// Classify votes every row that has a full set of indicator values and a
// defined predecessor. Warm-up rows are dropped, never defaulted. The first
// row never classifies because the MACD vote needs the row before it.
func Classify(rows []indicators.Row) []Classified {
	out := make([]Classified, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		code, ok := ClassifyRow(rows[i-1], rows[i])
		if !ok {
			continue
		}
		out = append(out, Classified{
			Ticker: rows[i].Ticker,
			Time:   rows[i].Time,
			Index:  i,
			Close:  rows[i].Close,
			Code:   code,
			Trend:  rows[i].Trend,
		})
	}
	return out
}

// Latest classifies only the final row, the one a live cycle acts on.
func Latest(rows []indicators.Row) (Classified, bool) {
	n := len(rows)
	if n < 2 {
		return Classified{}, false
	}
	code, ok := ClassifyRow(rows[n-2], rows[n-1])
	if !ok {
		return Classified{}, false
	}
	last := rows[n-1]
	return Classified{
		Ticker: last.Ticker,
		Time:   last.Time,
		Index:  n - 1,
		Close:  last.Close,
		Code:   code,
		Trend:  last.Trend,
	}, true
}
