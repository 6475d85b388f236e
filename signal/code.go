// Package signal turns indicator rows into ternary votes and the fixed-width
// strategy codes built from them.
package signal

import (
	"errors"
	"fmt"
)

// Vote is a ternary classification of one indicator.
type Vote int8

const (
	Bearish Vote = -1
	Neutral Vote = 0
	Bullish Vote = 1
)

// Char maps a vote to its code letter: A bearish, B neutral, C bullish.
func (v Vote) Char() byte {
	switch v {
	case Bearish:
		return 'A'
	case Bullish:
		return 'C'
	default:
		return 'B'
	}
}

func voteOf(c byte) (Vote, bool) {
	switch c {
	case 'A':
		return Bearish, true
	case 'B':
		return Neutral, true
	case 'C':
		return Bullish, true
	}
	return 0, false
}

// Indicator is a position in a strategy code.
type Indicator int

// The order is part of the code format. Family labels, the catalogue and
// the performance table all key off it.
const (
	AROON Indicator = iota
	BOP
	CCI
	CMO
	MACD
	PPO
	RSI
	STOCH
	STOCHRSI
	TRIX
	ADOSC

	NumIndicators = 11
)

var indicatorNames = [NumIndicators]string{
	"AROON", "BOP", "CCI", "CMO", "MACD", "PPO", "RSI", "STOCH", "STOCHRSI", "TRIX", "ADOSC",
}

func (i Indicator) String() string {
	if i < 0 || int(i) >= NumIndicators {
		return fmt.Sprintf("Indicator(%d)", int(i))
	}
	return indicatorNames[i]
}

// Indicators returns every code position in order.
func Indicators() []Indicator {
	out := make([]Indicator, NumIndicators)
	for i := range out {
		out[i] = Indicator(i)
	}
	return out
}

// NumCodes is 3^11, the size of the code space.
const NumCodes = 177147

// Code holds one vote per indicator. It is comparable and usable as a map key.
type Code [NumIndicators]Vote

var ErrBadCode = errors.New("invalid strategy code")

// String renders the 11-letter A/B/C form.
func (c Code) String() string {
	var b [NumIndicators]byte
	for i, v := range c {
		b[i] = v.Char()
	}
	return string(b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(b []byte) error {
	parsed, err := ParseCode(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCode reads the 11-letter form.
func ParseCode(s string) (Code, error) {
	var c Code
	if len(s) != NumIndicators {
		return c, fmt.Errorf("%w: %q has %d letters", ErrBadCode, s, len(s))
	}
	for i := 0; i < NumIndicators; i++ {
		v, ok := voteOf(s[i])
		if !ok {
			return c, fmt.Errorf("%w: %q position %d", ErrBadCode, s, i)
		}
		c[i] = v
	}
	return c, nil
}

// Valid reports whether every position holds a ternary vote.
func (c Code) Valid() bool {
	for _, v := range c {
		if v < Bearish || v > Bullish {
			return false
		}
	}
	return true
}

// Index is the position of c in lexicographic A..C order, 0 for AAAAAAAAAAA
// and NumCodes-1 for CCCCCCCCCCC.
func (c Code) Index() int {
	idx := 0
	for _, v := range c {
		idx = idx*3 + int(v+1)
	}
	return idx
}

// CodeAt is the inverse of Index.
func CodeAt(idx int) (Code, error) {
	var c Code
	if idx < 0 || idx >= NumCodes {
		return c, fmt.Errorf("%w: index %d", ErrBadCode, idx)
	}
	for i := NumIndicators - 1; i >= 0; i-- {
		c[i] = Vote(idx%3) - 1
		idx /= 3
	}
	return c, nil
}

// Score sums the votes, from -11 to 11.
func (c Code) Score() int {
	s := 0
	for _, v := range c {
		s += int(v)
	}
	return s
}

// Vote returns the vote at position i.
func (c Code) Vote(i Indicator) Vote {
	return c[i]
}
