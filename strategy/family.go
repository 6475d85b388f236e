// Package strategy holds the catalogue of every strategy code, the family
// each one belongs to, and the historical performance of each family.
package strategy

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/ouro/signal"
)

// Family is the set of indicators voting bullish in a code, one bit per
// code position.
type Family uint16

// NumFamilies is 2^11.
const NumFamilies = 1 << signal.NumIndicators

// FamilyOf returns the bullish subset of c.
func FamilyOf(c signal.Code) Family {
	var f Family
	for i, v := range c {
		if v == signal.Bullish {
			f |= 1 << i
		}
	}
	return f
}

// Has reports whether ind is in the family.
func (f Family) Has(ind signal.Indicator) bool {
	return f&(1<<ind) != 0
}

// Size is the number of bullish indicators.
func (f Family) Size() int {
	n := 0
	for i := 0; i < signal.NumIndicators; i++ {
		if f&(1<<i) != 0 {
			n++
		}
	}
	return n
}

// String is the label used by the performance table: "+NAME" for every
// member in code order, e.g. "+AROON+RSI". The empty family is "".
func (f Family) String() string {
	var sb strings.Builder
	for _, ind := range signal.Indicators() {
		if f.Has(ind) {
			sb.WriteByte('+')
			sb.WriteString(ind.String())
		}
	}
	return sb.String()
}

// ParseFamily reads a family label. Members must appear in code order.
func ParseFamily(s string) (Family, error) {
	if s == "" {
		return 0, nil
	}
	if !strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("family %q: must start with '+'", s)
	}
	var f Family
	next := 0
	for _, name := range strings.Split(s[1:], "+") {
		found := false
		for i := next; i < signal.NumIndicators; i++ {
			if signal.Indicator(i).String() == name {
				f |= 1 << i
				next = i + 1
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("family %q: unknown or out of order member %q", s, name)
		}
	}
	return f, nil
}

// Codes lists every code whose bullish subset is exactly f: members vote
// bullish, the rest vote bearish or neutral.
func (f Family) Codes() []signal.Code {
	var free []int
	var base signal.Code
	for i := 0; i < signal.NumIndicators; i++ {
		if f.Has(signal.Indicator(i)) {
			base[i] = signal.Bullish
		} else {
			free = append(free, i)
		}
	}
	out := make([]signal.Code, 0, 1<<len(free))
	for mask := 0; mask < 1<<len(free); mask++ {
		c := base
		for j, pos := range free {
			if mask&(1<<j) != 0 {
				c[pos] = signal.Neutral
			} else {
				c[pos] = signal.Bearish
			}
		}
		out = append(out, c)
	}
	return out
}

// SignedName describes c as "+NAME" for bullish and "-NAME" for bearish
// positions, omitting neutral ones.
func SignedName(c signal.Code) string {
	var sb strings.Builder
	for i, v := range c {
		switch v {
		case signal.Bullish:
			sb.WriteByte('+')
		case signal.Bearish:
			sb.WriteByte('-')
		default:
			continue
		}
		sb.WriteString(signal.Indicator(i).String())
	}
	return sb.String()
}
