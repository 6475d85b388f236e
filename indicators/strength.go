package indicators

import "math"

// Strength labels the trend strength implied by ADX.
type Strength int

const (
	Undefined Strength = iota
	Absent
	Strong
	VeryStrong
	ExtremelyStrong
)

var strengthNames = [...]string{
	Undefined:       "",
	Absent:          "Absent or Weak Trend",
	Strong:          "Strong Trend",
	VeryStrong:      "Very Strong Trend",
	ExtremelyStrong: "Extremely Strong Trend",
}

func (s Strength) String() string {
	if s < 0 || int(s) >= len(strengthNames) {
		return ""
	}
	return strengthNames[s]
}

// MarshalText writes the label so rows serialize readably.
func (s Strength) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TrendStrength buckets an ADX value at 25, 50 and 75.
func TrendStrength(adx float64) Strength {
	switch {
	case math.IsNaN(adx):
		return Undefined
	case adx >= 75:
		return ExtremelyStrong
	case adx >= 50:
		return VeryStrong
	case adx >= 25:
		return Strong
	default:
		return Absent
	}
}
