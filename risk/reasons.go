package risk

// Reason explains a skip.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonTooManyPositions Reason = "too many existing positions"
	ReasonStopBreached     Reason = "stop-loss already breached today"
	ReasonUnaffordable     Reason = "stock unaffordable at current allocation"
	ReasonRiskOverReward   Reason = "risk outweighs reward"
	ReasonOrderFailed      Reason = "buy order failed"
	ReasonNoPriceData      Reason = "price or intraday range unavailable"
)

type reasonPolicy struct {
	code      string
	retryable bool
}

// Whether a skipped ticker is reconsidered later in the session is decided
// here and nowhere else.
var reasonTable = map[Reason]reasonPolicy{
	ReasonTooManyPositions: {"TOO_MANY_POSITIONS", true},
	ReasonStopBreached:     {"STOP_BREACHED", true},
	ReasonUnaffordable:     {"UNAFFORDABLE", true},
	ReasonRiskOverReward:   {"RISK_OVER_REWARD", true},
	ReasonNoPriceData:      {"NO_PRICE_DATA", true},
	ReasonOrderFailed:      {"ORDER_FAILED", false},
}

// Code is a stable identifier for logs and metrics labels.
func (r Reason) Code() string {
	if r == ReasonNone {
		return "NONE"
	}
	if p, ok := reasonTable[r]; ok {
		return p.code
	}
	return "UNKNOWN"
}

// Retryable reports whether the ticker may be evaluated again this session.
// Unknown reasons are not retried.
func (r Reason) Retryable() bool {
	p, ok := reasonTable[r]
	return ok && p.retryable
}

// Reasons lists every known skip reason.
func Reasons() []Reason {
	return []Reason{
		ReasonTooManyPositions,
		ReasonStopBreached,
		ReasonUnaffordable,
		ReasonRiskOverReward,
		ReasonOrderFailed,
		ReasonNoPriceData,
	}
}
