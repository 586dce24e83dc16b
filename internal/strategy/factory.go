package strategy

import (
	"fmt"

	"signal-quorum/internal/ensemble"
)

// Kinds lists the built-in strategy kinds available to New.
var Kinds = []string{"rsi-reversion", "macd-trend", "bollinger-breakout", "momentum"}

// New builds a built-in strategy by kind. Used by the API surface to register
// strategies at runtime.
func New(kind string, source CandleSource) (ensemble.Strategy, error) {
	switch kind {
	case "rsi-reversion":
		return NewRSIReversion(source), nil
	case "macd-trend":
		return NewMACDTrend(source), nil
	case "bollinger-breakout":
		return NewBollingerBreakout(source), nil
	case "momentum":
		return NewMomentum(source), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
}

// Defaults instantiates every built-in strategy against the same candle
// source, for bootstrapping a fresh ensemble.
func Defaults(source CandleSource) []ensemble.Strategy {
	out := make([]ensemble.Strategy, 0, len(Kinds))
	for _, kind := range Kinds {
		s, err := New(kind, source)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
