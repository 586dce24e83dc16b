package strategy

import (
	"context"
	"fmt"
	"math"

	"signal-quorum/internal/domain"
	"signal-quorum/internal/ta"
)

const (
	defaultRSIPeriod     = 14
	defaultRSIOversold   = 30.0
	defaultRSIOverbought = 70.0
)

// RSIReversion trades mean reversion on the relative strength index: buy
// oversold, sell overbought, hold in between.
type RSIReversion struct {
	source     CandleSource
	period     int
	oversold   float64
	overbought float64
}

func NewRSIReversion(source CandleSource) *RSIReversion {
	return &RSIReversion{
		source:     source,
		period:     defaultRSIPeriod,
		oversold:   defaultRSIOversold,
		overbought: defaultRSIOverbought,
	}
}

func (s *RSIReversion) ID() string { return "rsi-reversion" }

func (s *RSIReversion) GenerateSignal(ctx context.Context, md domain.MarketData) (*domain.TradingSignal, error) {
	candles, err := fetchHistory(ctx, s.source, md.Symbol, s.period*3)
	if err != nil {
		return nil, err
	}
	closes, _ := closesAndVolumes(candles, md)

	series := ta.RSISeries(closes, s.period)
	if series == nil {
		return nil, fmt.Errorf("rsi needs more than %d closes, have %d", s.period, len(closes))
	}
	rsi := series[len(series)-1]
	if math.IsNaN(rsi) {
		return nil, fmt.Errorf("rsi not warmed up for %s", md.Symbol)
	}

	features := map[string]float64{
		// Centered so sign encodes direction for feature cohesion.
		"rsi_distance": (50 - rsi) / 50,
	}

	switch {
	case rsi <= s.oversold:
		depth := (s.oversold - rsi) / s.oversold
		return newSignal(s.ID(), domain.SignalBuy,
			0.5+0.5*depth,
			0.55+0.4*depth,
			md,
			fmt.Sprintf("RSI %.1f below oversold threshold %.0f", rsi, s.oversold),
			[]string{"rsi", "oscillator"},
			features,
		), nil
	case rsi >= s.overbought:
		depth := (rsi - s.overbought) / (100 - s.overbought)
		return newSignal(s.ID(), domain.SignalSell,
			0.5+0.5*depth,
			0.55+0.4*depth,
			md,
			fmt.Sprintf("RSI %.1f above overbought threshold %.0f", rsi, s.overbought),
			[]string{"rsi", "oscillator"},
			features,
		), nil
	default:
		return newSignal(s.ID(), domain.SignalHold,
			0.2,
			0.5,
			md,
			fmt.Sprintf("RSI %.1f inside neutral band", rsi),
			[]string{"rsi", "oscillator"},
			features,
		), nil
	}
}

func (s *RSIReversion) ValidateSignal(sig *domain.TradingSignal) bool {
	return validSignal(sig)
}
