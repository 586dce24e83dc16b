package strategy

import (
	"context"
	"fmt"
	"math"

	"signal-quorum/internal/domain"
	"signal-quorum/internal/ta"
)

const (
	defaultMACDFast   = 12
	defaultMACDSlow   = 26
	defaultMACDSignal = 9
)

// MACDTrend follows momentum via the MACD histogram: a crossover sets the
// direction, histogram size sets the conviction.
type MACDTrend struct {
	source CandleSource
	fast   int
	slow   int
	signal int
}

func NewMACDTrend(source CandleSource) *MACDTrend {
	return &MACDTrend{
		source: source,
		fast:   defaultMACDFast,
		slow:   defaultMACDSlow,
		signal: defaultMACDSignal,
	}
}

func (s *MACDTrend) ID() string { return "macd-trend" }

func (s *MACDTrend) GenerateSignal(ctx context.Context, md domain.MarketData) (*domain.TradingSignal, error) {
	candles, err := fetchHistory(ctx, s.source, md.Symbol, s.slow*3)
	if err != nil {
		return nil, err
	}
	closes, _ := closesAndVolumes(candles, md)
	if len(closes) < s.slow+s.signal {
		return nil, fmt.Errorf("macd needs %d closes, have %d", s.slow+s.signal, len(closes))
	}

	macd, signalLine := ta.MACDSeries(closes, s.fast, s.slow, s.signal)
	last := len(closes) - 1
	hist := macd[last] - signalLine[last]
	prevHist := macd[last-1] - signalLine[last-1]

	// Normalize the histogram against price so conviction is comparable
	// across assets.
	scale := math.Abs(hist) / md.Close * 1000
	strength := clamp01(0.3 + scale)
	crossed := (hist >= 0) != (prevHist >= 0)
	confidence := 0.55
	if crossed {
		confidence = 0.7
	}

	features := map[string]float64{
		"macd_histogram": hist,
		"macd_line":      macd[last],
	}
	indicators := []string{"macd", "ema"}

	switch {
	case hist > 0:
		reason := fmt.Sprintf("MACD %.4f above signal %.4f", macd[last], signalLine[last])
		if crossed {
			reason = "bullish MACD crossover: " + reason
		}
		return newSignal(s.ID(), domain.SignalBuy, strength, confidence, md, reason, indicators, features), nil
	case hist < 0:
		reason := fmt.Sprintf("MACD %.4f below signal %.4f", macd[last], signalLine[last])
		if crossed {
			reason = "bearish MACD crossover: " + reason
		}
		return newSignal(s.ID(), domain.SignalSell, strength, confidence, md, reason, indicators, features), nil
	default:
		return newSignal(s.ID(), domain.SignalHold, 0.2, 0.5, md,
			"MACD sitting on its signal line", indicators, features), nil
	}
}

func (s *MACDTrend) ValidateSignal(sig *domain.TradingSignal) bool {
	return validSignal(sig)
}
