package strategy

import (
	"context"
	"fmt"
	"math"

	"signal-quorum/internal/domain"
	"signal-quorum/internal/ta"
)

const (
	defaultMomentumPeriod = 10
	momentumThreshold     = 0.02
)

// Momentum buys strong moves and sells weak ones, sizing conviction by the
// rate of change and confirming with a volume z-score.
type Momentum struct {
	source CandleSource
	period int
}

func NewMomentum(source CandleSource) *Momentum {
	return &Momentum{source: source, period: defaultMomentumPeriod}
}

func (s *Momentum) ID() string { return "momentum" }

func (s *Momentum) GenerateSignal(ctx context.Context, md domain.MarketData) (*domain.TradingSignal, error) {
	candles, err := fetchHistory(ctx, s.source, md.Symbol, s.period*3)
	if err != nil {
		return nil, err
	}
	closes, volumes := closesAndVolumes(candles, md)

	roc := ta.ROCSeries(closes, s.period)
	if roc == nil {
		return nil, fmt.Errorf("momentum needs more than %d closes, have %d", s.period, len(closes))
	}
	last := len(closes) - 1
	rate := roc[last]
	if math.IsNaN(rate) {
		return nil, fmt.Errorf("momentum not warmed up for %s", md.Symbol)
	}

	volumeZ := 0.0
	if zs := ta.VolumeZScores(volumes, s.period); zs != nil && !math.IsNaN(zs[last]) {
		volumeZ = zs[last]
	}

	magnitude := clamp01(math.Abs(rate) / (momentumThreshold * 5))
	confidence := clamp01(0.5 + 0.3*magnitude + 0.1*clamp01(volumeZ/3))
	features := map[string]float64{
		"roc":      rate,
		"volume_z": volumeZ,
	}
	indicators := []string{"roc", "volume_zscore"}

	switch {
	case rate >= momentumThreshold:
		return newSignal(s.ID(), domain.SignalBuy,
			0.4+0.6*magnitude, confidence, md,
			fmt.Sprintf("price up %.1f%% over %d bars", rate*100, s.period),
			indicators, features,
		), nil
	case rate <= -momentumThreshold:
		return newSignal(s.ID(), domain.SignalSell,
			0.4+0.6*magnitude, confidence, md,
			fmt.Sprintf("price down %.1f%% over %d bars", math.Abs(rate)*100, s.period),
			indicators, features,
		), nil
	default:
		return newSignal(s.ID(), domain.SignalHold, 0.2, 0.5, md,
			fmt.Sprintf("rate of change %.2f%% below the %.0f%% signal threshold",
				rate*100, momentumThreshold*100),
			indicators, features,
		), nil
	}
}

func (s *Momentum) ValidateSignal(sig *domain.TradingSignal) bool {
	return validSignal(sig)
}
