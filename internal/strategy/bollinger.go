package strategy

import (
	"context"
	"fmt"
	"math"

	"signal-quorum/internal/domain"
	"signal-quorum/internal/ta"
)

const (
	defaultBollingerPeriod  = 20
	defaultBollingerStdDevs = 2.0
)

// BollingerBreakout trades band breakouts in the direction of the break,
// treating volume expansion as confirmation.
type BollingerBreakout struct {
	source  CandleSource
	period  int
	stdDevs float64
}

func NewBollingerBreakout(source CandleSource) *BollingerBreakout {
	return &BollingerBreakout{
		source:  source,
		period:  defaultBollingerPeriod,
		stdDevs: defaultBollingerStdDevs,
	}
}

func (s *BollingerBreakout) ID() string { return "bollinger-breakout" }

func (s *BollingerBreakout) GenerateSignal(ctx context.Context, md domain.MarketData) (*domain.TradingSignal, error) {
	candles, err := fetchHistory(ctx, s.source, md.Symbol, s.period*2)
	if err != nil {
		return nil, err
	}
	closes, volumes := closesAndVolumes(candles, md)
	if len(closes) < s.period {
		return nil, fmt.Errorf("bollinger needs %d closes, have %d", s.period, len(closes))
	}

	middle, upper, lower := ta.BollingerSeries(closes, s.period, s.stdDevs)
	last := len(closes) - 1
	if math.IsNaN(middle[last]) {
		return nil, fmt.Errorf("bollinger bands not warmed up for %s", md.Symbol)
	}

	bandWidth := upper[last] - lower[last]
	if bandWidth <= 0 {
		return newSignal(s.ID(), domain.SignalHold, 0.1, 0.4, md,
			"bands collapsed, no breakout to trade", []string{"bollinger"}, nil), nil
	}

	volumeConfirm := 0.0
	if zs := ta.VolumeZScores(volumes, s.period); zs != nil && !math.IsNaN(zs[last]) {
		volumeConfirm = clamp01(zs[last] / 4)
	}

	// Position of the close inside the band, 0 at the lower band, 1 at the
	// upper. Values outside [0, 1] are breakouts.
	pos := (closes[last] - lower[last]) / bandWidth
	features := map[string]float64{
		"band_position": pos - 0.5,
		"volume_z":      volumeConfirm * 4,
	}
	indicators := []string{"bollinger", "volume"}

	switch {
	case pos > 1:
		overshoot := clamp01(pos - 1)
		return newSignal(s.ID(), domain.SignalBuy,
			0.5+0.3*overshoot+0.2*volumeConfirm,
			0.5+0.2*overshoot+0.2*volumeConfirm,
			md,
			fmt.Sprintf("close %.2f broke above upper band %.2f", closes[last], upper[last]),
			indicators, features,
		), nil
	case pos < 0:
		overshoot := clamp01(-pos)
		return newSignal(s.ID(), domain.SignalSell,
			0.5+0.3*overshoot+0.2*volumeConfirm,
			0.5+0.2*overshoot+0.2*volumeConfirm,
			md,
			fmt.Sprintf("close %.2f broke below lower band %.2f", closes[last], lower[last]),
			indicators, features,
		), nil
	default:
		return newSignal(s.ID(), domain.SignalHold, 0.2, 0.5, md,
			fmt.Sprintf("close %.2f inside the bands", closes[last]),
			indicators, features,
		), nil
	}
}

func (s *BollingerBreakout) ValidateSignal(sig *domain.TradingSignal) bool {
	return validSignal(sig)
}
