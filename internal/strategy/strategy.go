package strategy

import (
	"context"
	"fmt"
	"time"

	"signal-quorum/internal/domain"
)

// CandleSource supplies recent candle history for a symbol, newest last.
// The market-data service implements it.
type CandleSource interface {
	RecentCandles(ctx context.Context, symbol string, limit int) ([]domain.Candle, error)
}

// newSignal builds a signal stamped with the conventional metadata the
// aggregator keys on: strategy id, indicator tags and structured features.
func newSignal(
	strategyID string,
	t domain.SignalType,
	strength, confidence float64,
	md domain.MarketData,
	reasoning string,
	indicators []string,
	features map[string]float64,
) *domain.TradingSignal {
	ts := md.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	meta := map[string]any{
		domain.MetaStrategy:   strategyID,
		domain.MetaIndicators: indicators,
	}
	if len(features) > 0 {
		meta[domain.MetaFeatures] = features
	}
	return &domain.TradingSignal{
		Type:       t,
		Strength:   clamp01(strength),
		Confidence: clamp01(confidence),
		Timestamp:  ts,
		Symbol:     md.Symbol,
		Price:      md.Close,
		Reasoning:  reasoning,
		Metadata:   meta,
	}
}

// validSignal is the shared ValidateSignal implementation: a usable signal
// has a known type and bounded strength and confidence.
func validSignal(sig *domain.TradingSignal) bool {
	if sig == nil || !sig.Type.IsValid() {
		return false
	}
	if sig.Strength < 0 || sig.Strength > 1 {
		return false
	}
	return sig.Confidence >= 0 && sig.Confidence <= 1
}

// closesAndVolumes unpacks the candle history, appending the live snapshot as
// the most recent bar.
func closesAndVolumes(candles []domain.Candle, md domain.MarketData) (closes, volumes []float64) {
	closes = make([]float64, 0, len(candles)+1)
	volumes = make([]float64, 0, len(candles)+1)
	for i := range candles {
		closes = append(closes, candles[i].Close)
		volumes = append(volumes, candles[i].Volume)
	}
	closes = append(closes, md.Close)
	volumes = append(volumes, md.Volume)
	return closes, volumes
}

func fetchHistory(ctx context.Context, source CandleSource, symbol string, limit int) ([]domain.Candle, error) {
	if source == nil {
		return nil, fmt.Errorf("no candle source configured")
	}
	candles, err := source.RecentCandles(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %d candles for %s: %w", limit, symbol, err)
	}
	return candles, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
