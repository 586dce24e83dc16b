package ensemble

import (
	"context"
	"errors"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("ensemble-test")

func testMarketData() domain.MarketData {
	return domain.MarketData{
		Symbol:    "BTC",
		Timestamp: time.Now().UTC(),
		Open:      49500,
		High:      50500,
		Low:       49000,
		Close:     50000,
		Volume:    1200,
	}
}

// stubStrategy is a scriptable ensemble member for tests.
type stubStrategy struct {
	id         string
	signal     *domain.TradingSignal
	err        error
	panics     bool
	delay      time.Duration
	invalid    bool
	generated  int
	validateFn func(*domain.TradingSignal) bool
}

func (s *stubStrategy) ID() string { return s.id }

func (s *stubStrategy) GenerateSignal(ctx context.Context, md domain.MarketData) (*domain.TradingSignal, error) {
	s.generated++
	if s.panics {
		panic("stub strategy exploded")
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.signal == nil {
		return nil, errors.New("no scripted signal")
	}
	sig := *s.signal
	if sig.Symbol == "" {
		sig.Symbol = md.Symbol
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = md.Timestamp
	}
	return &sig, nil
}

func (s *stubStrategy) ValidateSignal(sig *domain.TradingSignal) bool {
	if s.validateFn != nil {
		return s.validateFn(sig)
	}
	return !s.invalid
}

func buySignal(strategy string, strength, confidence float64, indicators ...string) domain.TradingSignal {
	return scriptedSignal(domain.SignalBuy, strategy, strength, confidence, indicators...)
}

func sellSignal(strategy string, strength, confidence float64, indicators ...string) domain.TradingSignal {
	return scriptedSignal(domain.SignalSell, strategy, strength, confidence, indicators...)
}

func scriptedSignal(t domain.SignalType, strategy string, strength, confidence float64, indicators ...string) domain.TradingSignal {
	meta := map[string]any{domain.MetaStrategy: strategy}
	if len(indicators) > 0 {
		meta[domain.MetaIndicators] = indicators
	}
	return domain.TradingSignal{
		Type:       t,
		Strength:   strength,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
		Symbol:     "BTC",
		Price:      50000,
		Metadata:   meta,
	}
}

func weightSum(weights []domain.StrategyWeight) float64 {
	total := 0.0
	for _, w := range weights {
		total += w.Weight
	}
	return total
}
