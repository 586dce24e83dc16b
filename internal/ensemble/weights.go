package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Performance score blend. The exact mix is a documented judgment call:
// reward absolute return and risk-adjusted return, penalize drawdown.
// tanh keeps one outlier strategy from swallowing the whole weight budget.
const (
	scoreReturnWeight   = 0.45
	scoreSharpeWeight   = 0.35
	scoreDrawdownWeight = 0.20
)

// performanceScore maps a performance record to roughly [-1, 1].
func performanceScore(p domain.StrategyPerformance) float64 {
	return scoreReturnWeight*math.Tanh(2*p.TotalReturn) +
		scoreSharpeWeight*math.Tanh(p.SharpeRatio/2) -
		scoreDrawdownWeight*clamp01(math.Abs(p.MaxDrawdown))
}

// PerformanceHistory supplies windowed performance records for rebalancing.
type PerformanceHistory interface {
	ListPerformance(ctx context.Context, windowDays int) ([]domain.StrategyPerformance, error)
}

// WeightManager recomputes the registry's weights from performance records.
// Winners gain weight, losers lose it, and the bound/sum invariants hold
// afterwards no matter how pathological the inputs are (clamping, never
// erroring).
type WeightManager struct {
	tracer   trace.Tracer
	registry *Registry
	history  PerformanceHistory
}

func NewWeightManager(tracer trace.Tracer, registry *Registry, history PerformanceHistory) *WeightManager {
	return &WeightManager{tracer: tracer, registry: registry, history: history}
}

// UpdateWeights redistributes weight across all registered strategies by
// scaling each strategy's current weight with its relative performance score.
// Every registered strategy gets exactly one WeightUpdate, including ones
// without a performance record; those keep their weight, modulo the final
// renormalization.
func (m *WeightManager) UpdateWeights(ctx context.Context, records []domain.StrategyPerformance) ([]domain.WeightUpdate, error) {
	_, span := m.tracer.Start(ctx, "weight-manager.update-weights")
	defer span.End()

	before := m.registry.GetStrategies()
	if len(before) == 0 {
		return nil, nil
	}

	byID := make(map[string]domain.StrategyPerformance, len(records))
	for _, rec := range records {
		byID[rec.StrategyID] = rec
	}

	// Relative scores, shifted positive so proportional redistribution is
	// well defined even when every strategy lost money.
	relScores := make(map[string]float64, len(before))
	scaledSum := 0.0
	dataMass := 0.0
	for _, sw := range before {
		if rec, ok := byID[sw.StrategyID]; ok {
			rel := performanceScore(rec) + 1.0
			if rel < 0.05 {
				rel = 0.05
			}
			relScores[sw.StrategyID] = rel
			scaledSum += sw.Weight * rel
			dataMass += sw.Weight
		}
	}

	// Each covered strategy's existing weight is scaled by its relative
	// score, then the covered mass is split over the scaled weights. Scaling
	// rather than resetting keeps the direction monotonic: an above-average
	// score always gains weight, a below-average one always loses it,
	// whatever the starting allocation was.
	targets := make(map[string]float64, len(before))
	for _, sw := range before {
		if rel, ok := relScores[sw.StrategyID]; ok && scaledSum > 0 {
			targets[sw.StrategyID] = dataMass * sw.Weight * rel / scaledSum
		} else {
			targets[sw.StrategyID] = sw.Weight
		}
	}

	m.registry.SetWeights(targets)

	after := make(map[string]float64, len(before))
	for _, sw := range m.registry.GetStrategies() {
		after[sw.StrategyID] = sw.Weight
	}

	updates := make([]domain.WeightUpdate, 0, len(before))
	for _, sw := range before {
		update := domain.WeightUpdate{
			StrategyID: sw.StrategyID,
			OldWeight:  sw.Weight,
			NewWeight:  after[sw.StrategyID],
		}
		if rec, ok := byID[sw.StrategyID]; ok {
			update.Reasoning = fmt.Sprintf(
				"performance score %.3f (return %.1f%%, sharpe %.2f, drawdown %.1f%%) over %s",
				performanceScore(rec), rec.TotalReturn*100, rec.SharpeRatio,
				math.Abs(rec.MaxDrawdown)*100, timeframeOrDefault(rec.Timeframe),
			)
		} else {
			update.Reasoning = "no performance data available; weight carried over before renormalization"
		}
		updates = append(updates, update)
	}
	return updates, nil
}

// RebalanceWeights runs the same redistribution against a rolling window of
// records pulled from the performance-history collaborator. Intended for
// periodic invocation.
func (m *WeightManager) RebalanceWeights(ctx context.Context, windowDays int) ([]domain.WeightUpdate, error) {
	_, span := m.tracer.Start(ctx, "weight-manager.rebalance-weights")
	defer span.End()

	if m.history == nil {
		return nil, errors.New("rebalance requires a performance history source")
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	records, err := m.history.ListPerformance(ctx, windowDays)
	if err != nil {
		return nil, fmt.Errorf("list performance for %dd window: %w", windowDays, err)
	}
	return m.UpdateWeights(ctx, records)
}

func timeframeOrDefault(tf string) string {
	if tf == "" {
		return "unspecified timeframe"
	}
	return tf
}
