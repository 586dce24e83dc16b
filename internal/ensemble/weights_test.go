package ensemble

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"signal-quorum/internal/domain"
)

type stubHistory struct {
	records []domain.StrategyPerformance
	err     error
	window  int
}

func (h *stubHistory) ListPerformance(_ context.Context, windowDays int) ([]domain.StrategyPerformance, error) {
	h.window = windowDays
	return h.records, h.err
}

func TestPerformanceScoreOrdering(t *testing.T) {
	good := domain.StrategyPerformance{TotalReturn: 0.30, SharpeRatio: 2.0, MaxDrawdown: -0.10}
	flat := domain.StrategyPerformance{}
	bad := domain.StrategyPerformance{TotalReturn: -0.20, SharpeRatio: -1.0, MaxDrawdown: -0.40}

	if !(performanceScore(good) > performanceScore(flat) && performanceScore(flat) > performanceScore(bad)) {
		t.Fatalf("score ordering broken: good=%.3f flat=%.3f bad=%.3f",
			performanceScore(good), performanceScore(flat), performanceScore(bad))
	}
	if s := performanceScore(good); s < -1 || s > 1 {
		t.Fatalf("score out of range: %.3f", s)
	}
}

func TestUpdateWeightsRewardsWinners(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, &stubStrategy{id: "winner"}, 0.5)
	mustAdd(t, r, &stubStrategy{id: "loser"}, 0.5)
	m := NewWeightManager(testTracer, r, nil)

	updates, err := m.UpdateWeights(context.Background(), []domain.StrategyPerformance{
		{StrategyID: "winner", TotalReturn: 0.20, SharpeRatio: 1.5, MaxDrawdown: -0.05, Timeframe: "30d"},
		{StrategyID: "loser", TotalReturn: -0.30, SharpeRatio: -0.8, MaxDrawdown: -0.35, Timeframe: "30d"},
	})
	if err != nil {
		t.Fatalf("update weights: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected one update per strategy, got %d", len(updates))
	}

	byID := map[string]domain.WeightUpdate{}
	for _, u := range updates {
		byID[u.StrategyID] = u
	}
	if byID["winner"].NewWeight <= byID["winner"].OldWeight {
		t.Fatalf("winner should gain weight: %+v", byID["winner"])
	}
	if byID["loser"].NewWeight >= byID["loser"].OldWeight {
		t.Fatalf("loser should lose weight: %+v", byID["loser"])
	}

	after := r.GetStrategies()
	if sum := weightSum(after); math.Abs(sum-1.0) > 1e-3 {
		t.Fatalf("weights must renormalize to 1, got %.6f", sum)
	}
	minW, maxW := r.Bounds()
	for _, sw := range after {
		if sw.Weight < minW-1e-9 || sw.Weight > maxW+1e-9 {
			t.Fatalf("weight %s=%.4f outside [%.2f, %.2f]", sw.StrategyID, sw.Weight, minW, maxW)
		}
	}
}

func TestUpdateWeightsOverweightedWinnerStillGains(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, &stubStrategy{id: "a"}, 0.526)
	mustAdd(t, r, &stubStrategy{id: "b"}, 0.226)
	mustAdd(t, r, &stubStrategy{id: "c"}, 0.248)
	m := NewWeightManager(testTracer, r, nil)

	// The winner already holds the largest allocation. Scaling by relative
	// score must still move it up and the loser down.
	updates, err := m.UpdateWeights(context.Background(), []domain.StrategyPerformance{
		{StrategyID: "a", TotalReturn: 0.20, SharpeRatio: 1.2, MaxDrawdown: -0.05},
		{StrategyID: "b", TotalReturn: -0.30, SharpeRatio: -1.0, MaxDrawdown: -0.30},
	})
	if err != nil {
		t.Fatalf("update weights: %v", err)
	}

	byID := map[string]domain.WeightUpdate{}
	for _, u := range updates {
		byID[u.StrategyID] = u
	}
	if byID["a"].NewWeight <= byID["a"].OldWeight {
		t.Fatalf("overweighted winner must still gain: %+v", byID["a"])
	}
	if byID["b"].NewWeight >= byID["b"].OldWeight {
		t.Fatalf("loser must still lose: %+v", byID["b"])
	}
	if math.Abs(byID["c"].NewWeight-0.248) > 1e-3 {
		t.Fatalf("uncovered strategy should hold its share, got %.4f", byID["c"].NewWeight)
	}
	if sum := weightSum(r.GetStrategies()); math.Abs(sum-1.0) > 1e-3 {
		t.Fatalf("weights must renormalize to 1, got %.6f", sum)
	}
}

func TestUpdateWeightsEmitsUpdateForStrategiesWithoutData(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, &stubStrategy{id: "covered"}, 0.5)
	mustAdd(t, r, &stubStrategy{id: "uncovered"}, 0.5)
	m := NewWeightManager(testTracer, r, nil)

	updates, err := m.UpdateWeights(context.Background(), []domain.StrategyPerformance{
		{StrategyID: "covered", TotalReturn: 0.10, SharpeRatio: 1.0, MaxDrawdown: -0.05},
	})
	if err != nil {
		t.Fatalf("update weights: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("every registered strategy gets an update, got %d", len(updates))
	}

	var uncovered *domain.WeightUpdate
	for i := range updates {
		if updates[i].StrategyID == "uncovered" {
			uncovered = &updates[i]
		}
	}
	if uncovered == nil {
		t.Fatal("no update emitted for the uncovered strategy")
	}
	if !strings.Contains(uncovered.Reasoning, "no performance data") {
		t.Fatalf("uncovered reasoning should say so: %q", uncovered.Reasoning)
	}
	// A single covered strategy redistributes only its own mass, so the
	// uncovered one keeps its share.
	if math.Abs(uncovered.NewWeight-0.5) > 1e-6 {
		t.Fatalf("uncovered strategy should keep its weight, got %.4f", uncovered.NewWeight)
	}
}

func TestUpdateWeightsAllLosersStillNormalizes(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		mustAdd(t, r, &stubStrategy{id: id}, 1.0/3)
	}
	m := NewWeightManager(testTracer, r, nil)

	records := []domain.StrategyPerformance{
		{StrategyID: "a", TotalReturn: -0.50, SharpeRatio: -2.0, MaxDrawdown: -0.60},
		{StrategyID: "b", TotalReturn: -0.55, SharpeRatio: -2.2, MaxDrawdown: -0.70},
		{StrategyID: "c", TotalReturn: -0.60, SharpeRatio: -2.5, MaxDrawdown: -0.80},
	}
	if _, err := m.UpdateWeights(context.Background(), records); err != nil {
		t.Fatalf("update weights: %v", err)
	}
	if sum := weightSum(r.GetStrategies()); math.Abs(sum-1.0) > 1e-3 {
		t.Fatalf("weights must sum to 1 even when everyone lost, got %.6f", sum)
	}
}

func TestUpdateWeightsEmptyRegistry(t *testing.T) {
	m := NewWeightManager(testTracer, NewRegistry(), nil)
	updates, err := m.UpdateWeights(context.Background(), nil)
	if err != nil || updates != nil {
		t.Fatalf("empty registry should be a no-op, got %v, %v", updates, err)
	}
}

func TestRebalanceWeightsPullsFromHistory(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, &stubStrategy{id: "winner"}, 0.5)
	mustAdd(t, r, &stubStrategy{id: "loser"}, 0.5)
	history := &stubHistory{records: []domain.StrategyPerformance{
		{StrategyID: "winner", TotalReturn: 0.25, SharpeRatio: 1.8, MaxDrawdown: -0.08},
		{StrategyID: "loser", TotalReturn: -0.15, SharpeRatio: -0.5, MaxDrawdown: -0.30},
	}}
	m := NewWeightManager(testTracer, r, history)

	updates, err := m.RebalanceWeights(context.Background(), 0)
	if err != nil {
		t.Fatalf("rebalance: %v", err)
	}
	if history.window != 30 {
		t.Fatalf("non-positive window should default to 30 days, got %d", history.window)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
}

func TestRebalanceWeightsHistoryErrors(t *testing.T) {
	r := NewRegistry()
	mustAdd(t, r, &stubStrategy{id: "a"}, 1.0)

	m := NewWeightManager(testTracer, r, nil)
	if _, err := m.RebalanceWeights(context.Background(), 7); err == nil {
		t.Fatal("expected error without a history source")
	}

	sentinel := errors.New("pg down")
	m = NewWeightManager(testTracer, r, &stubHistory{err: sentinel})
	if _, err := m.RebalanceWeights(context.Background(), 7); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped history error, got %v", err)
	}
}
