package ensemble

import (
	"math"
	"testing"

	"signal-quorum/internal/domain"
)

func TestAnalyzeEmptyAndSingle(t *testing.T) {
	a := NewCorrelationAnalyzer()

	if res := a.Analyze(nil); res.Score != 0 || res.Redundant {
		t.Fatalf("empty batch should be uncorrelated: %+v", res)
	}

	res := a.Analyze([]domain.TradingSignal{buySignal("solo", 0.8, 0.9, "rsi")})
	if res.Score != 0 || res.Discounts["solo"] != 1.0 {
		t.Fatalf("single signal should carry full weight: %+v", res)
	}
}

func TestAnalyzeDetectsRedundantCluster(t *testing.T) {
	a := NewCorrelationAnalyzer()
	signals := []domain.TradingSignal{
		buySignal("m1", 0.8, 0.9, "macd", "ema", "trend"),
		buySignal("m2", 0.7, 0.85, "macd", "ema", "trend"),
		buySignal("m3", 0.75, 0.8, "macd", "ema", "trend"),
		sellSignal("contrarian", 0.8, 0.9, "volume_zscore"),
	}

	res := a.Analyze(signals)
	if !res.Redundant {
		t.Fatalf("three identical-indicator signals should be flagged redundant, score=%.3f", res.Score)
	}
	if res.Score <= 0 || res.Score > 1 {
		t.Fatalf("score out of range: %.3f", res.Score)
	}

	// Each clustered BUY is discounted; the independent SELL is not.
	if res.Discounts["contrarian"] != 1.0 {
		t.Fatalf("independent signal should keep full weight, got %.3f", res.Discounts["contrarian"])
	}
	for _, id := range []string{"m1", "m2", "m3"} {
		if d := res.Discounts[id]; d >= 1.0 || d <= 0 {
			t.Fatalf("clustered signal %s should be discounted in (0,1), got %.3f", id, d)
		}
	}

	// The cluster's combined discounted mass should be close to a single
	// independent opinion, not three.
	clusterMass := res.Discounts["m1"] + res.Discounts["m2"] + res.Discounts["m3"]
	if clusterMass > 1.5 {
		t.Fatalf("cluster still votes like %.2f independent signals", clusterMass)
	}
}

func TestAnalyzeIndependentSignals(t *testing.T) {
	a := NewCorrelationAnalyzer()
	signals := []domain.TradingSignal{
		buySignal("rsi", 0.8, 0.9, "rsi", "oscillator"),
		buySignal("vol", 0.7, 0.8, "volume_zscore"),
	}

	res := a.Analyze(signals)
	if res.Redundant {
		t.Fatalf("disjoint indicator sets should not be redundant: %+v", res)
	}
	for id, d := range res.Discounts {
		if d != 1.0 {
			t.Fatalf("independent signal %s discounted to %.3f", id, d)
		}
	}
}

func TestIndicatorSimilarityJaccard(t *testing.T) {
	a := buySignal("a", 1, 1, "rsi", "oscillator")
	b := buySignal("b", 1, 1, "rsi", "momentum")
	// Overlap {rsi} over union {rsi, oscillator, momentum}.
	if sim := indicatorSimilarity(&a, &b); math.Abs(sim-1.0/3) > 1e-9 {
		t.Fatalf("expected jaccard 1/3, got %.4f", sim)
	}

	untagged := buySignal("c", 1, 1)
	if sim := indicatorSimilarity(&a, &untagged); sim != 0 {
		t.Fatalf("untagged signal should be independent, got %.4f", sim)
	}
}

func TestAnalyzeMemoizesPerFingerprint(t *testing.T) {
	a := NewCorrelationAnalyzer()
	signals := []domain.TradingSignal{
		buySignal("m1", 0.8, 0.9, "macd"),
		sellSignal("r1", 0.7, 0.8, "rsi"),
	}

	first := a.Analyze(signals)
	if len(a.cache) != 1 {
		t.Fatalf("expected one cache entry, got %d", len(a.cache))
	}

	// Same set in a different order must hit the same entry.
	reordered := []domain.TradingSignal{signals[1], signals[0]}
	second := a.Analyze(reordered)
	if len(a.cache) != 1 {
		t.Fatalf("reordered batch created a new cache entry (%d entries)", len(a.cache))
	}
	if first.Score != second.Score {
		t.Fatalf("cache returned a different result: %.4f vs %.4f", first.Score, second.Score)
	}

	// A genuinely different set gets its own entry.
	a.Analyze([]domain.TradingSignal{buySignal("other", 0.5, 0.5, "bollinger")})
	if len(a.cache) != 2 {
		t.Fatalf("expected a second cache entry, got %d", len(a.cache))
	}
}
