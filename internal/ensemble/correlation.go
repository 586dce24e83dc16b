package ensemble

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"signal-quorum/internal/domain"
)

// redundancyThreshold is the batch correlation score above which the signal
// set is reported as carrying redundant opinions.
const redundancyThreshold = 0.3

// correlationCacheLimit bounds the memo table; the table is flushed wholesale
// when it grows past the limit.
const correlationCacheLimit = 256

// CorrelationResult describes how redundant a batch of signals is and how
// much each signal's vote should be discounted for it.
type CorrelationResult struct {
	// Score is the mean pairwise similarity across the batch, in [0, 1].
	Score float64
	// Redundant is set when Score crosses the redundancy threshold.
	Redundant bool
	// Discounts maps strategy id to a multiplier in (0, 1] applied to that
	// signal's vote, so a cluster of correlated same-direction signals
	// carries roughly the vote mass of one independent signal.
	Discounts map[string]float64
}

// CorrelationAnalyzer estimates pairwise signal similarity from shared
// indicator tags. Results are memoized per signal-set fingerprint, so
// re-analyzing an unchanged set is a map lookup.
type CorrelationAnalyzer struct {
	mu    sync.Mutex
	cache map[uint64]CorrelationResult
}

func NewCorrelationAnalyzer() *CorrelationAnalyzer {
	return &CorrelationAnalyzer{cache: make(map[uint64]CorrelationResult)}
}

// Analyze computes the batch correlation score and per-signal discounts.
func (a *CorrelationAnalyzer) Analyze(signals []domain.TradingSignal) CorrelationResult {
	if len(signals) == 0 {
		return CorrelationResult{Discounts: map[string]float64{}}
	}

	key := fingerprint(signals)

	a.mu.Lock()
	if cached, ok := a.cache[key]; ok {
		a.mu.Unlock()
		return cached
	}
	a.mu.Unlock()

	result := analyze(signals)

	a.mu.Lock()
	if len(a.cache) >= correlationCacheLimit {
		a.cache = make(map[uint64]CorrelationResult)
	}
	a.cache[key] = result
	a.mu.Unlock()

	return result
}

func analyze(signals []domain.TradingSignal) CorrelationResult {
	discounts := make(map[string]float64, len(signals))
	for i := range signals {
		discounts[signalKey(&signals[i], i)] = 1.0
	}
	if len(signals) < 2 {
		return CorrelationResult{Discounts: discounts}
	}

	pairSum := 0.0
	pairCount := 0
	for i := 0; i < len(signals); i++ {
		for j := i + 1; j < len(signals); j++ {
			pairSum += indicatorSimilarity(&signals[i], &signals[j])
			pairCount++
		}
	}
	score := pairSum / float64(pairCount)

	// Discount each signal by the correlated mass of same-direction peers:
	// five fully correlated BUY signals each end up at 1/5, together worth
	// one independent opinion.
	for i := range signals {
		correlated := 0.0
		for j := range signals {
			if i == j || signals[i].Type != signals[j].Type {
				continue
			}
			correlated += indicatorSimilarity(&signals[i], &signals[j])
		}
		discounts[signalKey(&signals[i], i)] = 1.0 / (1.0 + correlated)
	}

	return CorrelationResult{
		Score:     score,
		Redundant: score > redundancyThreshold,
		Discounts: discounts,
	}
}

// indicatorSimilarity is the Jaccard overlap of the two signals' indicator
// tag sets. Signals without tags are treated as independent.
func indicatorSimilarity(a, b *domain.TradingSignal) float64 {
	tagsA := a.Indicators()
	tagsB := b.Indicators()
	if len(tagsA) == 0 || len(tagsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tagsA))
	for _, t := range tagsA {
		setA[strings.ToLower(t)] = struct{}{}
	}
	intersect := 0
	setB := make(map[string]struct{}, len(tagsB))
	for _, t := range tagsB {
		lt := strings.ToLower(t)
		if _, dup := setB[lt]; dup {
			continue
		}
		setB[lt] = struct{}{}
		if _, ok := setA[lt]; ok {
			intersect++
		}
	}
	union := len(setA) + len(setB) - intersect
	if union == 0 {
		return 0
	}
	return float64(intersect) / float64(union)
}

// signalKey identifies a signal within a batch for the discount map. Signals
// without a strategy id fall back to a positional key.
func signalKey(s *domain.TradingSignal, index int) string {
	if id := s.StrategyID(); id != "" {
		return id
	}
	return fmt.Sprintf("#%d", index)
}

// fingerprint hashes the order-independent identity of a signal set.
func fingerprint(signals []domain.TradingSignal) uint64 {
	parts := make([]string, 0, len(signals))
	for i := range signals {
		tags := append([]string(nil), signals[i].Indicators()...)
		sort.Strings(tags)
		parts = append(parts, fmt.Sprintf("%s|%s|%.4f|%.4f|%s",
			signalKey(&signals[i], i),
			signals[i].Type,
			signals[i].Strength,
			signals[i].Confidence,
			strings.Join(tags, ","),
		))
	}
	sort.Strings(parts)

	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
