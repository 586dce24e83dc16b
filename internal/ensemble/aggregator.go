package ensemble

import (
	"context"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// defaultClosenessThreshold is the vote-mass gap (as a share of total mass)
// under which the top two directions count as a genuine split. The exact
// value is a judgment call; 0.15 keeps clear winners out of conflict
// resolution while catching near-ties.
const defaultClosenessThreshold = 0.15

// directionalSplitShare marks a round as conflicted whenever BUY and SELL
// each hold at least this share of the vote mass, regardless of the gap:
// directly opposed capital decisions are never settled by a raw tally.
const directionalSplitShare = 0.10

// Aggregator fuses a round of signals into one EnsembleSignal using
// confidence- and weight-adjusted voting, delegating genuine splits to the
// conflict resolver.
type Aggregator struct {
	tracer     trace.Tracer
	registry   *Registry
	correlator *CorrelationAnalyzer
	resolver   *ConflictResolver
	closeness  float64
}

func NewAggregator(
	tracer trace.Tracer,
	registry *Registry,
	correlator *CorrelationAnalyzer,
	resolver *ConflictResolver,
	closeness float64,
) *Aggregator {
	if closeness <= 0 || closeness >= 1 {
		closeness = defaultClosenessThreshold
	}
	return &Aggregator{
		tracer:     tracer,
		registry:   registry,
		correlator: correlator,
		resolver:   resolver,
		closeness:  closeness,
	}
}

// Aggregate combines the signals into a single decision. perf supplies the
// performance records the conflict resolver may consult; nil is fine.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	signals []domain.TradingSignal,
	perf map[string]domain.StrategyPerformance,
) *domain.EnsembleSignal {
	_, span := a.tracer.Start(ctx, "ensemble-aggregator.aggregate")
	defer span.End()

	if len(signals) == 0 {
		return neutralSignal()
	}

	corr := a.correlator.Analyze(signals)

	votes := map[domain.SignalType]float64{}
	confidenceWeights := make(map[string]float64, len(signals))
	contributing := make([]string, 0, len(signals))
	strengthMass := map[domain.SignalType]float64{}

	// Signals from unregistered strategies (direct AggregateSignals calls)
	// vote with an equal default share.
	defaultWeight := 1.0 / float64(len(signals))

	for i := range signals {
		sig := &signals[i]
		key := signalKey(sig, i)

		weight, registered := a.registry.Weight(sig.StrategyID())
		if !registered {
			weight = defaultWeight
		}
		discount := 1.0
		if d, ok := corr.Discounts[key]; ok {
			discount = d
		}

		effective := weight * sig.Confidence * sig.Strength * discount
		votes[sig.Type] += effective
		strengthMass[sig.Type] += effective * sig.Strength
		confidenceWeights[key] = effective
		contributing = append(contributing, key)
	}

	total := 0.0
	for _, mass := range votes {
		total += mass
	}

	out := &domain.EnsembleSignal{
		Type:                   domain.SignalHold,
		Timestamp:              signals[0].Timestamp,
		Symbol:                 signals[0].Symbol,
		Price:                  signals[0].Price,
		ContributingStrategies: contributing,
		ConfidenceWeights:      confidenceWeights,
	}
	if corr.Redundant {
		score := corr.Score
		out.CorrelationScore = &score
	}
	if total <= 0 {
		return out
	}

	winner, winnerMass, runnerMass := tallyLeaders(votes)
	out.Type = winner
	out.ConsensusStrength = winnerMass / total
	if winnerMass > 0 {
		out.Strength = clamp01(strengthMass[winner] / winnerMass)
	}

	if !a.isConflicted(votes, total, winnerMass, runnerMass) {
		return out
	}

	resolved := a.resolver.Resolve(signals, perf)
	if resolved == nil {
		return out
	}
	out.Type = resolved.Type
	out.Strength = clamp01(resolved.Strength)
	out.ConsensusStrength = votes[resolved.Type] / total
	if res, ok := resolved.Metadata["conflict_resolution"].(*domain.ConflictResolution); ok {
		out.ConflictResolution = res
	}
	if score, ok := resolved.Metadata[domain.MetaMLFusionScore].(float64); ok {
		if out.Metadata == nil {
			out.Metadata = map[string]any{}
		}
		out.Metadata[domain.MetaMLFusionScore] = score
	}
	return out
}

// isConflicted reports whether the tally is a genuine split rather than a
// clear winner.
func (a *Aggregator) isConflicted(
	votes map[domain.SignalType]float64,
	total, winnerMass, runnerMass float64,
) bool {
	nonZero := 0
	for _, mass := range votes {
		if mass > 0 {
			nonZero++
		}
	}
	if nonZero < 2 {
		return false
	}
	buyShare := votes[domain.SignalBuy] / total
	sellShare := votes[domain.SignalSell] / total
	if buyShare >= directionalSplitShare && sellShare >= directionalSplitShare {
		return true
	}
	return (winnerMass-runnerMass)/total < a.closeness
}

func tallyLeaders(votes map[domain.SignalType]float64) (winner domain.SignalType, winnerMass, runnerMass float64) {
	// Fixed iteration order keeps ties deterministic.
	winner = domain.SignalHold
	for _, t := range []domain.SignalType{domain.SignalBuy, domain.SignalSell, domain.SignalHold} {
		mass := votes[t]
		switch {
		case mass > winnerMass:
			runnerMass = winnerMass
			winner, winnerMass = t, mass
		case mass > runnerMass:
			runnerMass = mass
		}
	}
	return winner, winnerMass, runnerMass
}

func neutralSignal() *domain.EnsembleSignal {
	return &domain.EnsembleSignal{
		Type:                   domain.SignalHold,
		Strength:               0,
		ConsensusStrength:      0,
		Timestamp:              time.Now().UTC(),
		ContributingStrategies: []string{},
		ConfidenceWeights:      map[string]float64{},
	}
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
