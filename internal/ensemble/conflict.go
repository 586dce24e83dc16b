package ensemble

import (
	"fmt"
	"sort"

	"signal-quorum/internal/domain"
)

// Material-difference thresholds for the resolution policy. A performance or
// confidence gap smaller than these is treated as noise rather than evidence.
const (
	perfScoreGap  = 0.10
	confidenceGap = 0.15
)

// FusionScorer is an optional trained model consulted by the ml_fusion
// method. It returns the probability that the first side of a conflict is
// the better one.
type FusionScorer interface {
	PredictProb(sample []float64) float64
}

// ConflictResolver picks a winning direction when strategies disagree.
// It is stateless per call: each call selects one of four named resolution
// methods from the evidence at hand and records which one was used.
type ConflictResolver struct {
	fusion FusionScorer
}

func NewConflictResolver(fusion FusionScorer) *ConflictResolver {
	return &ConflictResolver{fusion: fusion}
}

// side groups the conflicting signals that agree on one direction.
type side struct {
	signalType domain.SignalType
	signals    []domain.TradingSignal
}

func (s *side) voteMass() float64 {
	total := 0.0
	for i := range s.signals {
		total += s.signals[i].Confidence * s.signals[i].Strength
	}
	return total
}

func (s *side) avgConfidence() float64 {
	if len(s.signals) == 0 {
		return 0
	}
	total := 0.0
	for i := range s.signals {
		total += s.signals[i].Confidence
	}
	return total / float64(len(s.signals))
}

func (s *side) avgStrength() float64 {
	if len(s.signals) == 0 {
		return 0
	}
	total := 0.0
	for i := range s.signals {
		total += s.signals[i].Strength
	}
	return total / float64(len(s.signals))
}

// effectiveCount is the number of independent opinions on this side after
// discounting correlated signals.
func (s *side) effectiveCount() float64 {
	count := 0.0
	for i := range s.signals {
		correlated := 0.0
		for j := range s.signals {
			if i != j {
				correlated += indicatorSimilarity(&s.signals[i], &s.signals[j])
			}
		}
		count += 1.0 / (1.0 + correlated)
	}
	return count
}

// Resolve settles a disagreement between the given signals, using the
// supplied performance records when they discriminate between the sides.
// The returned signal's metadata records the method, reasoning and original
// signals; its reasoning text always mentions "conflict resolution".
func (r *ConflictResolver) Resolve(signals []domain.TradingSignal, perf map[string]domain.StrategyPerformance) *domain.TradingSignal {
	if len(signals) == 0 {
		return nil
	}

	sides := groupSides(signals)
	if len(sides) == 1 {
		winner := sides[0]
		return r.buildResolution(winner, signals, domain.ResolveConfidenceVoting,
			fmt.Sprintf("all %d signals already agree on %s", len(signals), winner.signalType), 0)
	}

	a, b := sides[0], sides[1]

	// 1. Performance history, when it materially separates the sides.
	if perfA, okA := sidePerfScore(a, perf); okA {
		if perfB, okB := sidePerfScore(b, perf); okB {
			if diff := perfA - perfB; diff >= perfScoreGap || diff <= -perfScoreGap {
				winner := a
				loser := b
				winScore, loseScore := perfA, perfB
				if perfB > perfA {
					winner, loser = b, a
					winScore, loseScore = perfB, perfA
				}
				reason := fmt.Sprintf("%s side's historical performance score %.3f beats %s side's %.3f",
					winner.signalType, winScore, loser.signalType, loseScore)
				return r.buildResolution(winner, signals, domain.ResolvePerformanceWeighting, reason, 0)
			}
		}
	}

	// 2. Confidence, when the sides' self-reported certainty differs.
	confA, confB := a.avgConfidence(), b.avgConfidence()
	if diff := confA - confB; diff >= confidenceGap || diff <= -confidenceGap {
		winner := a
		winConf, loseConf := confA, confB
		if confB > confA {
			winner = b
			winConf, loseConf = confB, confA
		}
		reason := fmt.Sprintf("%s side reports average confidence %.2f against %.2f",
			winner.signalType, winConf, loseConf)
		return r.buildResolution(winner, signals, domain.ResolveConfidenceVoting, reason, 0)
	}

	// 3. ML fusion for multi-way conflicts or feature-rich signals.
	if len(sides) >= 3 || hasStructuredFeatures(signals) {
		winner, score := r.fuse(a, b)
		reason := fmt.Sprintf("fusion of strength, confidence and feature cohesion favors %s with score %.3f",
			winner.signalType, score)
		return r.buildResolution(winner, signals, domain.ResolveMLFusion, reason, score)
	}

	// 4. Fall back to independence of evidence.
	effA, effB := a.effectiveCount(), b.effectiveCount()
	winner := a
	winEff, loseEff := effA, effB
	if effB > effA {
		winner = b
		winEff, loseEff = effB, effA
	}
	reason := fmt.Sprintf("%s side is backed by %.2f independent opinions against %.2f",
		winner.signalType, winEff, loseEff)
	return r.buildResolution(winner, signals, domain.ResolveCorrelationAnalysis, reason, 0)
}

// fuse scores both sides and returns the higher-scoring one. When a trained
// fusion model is present its probability is blended evenly with the
// deterministic score.
func (r *ConflictResolver) fuse(a, b side) (side, float64) {
	scoreA := fusionScore(a)
	scoreB := fusionScore(b)
	if r.fusion != nil {
		prob := clamp01(r.fusion.PredictProb(fusionFeatures(a, b)))
		scoreA = 0.5*scoreA + 0.5*prob
		scoreB = 0.5*scoreB + 0.5*(1-prob)
	}
	if scoreB > scoreA {
		return b, scoreB
	}
	return a, scoreA
}

func fusionScore(s side) float64 {
	return 0.4*s.avgStrength() + 0.4*s.avgConfidence() + 0.2*featureCohesion(s)
}

// featureCohesion measures how consistently the side's structured features
// point the same way. Sides without features get a neutral 0.5.
func featureCohesion(s side) float64 {
	vectors := make([]map[string]float64, 0, len(s.signals))
	for i := range s.signals {
		if f := s.signals[i].Features(); len(f) > 0 {
			vectors = append(vectors, f)
		}
	}
	if len(vectors) == 0 {
		return 0.5
	}
	if len(vectors) == 1 {
		return 0.6
	}

	pairSum := 0.0
	pairs := 0
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			pairSum += featureOverlap(vectors[i], vectors[j])
			pairs++
		}
	}
	return pairSum / float64(pairs)
}

// featureOverlap is the share of shared keys whose values agree in sign.
func featureOverlap(a, b map[string]float64) float64 {
	shared := 0
	agree := 0
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		shared++
		if (va >= 0) == (vb >= 0) {
			agree++
		}
	}
	if shared == 0 {
		return 0.5
	}
	return float64(agree) / float64(shared)
}

// FusionFeatureNames is the feature layout expected from a trained fusion
// model, matching fusionFeatures below.
var FusionFeatureNames = []string{
	"a_strength", "a_confidence", "a_cohesion", "a_count",
	"b_strength", "b_confidence", "b_cohesion", "b_count",
}

func fusionFeatures(a, b side) []float64 {
	return []float64{
		a.avgStrength(), a.avgConfidence(), featureCohesion(a), float64(len(a.signals)),
		b.avgStrength(), b.avgConfidence(), featureCohesion(b), float64(len(b.signals)),
	}
}

// sidePerfScore averages the performance score across the side's strategies
// that have records. The second return is false when no record covers the side.
func sidePerfScore(s side, perf map[string]domain.StrategyPerformance) (float64, bool) {
	if len(perf) == 0 {
		return 0, false
	}
	total := 0.0
	covered := 0
	for i := range s.signals {
		if p, ok := perf[s.signals[i].StrategyID()]; ok {
			total += performanceScore(p)
			covered++
		}
	}
	if covered == 0 {
		return 0, false
	}
	return total / float64(covered), true
}

func hasStructuredFeatures(signals []domain.TradingSignal) bool {
	for i := range signals {
		if len(signals[i].Features()) > 0 {
			return true
		}
	}
	return false
}

// groupSides buckets signals by direction, strongest vote mass first.
func groupSides(signals []domain.TradingSignal) []side {
	byType := map[domain.SignalType]*side{}
	order := []domain.SignalType{}
	for i := range signals {
		t := signals[i].Type
		if _, ok := byType[t]; !ok {
			byType[t] = &side{signalType: t}
			order = append(order, t)
		}
		byType[t].signals = append(byType[t].signals, signals[i])
	}

	sides := make([]side, 0, len(order))
	for _, t := range order {
		sides = append(sides, *byType[t])
	}
	sort.SliceStable(sides, func(i, j int) bool {
		return sides[i].voteMass() > sides[j].voteMass()
	})
	return sides
}

// buildResolution shapes the winning side into a TradingSignal whose
// metadata carries the full conflict-resolution audit record.
func (r *ConflictResolver) buildResolution(
	winner side,
	original []domain.TradingSignal,
	method domain.ResolutionMethod,
	reason string,
	fusionScore float64,
) *domain.TradingSignal {
	rep := representative(winner)

	out := rep
	out.Reasoning = fmt.Sprintf("conflict resolution via %s: %s", method, reason)
	out.Metadata = cloneMetadata(rep.Metadata)

	resolution := &domain.ConflictResolution{
		Method:          method,
		Reasoning:       reason,
		OriginalSignals: append([]domain.TradingSignal(nil), original...),
	}
	out.Metadata["conflict_resolution"] = resolution
	if method == domain.ResolveMLFusion {
		out.Metadata[domain.MetaMLFusionScore] = fusionScore
	}
	return &out
}

// representative picks the side's most convincing signal as the template for
// the resolved output.
func representative(s side) domain.TradingSignal {
	best := s.signals[0]
	bestMass := best.Confidence * best.Strength
	for i := 1; i < len(s.signals); i++ {
		if mass := s.signals[i].Confidence * s.signals[i].Strength; mass > bestMass {
			best = s.signals[i]
			bestMass = mass
		}
	}
	return best
}

func cloneMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	return out
}
