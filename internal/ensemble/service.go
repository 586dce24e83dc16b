package ensemble

import (
	"context"
	"sync"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Config tunes the engine. Zero values fall back to documented defaults.
type Config struct {
	// StrategyTimeout bounds each member strategy's signal call.
	StrategyTimeout time.Duration
	// ClosenessThreshold is the vote-mass gap share that triggers conflict
	// resolution instead of a plain tally winner.
	ClosenessThreshold float64
	// MinWeight and MaxWeight bound every strategy's registry weight.
	MinWeight float64
	MaxWeight float64
}

// Service is the ensemble engine's outward surface: strategy registration,
// per-tick decision fusion and performance-driven reweighting. It owns the
// registry and holds no other mutable state between rounds beyond the last
// seen performance records (consulted during conflict resolution).
type Service struct {
	tracer     trace.Tracer
	registry   *Registry
	collector  *Collector
	correlator *CorrelationAnalyzer
	resolver   *ConflictResolver
	aggregator *Aggregator
	weights    *WeightManager
	history    PerformanceHistory

	perfMu   sync.RWMutex
	lastPerf map[string]domain.StrategyPerformance
}

// NewService wires up the engine. history may be nil when rebalancing from a
// store is not needed; fusion may be nil to use the deterministic ml_fusion
// score.
func NewService(tracer trace.Tracer, history PerformanceHistory, fusion FusionScorer, cfg Config) *Service {
	if cfg.StrategyTimeout <= 0 {
		cfg.StrategyTimeout = defaultStrategyTimeout
	}
	if cfg.MinWeight <= 0 || cfg.MaxWeight <= cfg.MinWeight || cfg.MaxWeight > 1 {
		cfg.MinWeight, cfg.MaxWeight = 0.05, 0.7
	}

	registry := NewRegistryWithBounds(cfg.MinWeight, cfg.MaxWeight)
	correlator := NewCorrelationAnalyzer()
	resolver := NewConflictResolver(fusion)

	return &Service{
		tracer:     tracer,
		registry:   registry,
		collector:  NewCollector(tracer, registry, cfg.StrategyTimeout),
		correlator: correlator,
		resolver:   resolver,
		aggregator: NewAggregator(tracer, registry, correlator, resolver, cfg.ClosenessThreshold),
		weights:    NewWeightManager(tracer, registry, history),
		history:    history,
		lastPerf:   map[string]domain.StrategyPerformance{},
	}
}

// Registry exposes the owned registry for read-side collaborators
// (dashboards, handlers).
func (s *Service) Registry() *Registry {
	return s.registry
}

// AddStrategy registers a member strategy with an initial weight.
func (s *Service) AddStrategy(strategy Strategy, weight float64) error {
	return s.registry.AddStrategy(strategy, weight)
}

// RemoveStrategy unregisters a member strategy.
func (s *Service) RemoveStrategy(id string) error {
	return s.registry.RemoveStrategy(id)
}

// GetStrategies returns the current weight table.
func (s *Service) GetStrategies() []domain.StrategyWeight {
	return s.registry.GetStrategies()
}

// GenerateEnsembleSignal runs one full round: concurrent signal collection,
// correlation analysis and weighted aggregation. It always returns a
// well-formed signal; with no strategies, or with every strategy failing,
// the result is a neutral HOLD.
func (s *Service) GenerateEnsembleSignal(ctx context.Context, md domain.MarketData) *domain.EnsembleSignal {
	ctx, span := s.tracer.Start(ctx, "ensemble.generate-signal")
	defer span.End()

	signals := s.collector.Collect(ctx, md)
	out := s.aggregator.Aggregate(ctx, signals, s.performanceSnapshot())
	if out.Symbol == "" {
		out.Symbol = md.Symbol
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = md.Timestamp
	}
	if out.Price == 0 {
		out.Price = md.Close
	}
	return out
}

// AggregateSignals fuses an externally supplied signal set without running
// collection. Useful for replay and for callers that gather signals
// themselves.
func (s *Service) AggregateSignals(ctx context.Context, signals []domain.TradingSignal) *domain.EnsembleSignal {
	ctx, span := s.tracer.Start(ctx, "ensemble.aggregate-signals")
	defer span.End()

	return s.aggregator.Aggregate(ctx, signals, s.performanceSnapshot())
}

// ResolveConflicts settles a disagreement between the given signals directly.
func (s *Service) ResolveConflicts(ctx context.Context, signals []domain.TradingSignal) *domain.TradingSignal {
	_, span := s.tracer.Start(ctx, "ensemble.resolve-conflicts")
	defer span.End()

	return s.resolver.Resolve(signals, s.performanceSnapshot())
}

// UpdateWeights rebalances the registry from caller-supplied records and
// remembers them for later conflict resolution.
func (s *Service) UpdateWeights(ctx context.Context, records []domain.StrategyPerformance) ([]domain.WeightUpdate, error) {
	s.rememberPerformance(records)
	return s.weights.UpdateWeights(ctx, records)
}

// RebalanceWeights rebalances from the performance-history collaborator over
// a rolling window of windowDays.
func (s *Service) RebalanceWeights(ctx context.Context, windowDays int) ([]domain.WeightUpdate, error) {
	ctx, span := s.tracer.Start(ctx, "ensemble.rebalance-weights")
	defer span.End()

	if s.history == nil {
		return s.weights.RebalanceWeights(ctx, windowDays)
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	records, err := s.history.ListPerformance(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	s.rememberPerformance(records)
	return s.weights.UpdateWeights(ctx, records)
}

func (s *Service) rememberPerformance(records []domain.StrategyPerformance) {
	s.perfMu.Lock()
	defer s.perfMu.Unlock()
	for _, rec := range records {
		s.lastPerf[rec.StrategyID] = rec
	}
}

func (s *Service) performanceSnapshot() map[string]domain.StrategyPerformance {
	s.perfMu.RLock()
	defer s.perfMu.RUnlock()
	if len(s.lastPerf) == 0 {
		return nil
	}
	out := make(map[string]domain.StrategyPerformance, len(s.lastPerf))
	for id, rec := range s.lastPerf {
		out[id] = rec
	}
	return out
}
