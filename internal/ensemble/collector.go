package ensemble

import (
	"context"
	"log"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const defaultStrategyTimeout = 5 * time.Second

// Collector fans a market-data snapshot out to every registered strategy
// concurrently and returns the signals from the strategies that succeeded.
// One failing, panicking or slow strategy never aborts the round.
type Collector struct {
	tracer   trace.Tracer
	registry *Registry
	timeout  time.Duration
}

func NewCollector(tracer trace.Tracer, registry *Registry, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = defaultStrategyTimeout
	}
	return &Collector{tracer: tracer, registry: registry, timeout: timeout}
}

type collectResult struct {
	index  int
	signal *domain.TradingSignal
}

// Collect invokes every member strategy concurrently and gathers the valid
// signals in member order. If the caller's ctx is cancelled mid-round,
// Collect stops waiting and returns whatever has settled so far.
func (c *Collector) Collect(ctx context.Context, md domain.MarketData) []domain.TradingSignal {
	_, span := c.tracer.Start(ctx, "ensemble-collector.collect")
	defer span.End()

	members := c.registry.Members()
	if len(members) == 0 {
		return nil
	}

	results := make(chan collectResult, len(members))
	for i, m := range members {
		go func(idx int, member Member) {
			results <- collectResult{index: idx, signal: c.invoke(ctx, member, md)}
		}(i, m)
	}

	collected := make([]*domain.TradingSignal, len(members))
	settled := 0
	for settled < len(members) {
		select {
		case res := <-results:
			collected[res.index] = res.signal
			settled++
		case <-ctx.Done():
			log.Printf("signal collection cut short: %v (%d/%d strategies settled)",
				ctx.Err(), settled, len(members))
			return gatherSignals(collected)
		}
	}
	return gatherSignals(collected)
}

// invoke runs a single strategy under a per-call timeout, recovering panics
// and validating the result. Returns nil when the strategy is excluded from
// the round.
func (c *Collector) invoke(ctx context.Context, m Member, md domain.MarketData) (sig *domain.TradingSignal) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("strategy %s panicked: %v", m.Strategy.ID(), rec)
			sig = nil
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := m.Strategy.GenerateSignal(callCtx, md)
	if err != nil {
		log.Printf("strategy %s failed, excluded from round: %v", m.Strategy.ID(), err)
		return nil
	}
	if out == nil {
		return nil
	}
	if !m.Strategy.ValidateSignal(out) {
		log.Printf("strategy %s produced an invalid signal, excluded from round", m.Strategy.ID())
		return nil
	}
	if out.StrategyID() == "" {
		if out.Metadata == nil {
			out.Metadata = map[string]any{}
		}
		out.Metadata[domain.MetaStrategy] = m.Strategy.ID()
	}
	return out
}

func gatherSignals(collected []*domain.TradingSignal) []domain.TradingSignal {
	out := make([]domain.TradingSignal, 0, len(collected))
	for _, sig := range collected {
		if sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}
