package job

import (
	"context"
	"log"
	"sync"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// EnsemblePoller periodically runs the full ensemble pipeline for the
// configured symbols and keeps the latest decision available for the bot
// and the SSH dashboard.
type EnsemblePoller struct {
	tracer   trace.Tracer
	market   SnapshotSource
	engine   SignalGenerator
	notifier SignalNotifier
	symbols  []string
	interval time.Duration

	mu     sync.RWMutex
	latest map[string]*domain.EnsembleSignal
}

type SnapshotSource interface {
	GetSnapshot(ctx context.Context, symbol string) (domain.MarketData, error)
}

type SignalGenerator interface {
	GenerateEnsembleSignal(ctx context.Context, md domain.MarketData) *domain.EnsembleSignal
}

// SignalNotifier receives each fresh ensemble decision. Optional.
type SignalNotifier interface {
	AnnounceSignal(signal *domain.EnsembleSignal)
}

func NewEnsemblePoller(tracer trace.Tracer, market SnapshotSource, engine SignalGenerator, notifier SignalNotifier, symbols []string, pollIntervalSecs int) *EnsemblePoller {
	return &EnsemblePoller{
		tracer:   tracer,
		market:   market,
		engine:   engine,
		notifier: notifier,
		symbols:  symbols,
		interval: time.Duration(pollIntervalSecs) * time.Second,
		latest:   make(map[string]*domain.EnsembleSignal),
	}
}

// Start runs the ensemble loop. Blocks until ctx is cancelled.
func (p *EnsemblePoller) Start(ctx context.Context) {
	log.Printf("Ensemble poller starting for %v...", p.symbols)

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Ensemble poller stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *EnsemblePoller) runOnce(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "job.ensemble_run")
	defer span.End()

	for _, symbol := range p.symbols {
		md, err := p.market.GetSnapshot(ctx, symbol)
		if err != nil {
			log.Printf("ensemble poller: snapshot for %s: %v", symbol, err)
			continue
		}

		signal := p.engine.GenerateEnsembleSignal(ctx, md)
		p.record(symbol, signal)

		if p.notifier != nil {
			p.notifier.AnnounceSignal(signal)
		}
	}
}

func (p *EnsemblePoller) record(symbol string, signal *domain.EnsembleSignal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[symbol] = signal
}

// LatestSignal returns the most recent ensemble decision for a symbol, or
// nil if none has been produced yet.
func (p *EnsemblePoller) LatestSignal(symbol string) *domain.EnsembleSignal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest[symbol]
}

// LatestSignals returns a copy of all current decisions keyed by symbol.
func (p *EnsemblePoller) LatestSignals() map[string]*domain.EnsembleSignal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]*domain.EnsembleSignal, len(p.latest))
	for symbol, signal := range p.latest {
		out[symbol] = signal
	}
	return out
}
