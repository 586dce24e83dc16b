package job

import (
	"context"
	"log"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// MarketDataPoller keeps the snapshot cache and candle store warm so the
// ensemble always has fresh input.
type MarketDataPoller struct {
	tracer       trace.Tracer
	market       MarketDataRefresher
	pollInterval time.Duration
}

type MarketDataRefresher interface {
	RefreshSnapshots(ctx context.Context) error
	RefreshCandles(ctx context.Context, symbol string) error
}

func NewMarketDataPoller(tracer trace.Tracer, market MarketDataRefresher, pollIntervalSecs int) *MarketDataPoller {
	return &MarketDataPoller{
		tracer:       tracer,
		market:       market,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start launches background polling goroutines. Blocks until ctx is cancelled.
func (p *MarketDataPoller) Start(ctx context.Context) {
	log.Println("Market data poller starting...")

	go p.pollLoop(ctx, "snapshots", p.pollInterval, func(ctx context.Context) error {
		return p.market.RefreshSnapshots(ctx)
	})

	// Candles refresh round-robin, two symbols at a time, staggered so the
	// first candle calls do not collide with the snapshot fetch.
	go p.pollCandles(ctx)

	<-ctx.Done()
	log.Println("Market data poller stopped")
}

func (p *MarketDataPoller) pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Printf("poller %s initial run error: %v", name, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("poller %s error: %v", name, err)
			}
		}
	}
}

func (p *MarketDataPoller) pollCandles(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(10 * time.Second):
	}

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	symbolIndex := 0
	symbolsPerTick := 2

	p.refreshCandleBatch(ctx, &symbolIndex, symbolsPerTick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshCandleBatch(ctx, &symbolIndex, symbolsPerTick)
		}
	}
}

func (p *MarketDataPoller) refreshCandleBatch(ctx context.Context, symbolIndex *int, count int) {
	symbols := domain.SupportedSymbols
	for i := 0; i < count; i++ {
		symbol := symbols[*symbolIndex%len(symbols)]
		*symbolIndex++

		if err := p.market.RefreshCandles(ctx, symbol); err != nil {
			log.Printf("candle refresh error for %s: %v", symbol, err)
		}
	}
}
