package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"signal-quorum/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const snapshotCacheTTL = 90 * time.Second

// MarketProvider supplies live market data from an upstream API.
type MarketProvider interface {
	FetchSnapshots(ctx context.Context) (map[string]domain.MarketData, error)
	FetchCandles(ctx context.Context, symbol string, days int) ([]domain.Candle, error)
}

// CandleStore persists candle history.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	UpsertCandles(ctx context.Context, candles []domain.Candle) error
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// MarketDataService feeds the ensemble: cached live snapshots per symbol and
// the candle history strategies compute their indicators from. It implements
// the strategies' CandleSource.
type MarketDataService struct {
	tracer   trace.Tracer
	provider MarketProvider
	repo     CandleStore
	redis    RedisClient
}

func NewMarketDataService(
	tracer trace.Tracer,
	provider MarketProvider,
	repo CandleStore,
	redisClient RedisClient,
) *MarketDataService {
	return &MarketDataService{
		tracer:   tracer,
		provider: provider,
		repo:     repo,
		redis:    redisClient,
	}
}

// GetSnapshot returns the latest market data for a symbol, served from Redis
// when fresh and refreshed from the provider on a miss.
func (s *MarketDataService) GetSnapshot(ctx context.Context, symbol string) (domain.MarketData, error) {
	_, span := s.tracer.Start(ctx, "market-data.get-snapshot")
	defer span.End()

	if _, ok := domain.CoinGeckoID[symbol]; !ok {
		return domain.MarketData{}, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if s.redis != nil {
		cached, err := s.getSnapshotCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return *cached, nil
		}
	}

	// Cache miss: one batched API call covers every symbol, cache them all.
	snapshots, err := s.provider.FetchSnapshots(ctx)
	if err != nil {
		return domain.MarketData{}, err
	}
	s.cacheSnapshots(ctx, snapshots)

	md, ok := snapshots[symbol]
	if !ok {
		return domain.MarketData{}, fmt.Errorf("market data not available for %s", symbol)
	}
	return md, nil
}

// GetSnapshots returns the latest market data for all supported symbols.
func (s *MarketDataService) GetSnapshots(ctx context.Context) ([]domain.MarketData, error) {
	_, span := s.tracer.Start(ctx, "market-data.get-snapshots")
	defer span.End()

	var out []domain.MarketData
	var missing []string
	for _, symbol := range domain.SupportedSymbols {
		if s.redis != nil {
			if cached, _ := s.getSnapshotCache(ctx, symbol); cached != nil {
				out = append(out, *cached)
				continue
			}
		}
		missing = append(missing, symbol)
	}

	if len(missing) > 0 {
		snapshots, err := s.provider.FetchSnapshots(ctx)
		if err != nil {
			return out, err
		}
		s.cacheSnapshots(ctx, snapshots)
		for _, symbol := range missing {
			if md, ok := snapshots[symbol]; ok {
				out = append(out, md)
			}
		}
	}

	return out, nil
}

// RecentCandles returns up to limit candles for the symbol, oldest first.
// Short history falls back to a provider fetch so a cold store can still
// warm up the strategies.
func (s *MarketDataService) RecentCandles(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	ctx, span := s.tracer.Start(ctx, "market-data.recent-candles")
	defer span.End()

	if s.repo != nil {
		candles, err := s.repo.GetCandles(ctx, symbol, domain.CandleInterval, limit)
		if err != nil {
			return nil, err
		}
		if len(candles) >= limit {
			return candles, nil
		}
	}

	if s.provider == nil {
		return nil, fmt.Errorf("no candle history for %s", symbol)
	}
	days := limit/24 + 2
	candles, err := s.provider.FetchCandles(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		if err := s.repo.UpsertCandles(ctx, candles); err != nil {
			log.Printf("candle upsert error for %s: %v", symbol, err)
		}
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// RefreshSnapshots fetches latest market data and caches it in Redis.
func (s *MarketDataService) RefreshSnapshots(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "market-data.refresh-snapshots")
	defer span.End()

	snapshots, err := s.provider.FetchSnapshots(ctx)
	if err != nil {
		return err
	}
	s.cacheSnapshots(ctx, snapshots)
	log.Printf("Refreshed market data for %d assets", len(snapshots))
	return nil
}

// RefreshCandles pulls recent candle history for a symbol into the store.
func (s *MarketDataService) RefreshCandles(ctx context.Context, symbol string) error {
	ctx, span := s.tracer.Start(ctx, "market-data.refresh-candles")
	defer span.End()

	candles, err := s.provider.FetchCandles(ctx, symbol, 2)
	if err != nil {
		return err
	}
	if s.repo == nil {
		return nil
	}
	if err := s.repo.UpsertCandles(ctx, candles); err != nil {
		return fmt.Errorf("upsert candles for %s: %w", symbol, err)
	}
	log.Printf("Refreshed candles for %s (%d candles)", symbol, len(candles))
	return nil
}

func (s *MarketDataService) cacheSnapshots(ctx context.Context, snapshots map[string]domain.MarketData) {
	if s.redis == nil {
		return
	}
	for symbol, md := range snapshots {
		if err := s.setSnapshotCache(ctx, symbol, md); err != nil {
			log.Printf("redis cache write error for %s: %v", symbol, err)
		}
	}
}

func (s *MarketDataService) setSnapshotCache(ctx context.Context, symbol string, md domain.MarketData) error {
	data, err := json.Marshal(md)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "market:"+symbol, data, snapshotCacheTTL).Err()
}

func (s *MarketDataService) getSnapshotCache(ctx context.Context, symbol string) (*domain.MarketData, error) {
	data, err := s.redis.Get(ctx, "market:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var md domain.MarketData
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, err
	}
	return &md, nil
}
