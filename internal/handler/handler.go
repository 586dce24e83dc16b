package handler

import (
	"context"

	"signal-quorum/internal/domain"
	"signal-quorum/internal/ensemble"
	"signal-quorum/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// EnsembleEngine is the engine surface the API exposes.
type EnsembleEngine interface {
	AddStrategy(s ensemble.Strategy, weight float64) error
	RemoveStrategy(id string) error
	GetStrategies() []domain.StrategyWeight
	GenerateEnsembleSignal(ctx context.Context, md domain.MarketData) *domain.EnsembleSignal
	AggregateSignals(ctx context.Context, signals []domain.TradingSignal) *domain.EnsembleSignal
	ResolveConflicts(ctx context.Context, signals []domain.TradingSignal) *domain.TradingSignal
	UpdateWeights(ctx context.Context, records []domain.StrategyPerformance) ([]domain.WeightUpdate, error)
	RebalanceWeights(ctx context.Context, windowDays int) ([]domain.WeightUpdate, error)
}

// MarketData serves live snapshots and candle history.
type MarketData interface {
	strategy.CandleSource
	GetSnapshot(ctx context.Context, symbol string) (domain.MarketData, error)
	GetSnapshots(ctx context.Context) ([]domain.MarketData, error)
}

// WeightAudit persists and lists rebalance audit records. Nil disables the
// audit endpoints' persistence.
type WeightAudit interface {
	InsertUpdates(ctx context.Context, updates []domain.WeightUpdate) error
	ListRecent(ctx context.Context, limit int) ([]domain.WeightUpdate, error)
}

type Handler struct {
	tracer trace.Tracer
	engine EnsembleEngine
	market MarketData
	audit  WeightAudit
}

func New(tracer trace.Tracer, engine EnsembleEngine, market MarketData, audit WeightAudit) *Handler {
	return &Handler{
		tracer: tracer,
		engine: engine,
		market: market,
		audit:  audit,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/api/market", h.GetAllMarketData)
	r.GET("/api/market/:symbol", h.GetMarketData)
	r.GET("/api/candles/:symbol", h.GetCandles)

	r.GET("/api/ensemble/signal/:symbol", h.GenerateSignal)
	r.POST("/api/ensemble/aggregate", h.AggregateSignals)
	r.POST("/api/ensemble/resolve", h.ResolveConflicts)

	r.GET("/api/strategies", h.ListStrategies)
	r.GET("/api/weights/updates", h.ListWeightUpdates)

	// Mutating the ensemble requires the API key when one is configured.
	protected := r.Group("/", APIKeyAuth(apiKey))
	protected.POST("/api/strategies", h.AddStrategy)
	protected.DELETE("/api/strategies/:id", h.RemoveStrategy)
	protected.POST("/api/weights/update", h.UpdateWeights)
	protected.POST("/api/weights/rebalance", h.RebalanceWeights)
}
