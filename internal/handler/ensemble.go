package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"signal-quorum/internal/domain"
	"signal-quorum/internal/ensemble"
	"signal-quorum/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GenerateSignal godoc
// @Summary      Generate an ensemble signal for an asset
// @Description  Runs every registered strategy on the latest market data and fuses the results
// @Tags         ensemble
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.EnsembleSignal
// @Failure      400  {object}  map[string]string
// @Router       /api/ensemble/signal/{symbol} [get]
func (h *Handler) GenerateSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.generate-signal")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if _, ok := domain.CoinGeckoID[symbol]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	md, err := h.market.GetSnapshot(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.engine.GenerateEnsembleSignal(ctx, md))
}

// AggregateSignals godoc
// @Summary      Aggregate externally supplied signals
// @Description  Fuses a caller-provided signal batch without running strategies
// @Tags         ensemble
// @Accept       json
// @Produce      json
// @Param        signals  body  []domain.TradingSignal  true  "Signals to aggregate"
// @Success      200  {object}  domain.EnsembleSignal
// @Failure      400  {object}  map[string]string
// @Router       /api/ensemble/aggregate [post]
func (h *Handler) AggregateSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.aggregate-signals")
	defer span.End()

	var signals []domain.TradingSignal
	if err := c.ShouldBindJSON(&signals); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal payload: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.engine.AggregateSignals(ctx, signals))
}

// ResolveConflicts godoc
// @Summary      Resolve a conflicting signal batch
// @Tags         ensemble
// @Accept       json
// @Produce      json
// @Param        signals  body  []domain.TradingSignal  true  "Conflicting signals"
// @Success      200  {object}  domain.TradingSignal
// @Failure      400  {object}  map[string]string
// @Router       /api/ensemble/resolve [post]
func (h *Handler) ResolveConflicts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.resolve-conflicts")
	defer span.End()

	var signals []domain.TradingSignal
	if err := c.ShouldBindJSON(&signals); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal payload: " + err.Error()})
		return
	}
	if len(signals) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty signal batch"})
		return
	}

	c.JSON(http.StatusOK, h.engine.ResolveConflicts(ctx, signals))
}

// ListStrategies godoc
// @Summary      List registered strategies and their weights
// @Tags         strategies
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/strategies [get]
func (h *Handler) ListStrategies(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.list-strategies")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{
		"strategies": h.engine.GetStrategies(),
		"kinds":      strategy.Kinds,
	})
}

type addStrategyRequest struct {
	Kind   string  `json:"kind" binding:"required"`
	Weight float64 `json:"weight" binding:"required"`
}

// AddStrategy godoc
// @Summary      Register a built-in strategy
// @Tags         strategies
// @Accept       json
// @Produce      json
// @Param        request  body  addStrategyRequest  true  "Strategy kind and initial weight"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/strategies [post]
func (h *Handler) AddStrategy(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.add-strategy")
	defer span.End()

	var req addStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	s, err := strategy.New(req.Kind, h.market)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kinds": strategy.Kinds})
		return
	}

	if err := h.engine.AddStrategy(s, req.Weight); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ensemble.ErrStrategyExists) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"strategies": h.engine.GetStrategies()})
}

// RemoveStrategy godoc
// @Summary      Unregister a strategy
// @Tags         strategies
// @Produce      json
// @Param        id  path  string  true  "Strategy id"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/strategies/{id} [delete]
func (h *Handler) RemoveStrategy(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.remove-strategy")
	defer span.End()

	id := c.Param("id")
	if err := h.engine.RemoveStrategy(id); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ensemble.ErrStrategyNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"strategies": h.engine.GetStrategies()})
}

// UpdateWeights godoc
// @Summary      Rebalance strategy weights from supplied performance records
// @Tags         weights
// @Accept       json
// @Produce      json
// @Param        records  body  []domain.StrategyPerformance  true  "Performance records"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/weights/update [post]
func (h *Handler) UpdateWeights(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.update-weights")
	defer span.End()

	var records []domain.StrategyPerformance
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid performance payload: " + err.Error()})
		return
	}

	updates, err := h.engine.UpdateWeights(ctx, records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.persistAudit(c, updates)

	c.JSON(http.StatusOK, gin.H{
		"updates":    updates,
		"strategies": h.engine.GetStrategies(),
	})
}

// RebalanceWeights godoc
// @Summary      Rebalance strategy weights from stored performance history
// @Tags         weights
// @Produce      json
// @Param        window_days  query  int  false  "Rolling window in days"  default(30)
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/weights/rebalance [post]
func (h *Handler) RebalanceWeights(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.rebalance-weights")
	defer span.End()

	windowDays := 30
	if v := c.Query("window_days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			windowDays = n
		}
	}

	updates, err := h.engine.RebalanceWeights(ctx, windowDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.persistAudit(c, updates)

	c.JSON(http.StatusOK, gin.H{
		"window_days": windowDays,
		"updates":     updates,
		"strategies":  h.engine.GetStrategies(),
	})
}

// ListWeightUpdates godoc
// @Summary      List recent weight-update audit records
// @Tags         weights
// @Produce      json
// @Param        limit  query  int  false  "Max records (default 50, max 500)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/weights/updates [get]
func (h *Handler) ListWeightUpdates(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-weight-updates")
	defer span.End()

	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "weight audit store unavailable"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	updates, err := h.audit.ListRecent(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": updates})
}

func (h *Handler) persistAudit(c *gin.Context, updates []domain.WeightUpdate) {
	if h.audit == nil || len(updates) == 0 {
		return
	}
	if err := h.audit.InsertUpdates(c.Request.Context(), updates); err != nil {
		log.Printf("weight audit insert error: %v", err)
	}
}
