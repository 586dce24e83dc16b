package domain

import "time"

// SignalType is the direction a strategy wants to trade.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

func (t SignalType) IsValid() bool {
	switch t {
	case SignalBuy, SignalSell, SignalHold:
		return true
	default:
		return false
	}
}

// Conventional metadata keys on a TradingSignal. Consumers read them
// defensively: a missing key means "no information", never an error.
const (
	MetaStrategy      = "strategy"
	MetaIndicators    = "indicators"
	MetaFeatures      = "features"
	MetaMLFusionScore = "ml_fusion_score"
)

// MarketData is one OHLCV snapshot handed to every strategy per tick.
type MarketData struct {
	Symbol        string    `json:"symbol"`
	Timestamp     time.Time `json:"timestamp"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	AdjustedClose float64   `json:"adjusted_close"`
}

// TradingSignal is one strategy's opinion at a point in time. Signals are
// created by a strategy, consumed once by the ensemble and then discarded.
type TradingSignal struct {
	Type       SignalType     `json:"type"`
	Strength   float64        `json:"strength"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Symbol     string         `json:"symbol"`
	Price      float64        `json:"price"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// StrategyID returns the originating strategy identifier from metadata,
// or "" when the signal does not carry one.
func (s *TradingSignal) StrategyID() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	id, _ := s.Metadata[MetaStrategy].(string)
	return id
}

// Indicators returns the indicator/feature tags attached to the signal.
// Both []string and []any (from JSON decoding) are accepted.
func (s *TradingSignal) Indicators() []string {
	if s == nil || s.Metadata == nil {
		return nil
	}
	switch v := s.Metadata[MetaIndicators].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if tag, ok := item.(string); ok {
				out = append(out, tag)
			}
		}
		return out
	default:
		return nil
	}
}

// Features returns the structured numeric features used for ML fusion.
func (s *TradingSignal) Features() map[string]float64 {
	if s == nil || s.Metadata == nil {
		return nil
	}
	switch v := s.Metadata[MetaFeatures].(type) {
	case map[string]float64:
		return v
	case map[string]any:
		out := make(map[string]float64, len(v))
		for k, raw := range v {
			if f, ok := raw.(float64); ok {
				out[k] = f
			}
		}
		return out
	default:
		return nil
	}
}

// StrategyWeight is one row of the registry's weight table.
type StrategyWeight struct {
	StrategyID string  `json:"strategy_id"`
	Weight     float64 `json:"weight"`
}

// StrategyPerformance is an externally supplied performance record for a
// single strategy over a timeframe. Read-only input to the weight manager.
type StrategyPerformance struct {
	StrategyID   string  `json:"strategy_id"`
	TotalReturn  float64 `json:"total_return"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	Volatility   float64 `json:"volatility"`
	TradesCount  int     `json:"trades_count"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	Timeframe    string  `json:"timeframe"`
}

// WeightUpdate is the audit record emitted for every registered strategy on
// each weight-manager call, including strategies without performance data.
type WeightUpdate struct {
	StrategyID string    `json:"strategy_id"`
	OldWeight  float64   `json:"old_weight"`
	NewWeight  float64   `json:"new_weight"`
	Reasoning  string    `json:"reasoning"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// ResolutionMethod names the policy used to break a signal conflict.
type ResolutionMethod string

const (
	ResolveCorrelationAnalysis  ResolutionMethod = "correlation_analysis"
	ResolvePerformanceWeighting ResolutionMethod = "performance_weighting"
	ResolveConfidenceVoting     ResolutionMethod = "confidence_voting"
	ResolveMLFusion             ResolutionMethod = "ml_fusion"
)

// ConflictResolution records how a disagreement between strategies was
// settled, for auditability.
type ConflictResolution struct {
	Method          ResolutionMethod `json:"method"`
	Reasoning       string           `json:"reasoning"`
	OriginalSignals []TradingSignal  `json:"original_signals"`
}

// EnsembleSignal is the fused decision produced from one round of signals.
// Created fresh per aggregation call; never mutated afterwards.
type EnsembleSignal struct {
	Type                   SignalType          `json:"type"`
	Strength               float64             `json:"strength"`
	ConsensusStrength      float64             `json:"consensus_strength"`
	Symbol                 string              `json:"symbol,omitempty"`
	Timestamp              time.Time           `json:"timestamp"`
	Price                  float64             `json:"price,omitempty"`
	ContributingStrategies []string            `json:"contributing_strategies"`
	ConfidenceWeights      map[string]float64  `json:"confidence_weights"`
	CorrelationScore       *float64            `json:"correlation_score,omitempty"`
	ConflictResolution     *ConflictResolution `json:"conflict_resolution,omitempty"`
	Metadata               map[string]any      `json:"metadata,omitempty"`
}
