package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signal-quorum/internal/domain"
	"signal-quorum/internal/ensemble"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubEngine struct {
	strategies []domain.StrategyWeight
	signal     *domain.EnsembleSignal
	resolved   *domain.TradingSignal
	updates    []domain.WeightUpdate
	addErr     error
	removeErr  error
	updateErr  error

	addedWeight     float64
	removedID       string
	lastWindowDays  int
	aggregatedBatch []domain.TradingSignal
}

func (s *stubEngine) AddStrategy(_ ensemble.Strategy, weight float64) error {
	s.addedWeight = weight
	return s.addErr
}

func (s *stubEngine) RemoveStrategy(id string) error {
	s.removedID = id
	return s.removeErr
}

func (s *stubEngine) GetStrategies() []domain.StrategyWeight { return s.strategies }

func (s *stubEngine) GenerateEnsembleSignal(_ context.Context, md domain.MarketData) *domain.EnsembleSignal {
	out := s.signal
	if out == nil {
		out = &domain.EnsembleSignal{Type: domain.SignalHold}
	}
	out.Symbol = md.Symbol
	return out
}

func (s *stubEngine) AggregateSignals(_ context.Context, signals []domain.TradingSignal) *domain.EnsembleSignal {
	s.aggregatedBatch = signals
	if s.signal != nil {
		return s.signal
	}
	return &domain.EnsembleSignal{Type: domain.SignalHold}
}

func (s *stubEngine) ResolveConflicts(_ context.Context, signals []domain.TradingSignal) *domain.TradingSignal {
	return s.resolved
}

func (s *stubEngine) UpdateWeights(_ context.Context, _ []domain.StrategyPerformance) ([]domain.WeightUpdate, error) {
	return s.updates, s.updateErr
}

func (s *stubEngine) RebalanceWeights(_ context.Context, windowDays int) ([]domain.WeightUpdate, error) {
	s.lastWindowDays = windowDays
	return s.updates, s.updateErr
}

type stubMarket struct {
	snapshot domain.MarketData
	candles  []domain.Candle
	err      error
}

func (s *stubMarket) GetSnapshot(_ context.Context, symbol string) (domain.MarketData, error) {
	if s.err != nil {
		return domain.MarketData{}, s.err
	}
	md := s.snapshot
	md.Symbol = symbol
	return md, nil
}

func (s *stubMarket) GetSnapshots(_ context.Context) ([]domain.MarketData, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.MarketData{s.snapshot}, nil
}

func (s *stubMarket) RecentCandles(_ context.Context, symbol string, limit int) ([]domain.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candles, nil
}

type stubAudit struct {
	inserted []domain.WeightUpdate
	listed   []domain.WeightUpdate
	err      error
}

func (s *stubAudit) InsertUpdates(_ context.Context, updates []domain.WeightUpdate) error {
	s.inserted = append(s.inserted, updates...)
	return s.err
}

func (s *stubAudit) ListRecent(_ context.Context, limit int) ([]domain.WeightUpdate, error) {
	return s.listed, s.err
}

func newTestRouter(engine *stubEngine, market *stubMarket, audit WeightAudit, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(testTracer, engine, market, audit).RegisterRoutes(r, apiKey)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubEngine{}, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestGenerateSignal(t *testing.T) {
	engine := &stubEngine{signal: &domain.EnsembleSignal{Type: domain.SignalBuy, ConsensusStrength: 0.8}}
	market := &stubMarket{snapshot: domain.MarketData{Close: 50000, Timestamp: time.Now()}}
	r := newTestRouter(engine, market, nil, "")

	w := doJSON(t, r, http.MethodGet, "/api/ensemble/signal/btc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out domain.EnsembleSignal
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Type != domain.SignalBuy || out.Symbol != "BTC" {
		t.Fatalf("unexpected signal: %+v", out)
	}
}

func TestGenerateSignalUnsupportedSymbol(t *testing.T) {
	r := newTestRouter(&stubEngine{}, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodGet, "/api/ensemble/signal/FAKE", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAggregateSignals(t *testing.T) {
	engine := &stubEngine{signal: &domain.EnsembleSignal{Type: domain.SignalSell}}
	r := newTestRouter(engine, &stubMarket{}, nil, "")

	payload := []domain.TradingSignal{
		{Type: domain.SignalSell, Strength: 0.7, Confidence: 0.8},
	}
	w := doJSON(t, r, http.MethodPost, "/api/ensemble/aggregate", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(engine.aggregatedBatch) != 1 {
		t.Fatalf("engine did not receive the batch: %v", engine.aggregatedBatch)
	}
}

func TestAggregateSignalsBadPayload(t *testing.T) {
	r := newTestRouter(&stubEngine{}, &stubMarket{}, nil, "")

	req, _ := http.NewRequest(http.MethodPost, "/api/ensemble/aggregate", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestResolveConflictsRejectsEmptyBatch(t *testing.T) {
	r := newTestRouter(&stubEngine{}, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodPost, "/api/ensemble/resolve", []domain.TradingSignal{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAddStrategy(t *testing.T) {
	engine := &stubEngine{}
	r := newTestRouter(engine, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodPost, "/api/strategies", map[string]any{
		"kind":   "rsi-reversion",
		"weight": 0.25,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if engine.addedWeight != 0.25 {
		t.Fatalf("weight not passed through: %f", engine.addedWeight)
	}
}

func TestAddStrategyUnknownKind(t *testing.T) {
	r := newTestRouter(&stubEngine{}, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodPost, "/api/strategies", map[string]any{
		"kind":   "astrology",
		"weight": 0.25,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAddStrategyDuplicateConflicts(t *testing.T) {
	engine := &stubEngine{addErr: ensemble.ErrStrategyExists}
	r := newTestRouter(engine, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodPost, "/api/strategies", map[string]any{
		"kind":   "momentum",
		"weight": 0.25,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestRemoveStrategyNotFound(t *testing.T) {
	engine := &stubEngine{removeErr: ensemble.ErrStrategyNotFound}
	r := newTestRouter(engine, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodDelete, "/api/strategies/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if engine.removedID != "ghost" {
		t.Fatalf("id not passed through: %q", engine.removedID)
	}
}

func TestUpdateWeightsPersistsAudit(t *testing.T) {
	engine := &stubEngine{updates: []domain.WeightUpdate{
		{StrategyID: "a", OldWeight: 0.5, NewWeight: 0.6},
	}}
	audit := &stubAudit{}
	r := newTestRouter(engine, &stubMarket{}, audit, "")

	w := doJSON(t, r, http.MethodPost, "/api/weights/update", []domain.StrategyPerformance{
		{StrategyID: "a", TotalReturn: 0.2},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(audit.inserted) != 1 {
		t.Fatalf("audit record not persisted: %v", audit.inserted)
	}
}

func TestRebalanceWeightsWindow(t *testing.T) {
	engine := &stubEngine{}
	r := newTestRouter(engine, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodPost, "/api/weights/rebalance?window_days=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if engine.lastWindowDays != 7 {
		t.Fatalf("window not passed through: %d", engine.lastWindowDays)
	}
}

func TestRebalanceWeightsErrors(t *testing.T) {
	engine := &stubEngine{updateErr: errors.New("no history")}
	r := newTestRouter(engine, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodPost, "/api/weights/rebalance", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestListWeightUpdatesWithoutStore(t *testing.T) {
	r := newTestRouter(&stubEngine{}, &stubMarket{}, nil, "")

	w := doJSON(t, r, http.MethodGet, "/api/weights/updates", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestMutatingRoutesRequireAPIKey(t *testing.T) {
	r := newTestRouter(&stubEngine{}, &stubMarket{}, nil, "secret")

	w := doJSON(t, r, http.MethodPost, "/api/weights/rebalance", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	req, _ := http.NewRequest(http.MethodPost, "/api/weights/rebalance", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", rec.Code)
	}

	// Read-side routes stay open.
	if w := doJSON(t, r, http.MethodGet, "/api/strategies", nil); w.Code != http.StatusOK {
		t.Fatalf("expected open read route, got %d", w.Code)
	}
}

func TestGetCandles(t *testing.T) {
	market := &stubMarket{candles: []domain.Candle{{Symbol: "BTC", Interval: "1h", Close: 1}}}
	r := newTestRouter(&stubEngine{}, market, nil, "")

	w := doJSON(t, r, http.MethodGet, "/api/candles/BTC?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"interval":"1h"`)) {
		t.Fatalf("interval missing from response: %s", w.Body.String())
	}
}
