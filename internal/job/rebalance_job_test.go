package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type stubRebalancer struct {
	window  int
	updates []domain.WeightUpdate
	err     error
}

func (s *stubRebalancer) RebalanceWeights(_ context.Context, windowDays int) ([]domain.WeightUpdate, error) {
	s.window = windowDays
	return s.updates, s.err
}

type stubAuditStore struct {
	inserted []domain.WeightUpdate
	err      error
}

func (s *stubAuditStore) InsertUpdates(_ context.Context, updates []domain.WeightUpdate) error {
	s.inserted = append(s.inserted, updates...)
	return s.err
}

func TestRebalanceRunOncePersistsUpdates(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	engine := &stubRebalancer{updates: []domain.WeightUpdate{
		{StrategyID: "rsi-reversion", OldWeight: 0.5, NewWeight: 0.6},
		{StrategyID: "macd-trend", OldWeight: 0.5, NewWeight: 0.4},
	}}
	audit := &stubAuditStore{}

	job := NewRebalanceJob(tracer, engine, audit, 30, 0)
	job.runOnce(context.Background())

	if engine.window != 30 {
		t.Fatalf("expected window 30, got %d", engine.window)
	}
	if len(audit.inserted) != 2 {
		t.Fatalf("expected 2 persisted updates, got %d", len(audit.inserted))
	}
}

func TestRebalanceRunOnceWithoutAudit(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	engine := &stubRebalancer{updates: []domain.WeightUpdate{{StrategyID: "momentum"}}}

	job := NewRebalanceJob(tracer, engine, nil, 7, 0)
	job.runOnce(context.Background())

	if engine.window != 7 {
		t.Fatalf("expected window 7, got %d", engine.window)
	}
}

func TestRebalanceRunOnceEngineError(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	engine := &stubRebalancer{err: errors.New("no history")}
	audit := &stubAuditStore{}

	job := NewRebalanceJob(tracer, engine, audit, 30, 0)
	job.runOnce(context.Background())

	if len(audit.inserted) != 0 {
		t.Fatalf("expected no persisted updates, got %d", len(audit.inserted))
	}
}

func TestUntilNextRun(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	job := NewRebalanceJob(tracer, &stubRebalancer{}, nil, 30, 3)

	now := time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)
	if got := job.untilNextRun(now); got != 2*time.Hour {
		t.Fatalf("expected 2h, got %v", got)
	}

	now = time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	if got := job.untilNextRun(now); got != 24*time.Hour {
		t.Fatalf("expected 24h, got %v", got)
	}

	now = time.Date(2024, 6, 1, 5, 30, 0, 0, time.UTC)
	if got := job.untilNextRun(now); got != 21*time.Hour+30*time.Minute {
		t.Fatalf("expected 21h30m, got %v", got)
	}
}
