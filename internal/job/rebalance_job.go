package job

import (
	"context"
	"log"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// RebalanceJob re-weights the strategy registry against recorded performance
// once a day and persists the audit trail.
type RebalanceJob struct {
	tracer     trace.Tracer
	engine     WeightRebalancer
	audit      WeightAuditStore
	windowDays int
	hourUTC    int
}

type WeightRebalancer interface {
	RebalanceWeights(ctx context.Context, windowDays int) ([]domain.WeightUpdate, error)
}

// WeightAuditStore persists weight updates. Optional.
type WeightAuditStore interface {
	InsertUpdates(ctx context.Context, updates []domain.WeightUpdate) error
}

func NewRebalanceJob(tracer trace.Tracer, engine WeightRebalancer, audit WeightAuditStore, windowDays, hourUTC int) *RebalanceJob {
	return &RebalanceJob{
		tracer:     tracer,
		engine:     engine,
		audit:      audit,
		windowDays: windowDays,
		hourUTC:    hourUTC,
	}
}

// Start schedules the daily rebalance. Blocks until ctx is cancelled.
func (j *RebalanceJob) Start(ctx context.Context) {
	log.Printf("Rebalance job starting, daily at %02d:00 UTC...", j.hourUTC)

	for {
		wait := j.untilNextRun(time.Now().UTC())
		select {
		case <-ctx.Done():
			log.Println("Rebalance job stopped")
			return
		case <-time.After(wait):
			j.runOnce(ctx)
		}
	}
}

func (j *RebalanceJob) untilNextRun(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), j.hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func (j *RebalanceJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "job.rebalance")
	defer span.End()

	updates, err := j.engine.RebalanceWeights(ctx, j.windowDays)
	if err != nil {
		log.Printf("rebalance job: %v", err)
		return
	}

	log.Printf("rebalance job: applied %d weight updates", len(updates))

	if j.audit == nil || len(updates) == 0 {
		return
	}
	if err := j.audit.InsertUpdates(ctx, updates); err != nil {
		log.Printf("rebalance job: persist audit: %v", err)
	}
}
