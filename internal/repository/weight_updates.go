package repository

import (
	"context"

	"signal-quorum/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

const createWeightUpdatesTable = `
CREATE TABLE IF NOT EXISTS weight_updates (
    id          BIGSERIAL        PRIMARY KEY,
    strategy_id TEXT             NOT NULL,
    old_weight  DOUBLE PRECISION NOT NULL,
    new_weight  DOUBLE PRECISION NOT NULL,
    reasoning   TEXT             NOT NULL,
    created_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_weight_updates_strategy_time
    ON weight_updates (strategy_id, created_at DESC);
`

// WeightUpdateRepository keeps the audit trail of every rebalance.
type WeightUpdateRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewWeightUpdateRepository(pool PgxPool, tracer trace.Tracer) *WeightUpdateRepository {
	return &WeightUpdateRepository{pool: pool, tracer: tracer}
}

func (r *WeightUpdateRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "weight-update-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createWeightUpdatesTable)
	return err
}

func (r *WeightUpdateRepository) InsertUpdates(ctx context.Context, updates []domain.WeightUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "weight-update-repo.insert-updates")
	defer span.End()

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(
			`INSERT INTO weight_updates (strategy_id, old_weight, new_weight, reasoning)
			 VALUES ($1, $2, $3, $4)`,
			u.StrategyID, u.OldWeight, u.NewWeight, u.Reasoning,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range updates {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *WeightUpdateRepository) ListRecent(ctx context.Context, limit int) ([]domain.WeightUpdate, error) {
	_, span := r.tracer.Start(ctx, "weight-update-repo.list-recent")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT strategy_id, old_weight, new_weight, reasoning, created_at
		 FROM weight_updates
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []domain.WeightUpdate
	for rows.Next() {
		var u domain.WeightUpdate
		if err := rows.Scan(&u.StrategyID, &u.OldWeight, &u.NewWeight, &u.Reasoning, &u.CreatedAt); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
