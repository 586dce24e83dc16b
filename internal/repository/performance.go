package repository

import (
	"context"
	"time"

	"signal-quorum/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const createPerformanceTable = `
CREATE TABLE IF NOT EXISTS strategy_performance (
    strategy_id   TEXT             NOT NULL,
    total_return  DOUBLE PRECISION NOT NULL,
    sharpe_ratio  DOUBLE PRECISION NOT NULL,
    max_drawdown  DOUBLE PRECISION NOT NULL,
    win_rate      DOUBLE PRECISION NOT NULL DEFAULT 0,
    volatility    DOUBLE PRECISION NOT NULL DEFAULT 0,
    trades_count  INTEGER          NOT NULL DEFAULT 0,
    avg_win       DOUBLE PRECISION NOT NULL DEFAULT 0,
    avg_loss      DOUBLE PRECISION NOT NULL DEFAULT 0,
    profit_factor DOUBLE PRECISION NOT NULL DEFAULT 0,
    timeframe     TEXT             NOT NULL DEFAULT '',
    recorded_at   TIMESTAMPTZ      NOT NULL DEFAULT now(),
    PRIMARY KEY (strategy_id, recorded_at)
);

CREATE INDEX IF NOT EXISTS idx_strategy_performance_recorded_at
    ON strategy_performance (recorded_at DESC);
`

// PerformanceRepository stores per-strategy performance records and serves
// the windowed reads the weight manager rebalances from.
type PerformanceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPerformanceRepository(pool PgxPool, tracer trace.Tracer) *PerformanceRepository {
	return &PerformanceRepository{pool: pool, tracer: tracer}
}

func (r *PerformanceRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "performance-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPerformanceTable)
	return err
}

func (r *PerformanceRepository) InsertPerformance(ctx context.Context, rec domain.StrategyPerformance) error {
	_, span := r.tracer.Start(ctx, "performance-repo.insert-performance")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO strategy_performance
		     (strategy_id, total_return, sharpe_ratio, max_drawdown, win_rate,
		      volatility, trades_count, avg_win, avg_loss, profit_factor, timeframe)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.StrategyID, rec.TotalReturn, rec.SharpeRatio, rec.MaxDrawdown, rec.WinRate,
		rec.Volatility, rec.TradesCount, rec.AvgWin, rec.AvgLoss, rec.ProfitFactor, rec.Timeframe,
	)
	return err
}

// ListPerformance returns the newest record per strategy within the window.
// It satisfies the weight manager's history interface.
func (r *PerformanceRepository) ListPerformance(ctx context.Context, windowDays int) ([]domain.StrategyPerformance, error) {
	_, span := r.tracer.Start(ctx, "performance-repo.list-performance")
	defer span.End()

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (strategy_id)
		     strategy_id, total_return, sharpe_ratio, max_drawdown, win_rate,
		     volatility, trades_count, avg_win, avg_loss, profit_factor, timeframe
		 FROM strategy_performance
		 WHERE recorded_at >= $1
		 ORDER BY strategy_id, recorded_at DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.StrategyPerformance
	for rows.Next() {
		var rec domain.StrategyPerformance
		if err := rows.Scan(
			&rec.StrategyID, &rec.TotalReturn, &rec.SharpeRatio, &rec.MaxDrawdown, &rec.WinRate,
			&rec.Volatility, &rec.TradesCount, &rec.AvgWin, &rec.AvgLoss, &rec.ProfitFactor, &rec.Timeframe,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
