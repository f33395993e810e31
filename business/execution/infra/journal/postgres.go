package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

// Schema expected by the postgres journal:
//
//	CREATE TABLE IF NOT EXISTS execution_steps (
//	    id             BIGSERIAL PRIMARY KEY,
//	    opportunity_id TEXT        NOT NULL,
//	    step           TEXT        NOT NULL,
//	    status         TEXT        NOT NULL,
//	    details        TEXT        NOT NULL DEFAULT '',
//	    is_live        BOOLEAN     NOT NULL DEFAULT FALSE,
//	    created_at     TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX IF NOT EXISTS execution_steps_opportunity_idx
//	    ON execution_steps (opportunity_id, id);

const insertStep = `
INSERT INTO execution_steps (opportunity_id, step, status, details, is_live, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// Postgres is an append-only journal backed by PostgreSQL.
type Postgres struct {
	pool   *pgxpool.Pool
	logger logger.LoggerInterface
}

// NewPostgres connects to the database and verifies connectivity.
func NewPostgres(ctx context.Context, dsn string, log logger.LoggerInterface) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse journal dsn: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect journal database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal database: %w", err)
	}

	return &Postgres{pool: pool, logger: log}, nil
}

// Append inserts a record. The table is insert-only; nothing updates or
// deletes rows from this code path.
func (p *Postgres) Append(ctx context.Context, record domain.StepRecord) error {
	_, err := p.pool.Exec(ctx, insertStep,
		record.OpportunityID,
		string(record.Step),
		string(record.Status),
		record.Details,
		record.Live,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append step record: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
