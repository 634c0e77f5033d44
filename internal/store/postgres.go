package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS planning_runs (
	run_id     text PRIMARY KEY,
	created_at timestamptz NOT NULL,
	solutions  jsonb NOT NULL,
	demand     jsonb NOT NULL
)`

// Postgres persists runs in a planning_runs table, route solutions and demand
// rows as jsonb documents.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// SaveRun upserts the record by run identifier.
func (p *Postgres) SaveRun(ctx context.Context, rec RunRecord) error {
	solutions, err := json.Marshal(rec.Solutions)
	if err != nil {
		return err
	}
	dem, err := json.Marshal(rec.Demand)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO planning_runs (run_id, created_at, solutions, demand)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE
		SET created_at = EXCLUDED.created_at,
		    solutions  = EXCLUDED.solutions,
		    demand     = EXCLUDED.demand`,
		rec.RunID, rec.CreatedAt, solutions, dem)
	return err
}

// GetRun returns the record for runID or ErrNotFound.
func (p *Postgres) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	rec := RunRecord{RunID: runID}
	var solutions, dem []byte
	err := p.pool.QueryRow(ctx, `
		SELECT created_at, solutions, demand
		FROM planning_runs WHERE run_id = $1`, runID).
		Scan(&rec.CreatedAt, &solutions, &dem)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal(solutions, &rec.Solutions); err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal(dem, &rec.Demand); err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns up to limit run identifiers, newest first.
func (p *Postgres) ListRuns(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT run_id FROM planning_runs
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }
