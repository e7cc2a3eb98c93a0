// Package runledger is the engine's own bookkeeping store: one row per
// pipeline phase attempt, used to resume or report on ingestion runs. It is
// separate from any client's source database and lives in the engine's own
// Postgres instance (config.LedgerConfig).
package runledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is a pipeline_runs.status value.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one row of pipeline_runs.
type Run struct {
	ID          int64
	ClientID    string
	Phase       string
	Status      Status
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Ledger records pipeline phase attempts in Postgres.
type Ledger struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected, already-migrated pool.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Start inserts a running row for one client/phase attempt and returns its
// id, to be passed to Finish.
func (l *Ledger) Start(ctx context.Context, clientID, phase string) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (client_id, phase, status) VALUES ($1, $2, $3) RETURNING id`,
		clientID, phase, StatusRunning,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start run %s/%s: %w", clientID, phase, err)
	}
	return id, nil
}

// Finish marks a run complete, succeeded or failed depending on runErr.
func (l *Ledger) Finish(ctx context.Context, id int64, runErr error) error {
	status := StatusSucceeded
	var errMsg *string
	if runErr != nil {
		status = StatusFailed
		msg := runErr.Error()
		errMsg = &msg
	}

	_, err := l.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, completed_at = now(), error = $2 WHERE id = $3`,
		status, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", id, err)
	}
	return nil
}

// LatestPhase returns the most recent run of phase for clientID, or
// ok=false if the phase has never run.
func (l *Ledger) LatestPhase(ctx context.Context, clientID, phase string) (Run, bool, error) {
	var run Run
	err := l.pool.QueryRow(ctx,
		`SELECT id, client_id, phase, status, started_at, completed_at, coalesce(error, '')
		 FROM pipeline_runs
		 WHERE client_id = $1 AND phase = $2
		 ORDER BY started_at DESC
		 LIMIT 1`,
		clientID, phase,
	).Scan(&run.ID, &run.ClientID, &run.Phase, &run.Status, &run.StartedAt, &run.CompletedAt, &run.Error)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("latest run %s/%s: %w", clientID, phase, err)
	}
	return run, true, nil
}
