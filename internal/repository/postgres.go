package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eqsat/eqsat/pkg/model"
)

// PostgresRunRepository implements RunRepository directly over
// database/sql, bypassing GORM. It exists alongside GormRunRepository for
// deployments that embed the scheduler in a process that already owns a
// raw *sql.DB (e.g. one shared with other non-GORM tooling) and want to
// avoid a second connection pool.
type PostgresRunRepository struct {
	db *sql.DB
}

// NewPostgresRunRepository creates a new PostgresRunRepository.
func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// CreateRun inserts a new run record in RunStatusPending.
func (r *PostgresRunRepository) CreateRun(ctx context.Context, rec model.RunRecord) error {
	if rec.Status == "" {
		rec.Status = model.RunStatusPending
	}
	opts, err := json.Marshal(rec.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal run options: %w", err)
	}

	query := `
		INSERT INTO runs (id, preset_id, options, priority, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, query, rec.ID, rec.PresetId, opts, rec.Priority, string(rec.Status), createdAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by its id.
func (r *PostgresRunRepository) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	query := `
		SELECT id, preset_id, options, priority, status,
			   COALESCE(halted_reason, ''), COALESCE(timeline_url, ''), COALESCE(error, ''),
			   created_at, started_at, finished_at
		FROM runs
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	rec, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rec, nil
}

// GetPendingRuns retrieves up to limit pending runs, highest priority
// first.
func (r *PostgresRunRepository) GetPendingRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	query := `
		SELECT id, preset_id, options, priority, status,
			   COALESCE(halted_reason, ''), COALESCE(timeline_url, ''), COALESCE(error, ''),
			   created_at, started_at, finished_at
		FROM runs
		WHERE status = $1
		ORDER BY priority DESC, created_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, string(model.RunStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}
	defer rows.Close()

	var out []*model.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending runs: %w", err)
	}
	return out, nil
}

// LockRunForExecution attempts to transition a pending run to running,
// reporting whether the caller won the lock.
func (r *PostgresRunRepository) LockRunForExecution(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM runs WHERE id = $1 AND status = $2 FOR UPDATE`,
		id, string(model.RunStatusPending),
	).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to select run for lock: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET status = $1, started_at = $2 WHERE id = $3`,
		string(model.RunStatusRunning), startedAt, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to lock run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit lock: %w", err)
	}
	return true, nil
}

// CompleteRun records a run's terminal outcome.
func (r *PostgresRunRepository) CompleteRun(ctx context.Context, id string, status model.RunStatus, haltedReason model.HaltedReason, timelineURL string, finishedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = $1, halted_reason = $2, timeline_url = $3, finished_at = $4 WHERE id = $5`,
		string(status), string(haltedReason), timelineURL, finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// FailRun records a run's failure.
func (r *PostgresRunRepository) FailRun(ctx context.Context, id string, errMsg string, finishedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errMsg, finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// rowScanner abstracts *sql.Row/*sql.Rows so scanRun serves both
// single-row (QueryRowContext) and multi-row (QueryContext) callers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*model.RunRecord, error) {
	rec := &model.RunRecord{}
	var optsJSON []byte
	var haltedReason, timelineURL, errMsg string
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.PresetId, &optsJSON, &rec.Priority, &rec.Status,
		&haltedReason, &timelineURL, &errMsg,
		&rec.CreatedAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.HaltedReason = model.HaltedReason(haltedReason)
	rec.TimelineURL = timelineURL
	rec.Error = errMsg
	if startedAt.Valid {
		t := startedAt.Time
		rec.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	if optsJSON != nil {
		if err := json.Unmarshal(optsJSON, &rec.Options); err != nil {
			return nil, fmt.Errorf("failed to parse run options: %w", err)
		}
	}
	return rec, nil
}
