package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqsat/eqsat/pkg/model"
)

func TestPostgresRunRepository_CreateRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	t.Run("CreateRun_Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO runs").
			WithArgs("run-1", "preset-1", sqlmock.AnyArg(), 0, string(model.RunStatusPending), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.CreateRun(context.Background(), model.RunRecord{
			ID:       "run-1",
			PresetId: "preset-1",
			Options:  model.Options{Implementation: model.ImplementationDeferred},
		})
		require.NoError(t, err)
	})
}

func TestPostgresRunRepository_GetRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	t.Run("GetRun_Success", func(t *testing.T) {
		optsJSON, _ := json.Marshal(model.Options{Implementation: model.ImplementationNaive})
		now := time.Now()

		rows := sqlmock.NewRows([]string{
			"id", "preset_id", "options", "priority", "status",
			"halted_reason", "timeline_url", "error",
			"created_at", "started_at", "finished_at",
		}).AddRow(
			"run-1", "preset-1", optsJSON, 5, string(model.RunStatusDone),
			string(model.HaltedSaturated), "runs/run-1/timeline.json", "",
			now, now, now,
		)

		mock.ExpectQuery("SELECT id, preset_id, options").WithArgs("run-1").WillReturnRows(rows)

		rec, err := repo.GetRun(context.Background(), "run-1")
		require.NoError(t, err)
		assert.Equal(t, "run-1", rec.ID)
		assert.Equal(t, model.RunStatusDone, rec.Status)
		assert.Equal(t, model.HaltedSaturated, rec.HaltedReason)
		assert.Equal(t, model.ImplementationNaive, rec.Options.Implementation)
	})

	t.Run("GetRun_NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, preset_id, options").WithArgs("missing").WillReturnError(sql.ErrNoRows)

		rec, err := repo.GetRun(context.Background(), "missing")
		assert.Error(t, err)
		assert.Nil(t, rec)
		assert.Contains(t, err.Error(), "run not found")
	})
}

func TestPostgresRunRepository_GetPendingRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	t.Run("GetPendingRuns_Empty", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "preset_id", "options", "priority", "status",
			"halted_reason", "timeline_url", "error",
			"created_at", "started_at", "finished_at",
		})
		mock.ExpectQuery("SELECT id, preset_id, options").WithArgs(string(model.RunStatusPending), 10).WillReturnRows(rows)

		recs, err := repo.GetPendingRuns(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("GetPendingRuns_WithData", func(t *testing.T) {
		optsJSON, _ := json.Marshal(model.Options{})
		rows := sqlmock.NewRows([]string{
			"id", "preset_id", "options", "priority", "status",
			"halted_reason", "timeline_url", "error",
			"created_at", "started_at", "finished_at",
		}).AddRow(
			"run-2", "preset-2", optsJSON, 1, string(model.RunStatusPending),
			"", "", "", time.Now(), nil, nil,
		)
		mock.ExpectQuery("SELECT id, preset_id, options").WithArgs(string(model.RunStatusPending), 10).WillReturnRows(rows)

		recs, err := repo.GetPendingRuns(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "run-2", recs[0].ID)
		assert.Nil(t, recs[0].StartedAt)
	})
}

func TestPostgresRunRepository_LockRunForExecution(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	t.Run("Lock_Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM runs").
			WithArgs("run-1", string(model.RunStatusPending)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(model.RunStatusPending)))
		mock.ExpectExec("UPDATE runs SET status").
			WithArgs(string(model.RunStatusRunning), sqlmock.AnyArg(), "run-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		won, err := repo.LockRunForExecution(context.Background(), "run-1", time.Now())
		require.NoError(t, err)
		assert.True(t, won)
	})

	t.Run("Lock_AlreadyLocked", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM runs").
			WithArgs("run-1", string(model.RunStatusPending)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		won, err := repo.LockRunForExecution(context.Background(), "run-1", time.Now())
		require.NoError(t, err)
		assert.False(t, won)
	})
}

func TestPostgresRunRepository_CompleteRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	t.Run("Complete_Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE runs SET status").
			WithArgs(string(model.RunStatusDone), string(model.HaltedSaturated), "runs/run-1/timeline.json", sqlmock.AnyArg(), "run-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CompleteRun(context.Background(), "run-1", model.RunStatusDone, model.HaltedSaturated, "runs/run-1/timeline.json", time.Now())
		require.NoError(t, err)
	})

	t.Run("Complete_NotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE runs SET status").
			WithArgs(string(model.RunStatusDone), string(model.HaltedSaturated), "", sqlmock.AnyArg(), "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.CompleteRun(context.Background(), "missing", model.RunStatusDone, model.HaltedSaturated, "", time.Now())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "run not found")
	})
}

func TestPostgresRunRepository_FailRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRunRepository(db)

	t.Run("Fail_Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE runs SET status").
			WithArgs(string(model.RunStatusFailed), "boom", sqlmock.AnyArg(), "run-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.FailRun(context.Background(), "run-1", "boom", time.Now())
		require.NoError(t, err)
	})
}
