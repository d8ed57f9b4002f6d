package repository

import (
	"context"
	"time"

	"github.com/eqsat/eqsat/pkg/model"
)

// PresetRepository defines the interface for preset persistence.
type PresetRepository interface {
	// SavePreset inserts or replaces a preset definition.
	SavePreset(ctx context.Context, rec model.PresetRecord) error

	// GetPreset retrieves a preset by its id.
	GetPreset(ctx context.Context, id string) (*model.PresetRecord, error)

	// ListPresets retrieves every stored preset, ordered by label.
	ListPresets(ctx context.Context) ([]*model.PresetRecord, error)
}

// RunRepository defines the interface for run persistence.
type RunRepository interface {
	// CreateRun inserts a new run record in RunStatusPending.
	CreateRun(ctx context.Context, rec model.RunRecord) error

	// GetRun retrieves a run by its id.
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)

	// GetPendingRuns retrieves up to limit pending runs, highest priority
	// first.
	GetPendingRuns(ctx context.Context, limit int) ([]*model.RunRecord, error)

	// LockRunForExecution attempts to transition a pending run to running,
	// reporting whether the caller won the lock.
	LockRunForExecution(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// CompleteRun records a run's terminal outcome.
	CompleteRun(ctx context.Context, id string, status model.RunStatus, haltedReason model.HaltedReason, timelineURL string, finishedAt time.Time) error

	// FailRun records a run's failure.
	FailRun(ctx context.Context, id string, errMsg string, finishedAt time.Time) error
}
