package scheduler

import (
	"context"
	"time"

	"github.com/eqsat/eqsat/internal/repository"
	"github.com/eqsat/eqsat/pkg/model"
)

// RepositoryTaskFetcher implements a poll-based pickup of pending runs
// directly from the run repository, without going through a TaskSource.
// The scheduler.source.DatabaseSource covers the same ground through the
// generic TaskSource/Aggregator path; this type exists for callers (e.g.
// a one-off batch drain) that want direct repository access instead.
type RepositoryTaskFetcher struct {
	runRepo repository.RunRepository
}

// NewRepositoryTaskFetcher creates a new RepositoryTaskFetcher.
func NewRepositoryTaskFetcher(runRepo repository.RunRepository) *RepositoryTaskFetcher {
	return &RepositoryTaskFetcher{runRepo: runRepo}
}

// FetchPendingTasks returns pending runs to be processed.
func (f *RepositoryTaskFetcher) FetchPendingTasks(ctx context.Context, limit int) ([]*Task, error) {
	runs, err := f.runRepo.GetPendingRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := make([]*Task, len(runs))
	for i, r := range runs {
		result[i] = convertRunRecord(r)
	}
	return result, nil
}

// LockTask attempts to lock a run for processing.
func (f *RepositoryTaskFetcher) LockTask(ctx context.Context, runID string) (bool, error) {
	return f.runRepo.LockRunForExecution(ctx, runID, time.Now())
}

// CompleteTask records a run's terminal outcome.
func (f *RepositoryTaskFetcher) CompleteTask(ctx context.Context, runID string, status model.RunStatus, haltedReason model.HaltedReason, timelineURL string) error {
	return f.runRepo.CompleteRun(ctx, runID, status, haltedReason, timelineURL, time.Now())
}

// FailTask records a run's failure.
func (f *RepositoryTaskFetcher) FailTask(ctx context.Context, runID string, errMsg string) error {
	return f.runRepo.FailRun(ctx, runID, errMsg, time.Now())
}

// convertRunRecord converts a model.RunRecord to a scheduler.Task.
func convertRunRecord(r *model.RunRecord) *Task {
	return &Task{
		RunID:    r.ID,
		PresetId: r.PresetId,
		Options:  r.Options,
		Priority: r.Priority,
	}
}
