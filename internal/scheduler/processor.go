package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/eqsat/eqsat/internal/engine"
	"github.com/eqsat/eqsat/internal/repository"
	"github.com/eqsat/eqsat/internal/storage"
	"github.com/eqsat/eqsat/pkg/config"
	"github.com/eqsat/eqsat/pkg/model"
	"github.com/eqsat/eqsat/pkg/utils"
	"github.com/eqsat/eqsat/pkg/writer"
)

// DefaultTaskProcessor implements TaskProcessor by loading a run's preset,
// driving an engine.Engine to a halt, and persisting the resulting
// timeline.
type DefaultTaskProcessor struct {
	config  *config.Config
	storage storage.Storage
	repos   *repository.Repositories
	clock   utils.Clock
	logger  utils.Logger
}

// ProcessorConfig holds processor configuration.
type ProcessorConfig struct {
	Config  *config.Config
	Storage storage.Storage
	Repos   *repository.Repositories
	Clock   utils.Clock
	Logger  utils.Logger
}

// NewDefaultTaskProcessor creates a new DefaultTaskProcessor.
func NewDefaultTaskProcessor(cfg *ProcessorConfig) *DefaultTaskProcessor {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = utils.NewRealClock()
	}

	return &DefaultTaskProcessor{
		config:  cfg.Config,
		storage: cfg.Storage,
		repos:   cfg.Repos,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}
}

// Process runs task's preset to a halt and persists the outcome.
func (p *DefaultTaskProcessor) Process(ctx context.Context, task *Task) error {
	p.logger.Info("Starting run %s (preset: %s)", task.RunID, task.PresetId)

	presetRec, err := p.repos.Preset.GetPreset(ctx, task.PresetId)
	if err != nil {
		p.failRun(ctx, task.RunID, fmt.Errorf("failed to load preset: %w", err))
		return err
	}

	eng := engine.New(p.clock, p.logger)
	if err := eng.LoadPreset(presetRec.Preset, task.Options, nil); err != nil {
		p.failRun(ctx, task.RunID, fmt.Errorf("failed to load preset into engine: %w", err))
		return err
	}

	timeline, err := eng.RunUntilHalt()
	if err != nil {
		p.failRun(ctx, task.RunID, fmt.Errorf("run failed: %w", err))
		return err
	}

	timelineURL, err := p.uploadTimeline(ctx, task.RunID, timeline)
	if err != nil {
		p.failRun(ctx, task.RunID, fmt.Errorf("failed to upload timeline: %w", err))
		return err
	}

	status := model.RunStatusDone
	if timeline.HaltedReason == model.HaltedCanceled {
		status = model.RunStatusFailed
	}
	if err := p.repos.Run.CompleteRun(ctx, task.RunID, status, timeline.HaltedReason, timelineURL, p.clock.Now()); err != nil {
		return fmt.Errorf("failed to record run completion: %w", err)
	}

	p.logger.Info("Run %s completed (%s, %d steps)", task.RunID, timeline.HaltedReason, len(timeline.States))
	return nil
}

// uploadTimeline serializes timeline as JSON and uploads it under the
// run's id, returning the storage key/URL.
func (p *DefaultTaskProcessor) uploadTimeline(ctx context.Context, runID string, timeline *model.Timeline) (string, error) {
	jw := writer.NewJSONWriter[*model.Timeline]()
	var buf bytes.Buffer
	if err := jw.Write(timeline, &buf); err != nil {
		return "", fmt.Errorf("failed to encode timeline: %w", err)
	}

	key := fmt.Sprintf("runs/%s/timeline.json", runID)
	if err := p.storage.Upload(ctx, key, &buf); err != nil {
		return "", err
	}
	return p.storage.GetURL(key), nil
}

func (p *DefaultTaskProcessor) failRun(ctx context.Context, runID string, cause error) {
	p.logger.Error("Run %s failed: %v", runID, cause)
	if err := p.repos.Run.FailRun(ctx, runID, cause.Error(), time.Now()); err != nil {
		p.logger.Error("Failed to record run failure for %s: %v", runID, err)
	}
}
