package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eqsat/eqsat/pkg/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPresetRepository implements PresetRepository using GORM.
type GormPresetRepository struct {
	db *gorm.DB
}

// NewGormPresetRepository creates a new GormPresetRepository.
func NewGormPresetRepository(db *gorm.DB) *GormPresetRepository {
	return &GormPresetRepository{db: db}
}

// SavePreset inserts or replaces a preset definition.
func (r *GormPresetRepository) SavePreset(ctx context.Context, rec model.PresetRecord) error {
	row, err := presetModelFromRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "description", "definition", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save preset: %w", err)
	}
	return nil
}

// GetPreset retrieves a preset by its id.
func (r *GormPresetRepository) GetPreset(ctx context.Context, id string) (*model.PresetRecord, error) {
	var row PresetModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("preset not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}
	return row.ToRecord()
}

// ListPresets retrieves every stored preset, ordered by label.
func (r *GormPresetRepository) ListPresets(ctx context.Context) ([]*model.PresetRecord, error) {
	var rows []PresetModel
	err := r.db.WithContext(ctx).Order("label ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}

	out := make([]*model.PresetRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.ToRecord()
		if err != nil {
			return nil, fmt.Errorf("failed to decode preset %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// CreateRun inserts a new run record in RunStatusPending.
func (r *GormRunRepository) CreateRun(ctx context.Context, rec model.RunRecord) error {
	if rec.Status == "" {
		rec.Status = model.RunStatusPending
	}
	row, err := runModelFromRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by its id.
func (r *GormRunRepository) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	var row RunModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return row.ToRecord()
}

// GetPendingRuns retrieves up to limit pending runs, highest priority
// first.
func (r *GormRunRepository) GetPendingRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	var rows []RunModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(model.RunStatusPending)).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}

	out := make([]*model.RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.ToRecord()
		if err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// LockRunForExecution attempts to transition a pending run to running,
// reporting whether the caller won the lock.
func (r *GormRunRepository) LockRunForExecution(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	var won bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row RunModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, string(model.RunStatusPending)).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		err = tx.Model(&RunModel{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     string(model.RunStatusRunning),
				"started_at": startedAt,
			}).Error
		if err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to lock run: %w", err)
	}
	return won, nil
}

// CompleteRun records a run's terminal outcome.
func (r *GormRunRepository) CompleteRun(ctx context.Context, id string, status model.RunStatus, haltedReason model.HaltedReason, timelineURL string, finishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&RunModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        string(status),
			"halted_reason": string(haltedReason),
			"timeline_url":  timelineURL,
			"finished_at":   finishedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// FailRun records a run's failure.
func (r *GormRunRepository) FailRun(ctx context.Context, id string, errMsg string, finishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&RunModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      string(model.RunStatusFailed),
			"error":       errMsg,
			"finished_at": finishedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to fail run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}
