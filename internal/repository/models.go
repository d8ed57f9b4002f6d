// Package repository provides database abstraction for presets and runs.
package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/eqsat/eqsat/pkg/model"
)

// PresetModel represents the presets table.
type PresetModel struct {
	ID          string    `gorm:"column:id;type:varchar(64);primaryKey"`
	Label       string    `gorm:"column:label;type:varchar(256)"`
	Description string    `gorm:"column:description;type:text"`
	Definition  JSONField `gorm:"column:definition;type:json"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for PresetModel.
func (PresetModel) TableName() string {
	return "presets"
}

// ToRecord converts PresetModel to model.PresetRecord.
func (p *PresetModel) ToRecord() (*model.PresetRecord, error) {
	rec := &model.PresetRecord{
		ID:          p.ID,
		Label:       p.Label,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Definition != nil {
		if err := json.Unmarshal(p.Definition, &rec.Preset); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// presetModelFromRecord builds a PresetModel row out of a PresetRecord.
func presetModelFromRecord(rec model.PresetRecord) (*PresetModel, error) {
	def, err := json.Marshal(rec.Preset)
	if err != nil {
		return nil, err
	}
	return &PresetModel{
		ID:          rec.ID,
		Label:       rec.Label,
		Description: rec.Description,
		Definition:  def,
	}, nil
}

// RunModel represents the runs table.
type RunModel struct {
	ID           string     `gorm:"column:id;type:varchar(64);primaryKey"`
	PresetID     string     `gorm:"column:preset_id;type:varchar(64);index"`
	Options      JSONField  `gorm:"column:options;type:json"`
	Priority     int        `gorm:"column:priority"`
	Status       string     `gorm:"column:status;type:varchar(32);index"`
	HaltedReason string     `gorm:"column:halted_reason;type:varchar(32)"`
	TimelineURL  string     `gorm:"column:timeline_url;type:varchar(512)"`
	Error        string     `gorm:"column:error;type:text"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	StartedAt    *time.Time `gorm:"column:started_at"`
	FinishedAt   *time.Time `gorm:"column:finished_at"`
}

// TableName returns the table name for RunModel.
func (RunModel) TableName() string {
	return "runs"
}

// ToRecord converts RunModel to model.RunRecord.
func (r *RunModel) ToRecord() (*model.RunRecord, error) {
	rec := &model.RunRecord{
		ID:           r.ID,
		PresetId:     r.PresetID,
		Priority:     r.Priority,
		Status:       model.RunStatus(r.Status),
		HaltedReason: model.HaltedReason(r.HaltedReason),
		TimelineURL:  r.TimelineURL,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
	if r.Options != nil {
		if err := json.Unmarshal(r.Options, &rec.Options); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// runModelFromRecord builds a RunModel row out of a RunRecord.
func runModelFromRecord(rec model.RunRecord) (*RunModel, error) {
	opts, err := json.Marshal(rec.Options)
	if err != nil {
		return nil, err
	}
	return &RunModel{
		ID:           rec.ID,
		PresetID:     rec.PresetId,
		Options:      opts,
		Priority:     rec.Priority,
		Status:       string(rec.Status),
		HaltedReason: string(rec.HaltedReason),
		TimelineURL:  rec.TimelineURL,
		Error:        rec.Error,
		CreatedAt:    rec.CreatedAt,
		StartedAt:    rec.StartedAt,
		FinishedAt:   rec.FinishedAt,
	}, nil
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
