package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/eqsat/eqsat/pkg/model"
)

// MockPresetRepository is a mock implementation of the PresetRepository interface.
type MockPresetRepository struct {
	mock.Mock
}

// SavePreset mocks the SavePreset method.
func (m *MockPresetRepository) SavePreset(ctx context.Context, rec model.PresetRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// GetPreset mocks the GetPreset method.
func (m *MockPresetRepository) GetPreset(ctx context.Context, id string) (*model.PresetRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PresetRecord), args.Error(1)
}

// ListPresets mocks the ListPresets method.
func (m *MockPresetRepository) ListPresets(ctx context.Context) ([]*model.PresetRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PresetRecord), args.Error(1)
}

// ExpectGetPreset sets up an expectation for GetPreset.
func (m *MockPresetRepository) ExpectGetPreset(id string, rec *model.PresetRecord, err error) *mock.Call {
	return m.On("GetPreset", mock.Anything, id).Return(rec, err)
}

// ExpectListPresets sets up an expectation for ListPresets.
func (m *MockPresetRepository) ExpectListPresets(recs []*model.PresetRecord, err error) *mock.Call {
	return m.On("ListPresets", mock.Anything).Return(recs, err)
}

// MockRunRepository is a mock implementation of the RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

// CreateRun mocks the CreateRun method.
func (m *MockRunRepository) CreateRun(ctx context.Context, rec model.RunRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// GetRun mocks the GetRun method.
func (m *MockRunRepository) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunRecord), args.Error(1)
}

// GetPendingRuns mocks the GetPendingRuns method.
func (m *MockRunRepository) GetPendingRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RunRecord), args.Error(1)
}

// LockRunForExecution mocks the LockRunForExecution method.
func (m *MockRunRepository) LockRunForExecution(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, startedAt)
	return args.Bool(0), args.Error(1)
}

// CompleteRun mocks the CompleteRun method.
func (m *MockRunRepository) CompleteRun(ctx context.Context, id string, status model.RunStatus, haltedReason model.HaltedReason, timelineURL string, finishedAt time.Time) error {
	args := m.Called(ctx, id, status, haltedReason, timelineURL, finishedAt)
	return args.Error(0)
}

// FailRun mocks the FailRun method.
func (m *MockRunRepository) FailRun(ctx context.Context, id string, errMsg string, finishedAt time.Time) error {
	args := m.Called(ctx, id, errMsg, finishedAt)
	return args.Error(0)
}

// ExpectCreateRun sets up an expectation for CreateRun.
func (m *MockRunRepository) ExpectCreateRun(err error) *mock.Call {
	return m.On("CreateRun", mock.Anything, mock.Anything).Return(err)
}

// ExpectLockRunForExecution sets up an expectation for LockRunForExecution.
func (m *MockRunRepository) ExpectLockRunForExecution(id string, success bool, err error) *mock.Call {
	return m.On("LockRunForExecution", mock.Anything, id, mock.Anything).Return(success, err)
}

// ExpectGetPendingRuns sets up an expectation for GetPendingRuns.
func (m *MockRunRepository) ExpectGetPendingRuns(limit int, runs []*model.RunRecord, err error) *mock.Call {
	return m.On("GetPendingRuns", mock.Anything, limit).Return(runs, err)
}
