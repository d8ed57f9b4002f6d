package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ipattern "github.com/eqsat/eqsat/internal/pattern"
	"github.com/eqsat/eqsat/pkg/model"
	"github.com/eqsat/eqsat/pkg/utils"
)

func mulOnePreset(t *testing.T) model.Preset {
	t.Helper()
	lhs, err := ipattern.Parse("*(?x, 1)")
	require.NoError(t, err)
	rhs, err := ipattern.Parse("?x")
	require.NoError(t, err)
	root, err := ipattern.Parse("*(a, 1)")
	require.NoError(t, err)
	return model.Preset{
		ID:   "mul-one",
		Root: root,
		Rewrites: []model.Rewrite{
			{Name: "mul-one", LHS: lhs, RHS: rhs, Enabled: true},
		},
	}
}

func TestLoadPresetRejectsNonConcreteRoot(t *testing.T) {
	e := New(utils.NewFrozenClock(), nil)
	root, err := ipattern.Parse("?x")
	require.NoError(t, err)
	preset := model.Preset{ID: "bad", Root: root}

	err = e.LoadPreset(preset, model.DefaultOptions(), nil)
	require.Error(t, err)
}

func TestRunUntilHaltSaturatesEager(t *testing.T) {
	e := New(utils.NewFrozenClock(), nil)
	opts := model.DefaultOptions()
	opts.Implementation = model.ImplementationNaive

	require.NoError(t, e.LoadPreset(mulOnePreset(t), opts, nil))
	timeline, err := e.RunUntilHalt()
	require.NoError(t, err)

	assert.Equal(t, model.HaltedSaturated, timeline.HaltedReason)
	require.NotEmpty(t, timeline.States)
	assert.Equal(t, model.PhaseDone, timeline.Last().Phase)
	for _, s := range timeline.States {
		assert.True(t, s.Timestamp.IsZero(), "FrozenClock should zero every snapshot's timestamp")
	}
}

func TestRunUntilHaltSaturatesDeferred(t *testing.T) {
	e := New(utils.NewFrozenClock(), nil)
	opts := model.DefaultOptions()
	opts.Implementation = model.ImplementationDeferred

	require.NoError(t, e.LoadPreset(mulOnePreset(t), opts, nil))
	timeline, err := e.RunUntilHalt()
	require.NoError(t, err)
	assert.Equal(t, model.HaltedSaturated, timeline.HaltedReason)
}

func TestStepReturnsNilAfterHalt(t *testing.T) {
	e := New(utils.NewFrozenClock(), nil)
	opts := model.DefaultOptions()
	opts.Implementation = model.ImplementationNaive
	require.NoError(t, e.LoadPreset(mulOnePreset(t), opts, nil))

	for {
		snap, err := e.Step()
		require.NoError(t, err)
		if snap == nil {
			break
		}
	}

	snap, err := e.Step()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestGetTimelineNilUntilComplete(t *testing.T) {
	e := New(utils.NewFrozenClock(), nil)
	opts := model.DefaultOptions()
	opts.Implementation = model.ImplementationNaive
	require.NoError(t, e.LoadPreset(mulOnePreset(t), opts, nil))

	assert.Nil(t, e.GetTimeline())
	_, err := e.RunUntilHalt()
	require.NoError(t, err)
	assert.NotNil(t, e.GetTimeline())
}

func TestRunUntilHaltHaltsOnCancel(t *testing.T) {
	e := New(utils.NewFrozenClock(), nil)
	opts := model.DefaultOptions()
	opts.Implementation = model.ImplementationDeferred
	canceled := true

	require.NoError(t, e.LoadPreset(mulOnePreset(t), opts, func() bool { return canceled }))
	timeline, err := e.RunUntilHalt()
	require.NoError(t, err)
	assert.Equal(t, model.HaltedCanceled, timeline.HaltedReason)
}

func TestLoadPresetAppliesNamedProfile(t *testing.T) {
	preset := mulOnePreset(t)
	preset.ImplementationHints = &model.ImplementationHints{Profile: model.ProfileFast}

	e := New(utils.NewFrozenClock(), nil)
	require.NoError(t, e.LoadPreset(preset, model.Options{Implementation: model.ImplementationNaive}, nil))
	assert.Equal(t, 20, e.opts.IterationCap)
	assert.Equal(t, 20000, e.opts.MaxNodes)
}

func TestDeterministicReplaySameSeedSameTimeline(t *testing.T) {
	run := func() *model.Timeline {
		e := New(utils.NewFrozenClock(), nil)
		opts := model.DefaultOptions()
		opts.Implementation = model.ImplementationDeferred
		opts.HasSeed = true
		opts.Seed = 42
		require.NoError(t, e.LoadPreset(mulOnePreset(t), opts, nil))
		timeline, err := e.RunUntilHalt()
		require.NoError(t, err)
		return timeline
	}

	a := run()
	b := run()
	require.Equal(t, len(a.States), len(b.States))
	for i := range a.States {
		assert.Equal(t, a.States[i].Phase, b.States[i].Phase)
		assert.Equal(t, a.States[i].StepIndex, b.States[i].StepIndex)
	}
}
