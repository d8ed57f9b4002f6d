// Package engine is the public facade over the e-graph runtime and its
// saturation pipeline: LoadPreset builds a fresh Runtime from a preset's
// root term, RunUntilHalt/Step drive the Driver, and GetTimeline returns
// the last completed timeline with its visual-state annotations filled
// in. Everything below this package (runtime, matcher, applier,
// rebuilder, snapshot, visualizer, driver) is pure in-process library
// code; Engine owns the one stateful thing a caller touches.
package engine

import (
	"github.com/eqsat/eqsat/internal/applier"
	"github.com/eqsat/eqsat/internal/driver"
	"github.com/eqsat/eqsat/internal/pattern"
	"github.com/eqsat/eqsat/internal/rebuilder"
	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/internal/snapshot"
	"github.com/eqsat/eqsat/internal/visualizer"
	apperrors "github.com/eqsat/eqsat/pkg/errors"
	"github.com/eqsat/eqsat/pkg/model"
	"github.com/eqsat/eqsat/pkg/utils"
)

const defaultChunkSize = 1024

// Engine owns one loaded preset's Runtime, Driver and accumulated
// timeline. It is not safe for concurrent use: the Runtime is a single-
// writer structure, per the spec's concurrency model (§5).
type Engine struct {
	clock utils.Clock
	log   utils.Logger

	presetId  string
	strategy  model.Implementation
	opts      model.Options
	canceled  func() bool
	rt        *runtime.Runtime
	rb        *rebuilder.Rebuilder
	snapper   *snapshot.Snapshotter
	dr        *driver.Driver
	rules     []model.Rewrite
	timeline  *model.Timeline
	completed bool
}

// New creates an Engine. clock supplies Snapshot.Timestamp (a
// utils.FrozenClock zeros it, satisfying invariant I6 under test); log
// receives a line per phase transition when non-nil.
func New(clock utils.Clock, log utils.Logger) *Engine {
	if clock == nil {
		clock = utils.NewRealClock()
	}
	return &Engine{clock: clock, log: log}
}

// CancelFunc reports whether the in-flight run should halt at the next
// snapshot boundary.
type CancelFunc func() bool

// LoadPreset validates preset (pattern grammar, RHS-variable closure, a
// concrete root) and options, resets the engine's runtime and timeline,
// instantiates the root term, and emits the init snapshot. It is the
// only entry point that can return a PresetValidationError.
func (e *Engine) LoadPreset(preset model.Preset, opts model.Options, canceled CancelFunc) error {
	opts = applyHints(preset, opts)
	if violations := validatePreset(preset, opts); len(violations) > 0 {
		return apperrors.PresetValidationError(violations)
	}

	if canceled == nil {
		canceled = func() bool { return false }
	}

	e.presetId = preset.ID
	e.strategy = opts.Implementation
	e.opts = opts
	e.canceled = canceled
	e.rules = enabledRules(preset.Rewrites)
	e.completed = false

	e.rt = runtime.New(!model.IsEager(opts.Implementation), opts.HasSeed, opts.Seed)
	e.rb = rebuilder.New(e.rt)
	e.snapper = snapshot.New(e.rt, preset.ID, opts.Implementation, defaultChunkSize, e.clock.Now)

	if _, err := applier.InstantiateRoot(e.rt, preset.Root); err != nil {
		return err
	}

	initSnap := e.snapper.Emit(model.PhaseInit, model.InvalidId, false, nil, nil, "")
	e.timeline = &model.Timeline{PresetId: preset.ID, Implementation: opts.Implementation}
	e.timeline.States = append(e.timeline.States, initSnap)

	e.dr = driver.New(e.rt, e.rb, e.snapper, e.rules, opts, canceled)
	e.logPhase(initSnap)
	return nil
}

// Step advances the state machine by exactly one phase, appends the
// resulting snapshot to the timeline, and returns it. Returns nil once
// the run has halted (the null-sentinel described in §6).
func (e *Engine) Step() (*model.Snapshot, error) {
	if e.dr == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "no preset loaded")
	}
	if e.completed {
		return nil, nil
	}
	snap, err := e.dr.Step()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	e.timeline.States = append(e.timeline.States, snap)
	e.logPhase(snap)
	if e.dr.Halted() {
		e.finish()
	}
	return snap, nil
}

// RunUntilHalt drives Step to completion and returns the completed
// timeline, with every snapshot's visual state filled in.
func (e *Engine) RunUntilHalt() (*model.Timeline, error) {
	if e.dr == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "no preset loaded")
	}
	for !e.dr.Halted() {
		if _, err := e.Step(); err != nil {
			return nil, err
		}
	}
	return e.timeline, nil
}

// GetTimeline returns the last completed timeline without mutation. It
// is nil until RunUntilHalt (or Step through to a done snapshot) has
// run.
func (e *Engine) GetTimeline() *model.Timeline {
	if !e.completed {
		return nil
	}
	return e.timeline
}

func (e *Engine) finish() {
	e.timeline.HaltedReason = lastHaltedReason(e.timeline)
	e.timeline.States = visualizer.Annotate(e.timeline.States)
	e.completed = true
}

func (e *Engine) logPhase(s *model.Snapshot) {
	if e.log == nil {
		return
	}
	e.log.Debug("engine %s: step=%d phase=%s", e.presetId, s.StepIndex, s.Phase)
}

func lastHaltedReason(t *model.Timeline) model.HaltedReason {
	if last := t.Last(); last != nil {
		return model.HaltedReason(last.Metadata.Note)
	}
	return model.HaltedNone
}

// validatePreset collects every violation of the documented preset schema:
// the root must be fully concrete, every rule name must be unique, every
// RHS variable must occur in its LHS, and Options.Implementation must be
// one of the two closed strategies.
func validatePreset(preset model.Preset, opts model.Options) []string {
	var violations []string

	if !preset.Root.IsConcrete() {
		violations = append(violations, "root pattern must be fully concrete (no variables)")
	}

	seen := make(map[string]bool, len(preset.Rewrites))
	for _, r := range preset.Rewrites {
		if r.Name == "" {
			violations = append(violations, "rewrite with empty name")
			continue
		}
		if seen[r.Name] {
			violations = append(violations, "duplicate rewrite name: "+r.Name)
		}
		seen[r.Name] = true
	}
	violations = append(violations, pattern.ValidateRewrites(preset.Rewrites)...)

	switch opts.Implementation {
	case model.ImplementationNaive, model.ImplementationDeferred:
	default:
		violations = append(violations, "options.implementation must be \"naive\" or \"deferred\"")
	}
	if opts.IterationCap <= 0 {
		violations = append(violations, "options.iterationCap must be positive")
	}

	return violations
}

func enabledRules(rules []model.Rewrite) []model.Rewrite {
	out := make([]model.Rewrite, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// applyHints fills Implementation/IterationCap/ReadBatchSize/MaxNodes from
// the preset's ImplementationHints wherever the caller's Options left the
// field at its zero value: the hints' own DefaultStrategy/IterationCap
// take precedence over a named profile's values (model.ApplyProfile),
// and an IterationCap still zero afterwards defaults to 100.
func applyHints(preset model.Preset, opts model.Options) model.Options {
	hints := preset.ImplementationHints
	if hints != nil {
		if opts.Implementation == "" && hints.DefaultStrategy != "" {
			opts.Implementation = hints.DefaultStrategy
		}
		if opts.IterationCap == 0 && hints.IterationCap > 0 {
			opts.IterationCap = hints.IterationCap
		}
		if hints.Profile != "" {
			opts = model.ApplyProfile(opts, hints.Profile)
		}
	}
	if opts.IterationCap == 0 {
		opts.IterationCap = 100
	}
	return opts
}
