// Package driver implements the saturation state machine: it interleaves
// read, write, compact and repair phases under the configured strategy,
// respects the iteration cap and node cap, and calls the Snapshotter
// after every logically meaningful sub-step. Step advances the machine
// by exactly one phase; RunUntilHalt drives it to completion.
package driver

import (
	"github.com/eqsat/eqsat/internal/applier"
	"github.com/eqsat/eqsat/internal/matcher"
	"github.com/eqsat/eqsat/internal/rebuilder"
	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/internal/snapshot"
	apperrors "github.com/eqsat/eqsat/pkg/errors"
	"github.com/eqsat/eqsat/pkg/model"
)

type state int

const (
	stateRead state = iota
	stateApplyWrite
	stateRebuildDrain
	stateIterationEnd
	stateEmitDone
	stateHalted
)

type rebuildSubPhase int

const (
	subCompact rebuildSubPhase = iota
	subRepair
)

// Driver is the per-run state machine. It owns no data of its own beyond
// bookkeeping; the Runtime and Snapshotter hold the actual e-graph and
// timeline-building state.
type Driver struct {
	rt       *runtime.Runtime
	rb       *rebuilder.Rebuilder
	snapper  *snapshot.Snapshotter
	rules    []model.Rewrite
	rulesBy  map[string]model.Rewrite
	opts     model.Options
	canceled func() bool

	state            state
	batchIter        *matcher.BatchIterator
	matchQueue       []model.Match
	matchCursor      int
	iterationCount   int
	iterationChanged bool
	rebuildSub       rebuildSubPhase
	afterRebuild     state
	haltedReason     model.HaltedReason
	halted           bool
}

// New creates a Driver ready to run the read phase of the first iteration.
func New(rt *runtime.Runtime, rb *rebuilder.Rebuilder, snapper *snapshot.Snapshotter, rules []model.Rewrite, opts model.Options, canceled func() bool) *Driver {
	rulesBy := make(map[string]model.Rewrite, len(rules))
	for _, r := range rules {
		rulesBy[r.Name] = r
	}
	if canceled == nil {
		canceled = func() bool { return false }
	}
	return &Driver{
		rt:       rt,
		rb:       rb,
		snapper:  snapper,
		rules:    rules,
		rulesBy:  rulesBy,
		opts:     opts,
		canceled: canceled,
		state:    stateRead,
	}
}

// Halted reports whether the run has finished (a done snapshot has been
// emitted).
func (d *Driver) Halted() bool {
	return d.halted
}

func (d *Driver) invariantsOrNil() (map[string]bool, error) {
	if !d.opts.DebugInvariants {
		return nil, nil
	}
	result, err := d.rt.CheckInvariants()
	if err != nil {
		return nil, err
	}
	for key, ok := range result {
		if !ok {
			return result, apperrors.InvariantViolationErr(key, "invariant check failed during run")
		}
	}
	return result, nil
}

// Step advances the state machine by exactly one logical phase and
// returns the snapshot it produced. Returns (nil, nil) once the run has
// already halted. A non-nil error is a propagating fault (invariant
// violation or unknown id) per the engine's error taxonomy; it is never
// used for resource/cancellation halts, which are signaled through the
// returned timeline's haltedReason instead.
func (d *Driver) Step() (*model.Snapshot, error) {
	if d.halted {
		return nil, nil
	}

	if d.state != stateEmitDone && d.opts.MaxNodes > 0 && len(d.rt.Nodes()) > d.opts.MaxNodes {
		d.haltedReason = model.HaltedIterationCap
		d.state = stateEmitDone
	}
	if d.state != stateEmitDone && d.canceled() {
		d.haltedReason = model.HaltedCanceled
		d.state = stateEmitDone
	}

	switch d.state {
	case stateRead:
		return d.stepRead()
	case stateApplyWrite:
		return d.stepApplyWrite()
	case stateRebuildDrain:
		return d.stepRebuildDrain()
	case stateIterationEnd:
		return d.stepIterationEnd()
	case stateEmitDone:
		return d.stepEmitDone()
	default:
		return nil, nil
	}
}

// RunUntilHalt drives Step to completion and returns the snapshots this
// call itself produces. It accepts a fresh or partially-stepped Driver;
// snapshots emitted by earlier Step calls are not included.
func (d *Driver) RunUntilHalt() ([]*model.Snapshot, model.HaltedReason, error) {
	var out []*model.Snapshot
	for !d.halted {
		snap, err := d.Step()
		if err != nil {
			return out, d.haltedReason, err
		}
		if snap == nil {
			break
		}
		out = append(out, snap)
	}
	return out, d.haltedReason, nil
}

// markChanged records, for the current outer iteration, whether snap
// carries any observable state change (a new e-node or an actual merge,
// per snap.Metadata.Diffs). Equality-saturation rules keep matching long
// after their rewrite becomes a no-op (a literal or bare-variable LHS
// re-matches its e-class every iteration even once the rule has nothing
// left to do), so "the read phase produced zero matches" alone is not a
// reliable saturation signal — change-by-diff is.
func (d *Driver) markChanged(snap *model.Snapshot) {
	if len(snap.Metadata.Diffs) > 0 {
		d.iterationChanged = true
	}
}

func (d *Driver) stepRead() (*model.Snapshot, error) {
	if d.batchIter == nil {
		d.batchIter = matcher.NewBatchIterator(d.rt, d.rules, d.opts.ReadBatchSize)
		d.iterationChanged = false
	}
	matches, done, err := d.batchIter.Next()
	if err != nil {
		return nil, err
	}

	phase := model.PhaseReadBatch
	if done {
		phase = model.PhaseRead
	}
	invariants, ierr := d.invariantsOrNil()
	if ierr != nil {
		return nil, ierr
	}
	snap := d.snapper.Emit(phase, model.InvalidId, false, matches, invariants, "")

	if !done {
		return snap, nil
	}
	d.batchIter = nil
	if len(matches) == 0 {
		d.haltedReason = model.HaltedSaturated
		d.state = stateEmitDone
		return snap, nil
	}
	d.matchQueue = matches
	d.matchCursor = 0
	d.state = stateApplyWrite
	return snap, nil
}

func (d *Driver) stepApplyWrite() (*model.Snapshot, error) {
	if d.matchCursor >= len(d.matchQueue) {
		if model.IsEager(d.opts.Implementation) {
			d.state = stateIterationEnd
			return d.stepIterationEnd()
		}
		d.rebuildSub = subCompact
		d.afterRebuild = stateIterationEnd
		d.state = stateRebuildDrain
		return d.stepRebuildDrain()
	}

	m := d.matchQueue[d.matchCursor]
	d.matchCursor++

	note := ""
	rule, ok := d.rulesBy[m.Rule]
	if ok {
		diff, err := applier.Apply(d.rt, rule, m)
		if err != nil {
			return nil, err
		}
		if diff == nil {
			note = "no-op: target already equal to instantiated root"
		}
	}

	invariants, ierr := d.invariantsOrNil()
	if ierr != nil {
		return nil, ierr
	}
	snap := d.snapper.Emit(model.PhaseWrite, m.EClass, true, nil, invariants, note)
	d.markChanged(snap)

	if model.IsEager(d.opts.Implementation) {
		d.rebuildSub = subCompact
		d.afterRebuild = stateApplyWrite
		d.state = stateRebuildDrain
	}
	return snap, nil
}

func (d *Driver) stepRebuildDrain() (*model.Snapshot, error) {
	if d.rebuildSub == subCompact {
		survivor, removed, err := d.rb.CompactStep()
		if err != nil {
			return nil, err
		}
		if removed {
			invariants, ierr := d.invariantsOrNil()
			if ierr != nil {
				return nil, ierr
			}
			snap := d.snapper.Emit(model.PhaseCompact, survivor, true, nil, invariants, "")
			d.markChanged(snap)
			return snap, nil
		}
		d.rebuildSub = subRepair
	}

	active, hadWork, err := d.rb.RepairStep()
	if err != nil {
		return nil, err
	}
	if hadWork {
		invariants, ierr := d.invariantsOrNil()
		if ierr != nil {
			return nil, ierr
		}
		snap := d.snapper.Emit(model.PhaseRepair, active, true, nil, invariants, "")
		d.markChanged(snap)
		return snap, nil
	}

	d.state = d.afterRebuild
	switch d.state {
	case stateApplyWrite:
		return d.stepApplyWrite()
	case stateIterationEnd:
		return d.stepIterationEnd()
	default:
		return nil, nil
	}
}

func (d *Driver) stepIterationEnd() (*model.Snapshot, error) {
	if !d.iterationChanged {
		// The read phase found matches, but every one of them was a no-op
		// (its rule had already fired to fixpoint) and rebuild touched
		// nothing: no Add/Merge diff was recorded anywhere this iteration.
		// That is saturation, even though the match list itself was never
		// empty (see markChanged).
		d.haltedReason = model.HaltedSaturated
		d.state = stateEmitDone
		return d.stepEmitDone()
	}
	d.iterationCount++
	if d.iterationCount > d.opts.IterationCap {
		d.haltedReason = model.HaltedIterationCap
		d.state = stateEmitDone
		return d.stepEmitDone()
	}
	d.state = stateRead
	d.batchIter = nil
	return d.stepRead()
}

func (d *Driver) stepEmitDone() (*model.Snapshot, error) {
	invariants, ierr := d.invariantsOrNil()
	if ierr != nil {
		return nil, ierr
	}
	snap := d.snapper.Emit(model.PhaseDone, model.InvalidId, false, nil, invariants, string(d.haltedReason))
	d.state = stateHalted
	d.halted = true
	return snap, nil
}
