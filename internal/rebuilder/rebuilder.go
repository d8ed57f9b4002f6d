// Package rebuilder implements the two strictly sequential rebuild
// sub-phases: Compact (garbage-collect classes the union-find has
// already subsumed) and Repair (restore congruence closure by regrouping
// parents of worklist entries). Both are exposed as single-step
// functions so the Driver can emit a snapshot after every sub-step.
package rebuilder

import (
	"sort"

	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/pkg/model"
)

// Rebuilder drives Compact and Repair over a runtime.
type Rebuilder struct {
	rt *runtime.Runtime
}

// New creates a Rebuilder bound to rt.
func New(rt *runtime.Runtime) *Rebuilder {
	return &Rebuilder{rt: rt}
}

// CompactStep finds the smallest non-canonical id still present in the
// class map (a "ghost" left behind by a deferred-mode merge; Runtime.Merge
// already folded its content into the survivor, so this step's only job
// is the version bump and the map deletion) and removes it. Returns the
// survivor class id and true if a ghost was removed, or false if the
// class map currently holds no non-canonical entries.
func (rb *Rebuilder) CompactStep() (survivor model.EClassId, removed bool, err error) {
	for _, id := range rb.rt.ClassIds() {
		canonical, ferr := rb.rt.IsCanonical(id)
		if ferr != nil {
			return model.InvalidId, false, ferr
		}
		if canonical {
			continue
		}
		c, ferr := rb.rt.Find(id)
		if ferr != nil {
			return model.InvalidId, false, ferr
		}
		if cls := rb.rt.Class(c); cls != nil {
			cls.Touch()
		}
		rb.rt.DeleteClass(id)
		return c, true, nil
	}
	return model.InvalidId, false, nil
}

// CompactAll drains every ghost in one call, invoking onStep after each
// removal (used when the caller does not need per-step snapshot
// emission). Returns the number of ghosts removed.
func (rb *Rebuilder) CompactAll(onStep func(survivor model.EClassId) error) (int, error) {
	count := 0
	for {
		survivor, removed, err := rb.CompactStep()
		if err != nil {
			return count, err
		}
		if !removed {
			return count, nil
		}
		count++
		if onStep != nil {
			if err := onStep(survivor); err != nil {
				return count, err
			}
		}
	}
}

// RepairStep pops one canonical id from the worklist and regroups its
// parents by their re-canonicalized key: within each group, the parent
// with the smallest id is the "leader"; every other member of the group
// is unconditionally merged into it using eager semantics — these inner
// merges don't repopulate the worklist and always delete the loser
// immediately, regardless of the runtime's configured strategy, per
// spec §4.5(c) (guaranteeing termination and leaving no ghost entries
// behind for compaction, which has already run, to clean up). The
// hashcons entry for the regrouped key is then set to the surviving
// leader. Returns the popped id (the snapshot's activeId) and whether
// any work was done.
func (rb *Rebuilder) RepairStep() (active model.EClassId, hadWork bool, err error) {
	e, ok := rb.rt.WorklistPop()
	if !ok {
		return model.InvalidId, false, nil
	}

	parents, err := rb.rt.GetParents(e)
	if err != nil {
		return model.InvalidId, false, err
	}

	type groupEntry struct {
		parentId model.ENodeId
		key      string
	}
	groups := make(map[string][]groupEntry)
	var keys []string
	for _, p := range parents {
		canon, cerr := rb.rt.Canonicalize(p.Node)
		if cerr != nil {
			return model.InvalidId, false, cerr
		}
		key := model.CanonicalKey(canon)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], groupEntry{parentId: p.ParentId, key: key})
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := groups[key]
		sort.Slice(members, func(i, j int) bool { return members[i].parentId < members[j].parentId })

		leaderCanon, ferr := rb.rt.Find(members[0].parentId)
		if ferr != nil {
			return model.InvalidId, false, ferr
		}
		for i := 1; i < len(members); i++ {
			otherCanon, ferr := rb.rt.Find(members[i].parentId)
			if ferr != nil {
				return model.InvalidId, false, ferr
			}
			if otherCanon == leaderCanon {
				continue
			}
			winner, merr := rb.rt.MergeEager(leaderCanon, otherCanon)
			if merr != nil {
				return model.InvalidId, false, merr
			}
			rb.rt.WorklistRemove(winner)
			leaderCanon = winner
		}
		rb.rt.SetHashcons(key, leaderCanon)
	}

	return e, true, nil
}

// RepairAll drains the worklist in one call, invoking onStep after each
// pop.
func (rb *Rebuilder) RepairAll(onStep func(active model.EClassId) error) (int, error) {
	count := 0
	for {
		active, hadWork, err := rb.RepairStep()
		if err != nil {
			return count, err
		}
		if !hadWork {
			return count, nil
		}
		count++
		if onStep != nil {
			if err := onStep(active); err != nil {
				return count, err
			}
		}
	}
}
