// Package visualizer implements the post-pass over a completed timeline
// that assigns every node and e-class a semantic style tag, deterministically
// from each snapshot's (phase, metadata, worklist, unionFind). It never
// mutates an existing Snapshot; it returns a new one carrying the computed
// visualStates, sharing every other field by reference (the "in-place
// via structural-sharing replacement" the data model calls for).
package visualizer

import "github.com/eqsat/eqsat/pkg/model"

const (
	NodeDefault      = "Default"
	NodeMatchedLHS   = "MatchedLHS"
	NodeNewNode      = "NewNode"
	NodeNonCanonical = "NonCanonical"
	NodeParentNode   = "ParentNode"

	ClassDefault    = "Default"
	ClassActive     = "Active"
	ClassInWorklist = "InWorklist"
	ClassMerged     = "Merged"
)

// Annotate returns a new slice of snapshots, each carrying computed
// NodeVisualStates/ClassVisualStates; the input slice and its elements
// are left untouched.
func Annotate(states []*model.Snapshot) []*model.Snapshot {
	out := make([]*model.Snapshot, len(states))
	for i, s := range states {
		out[i] = annotateOne(s)
	}
	return out
}

func annotateOne(s *model.Snapshot) *model.Snapshot {
	next := *s // shallow copy; slice/map fields below are freshly allocated

	matchedNodes := make(map[model.ENodeId]bool)
	for _, m := range s.Metadata.Matches {
		for _, n := range m.MatchedNodes {
			matchedNodes[n] = true
		}
	}
	newNodes := make(map[model.ENodeId]bool)
	for _, d := range s.Metadata.Diffs {
		switch d.Kind {
		case model.DiffAdd:
			newNodes[d.AddedId] = true
		case model.DiffRewrite:
			newNodes[d.CreatedId] = true
		}
	}
	worklist := make(map[model.EClassId]bool, len(s.Worklist))
	for _, id := range s.Worklist {
		worklist[id] = true
	}
	canonicalOf := func(id model.EClassId) (model.EClassId, bool) {
		if int(id) < 0 || int(id) >= len(s.UnionFind) {
			return model.InvalidId, false
		}
		return s.UnionFind[id].Canonical, true
	}
	isCanonical := func(id model.EClassId) bool {
		if int(id) < 0 || int(id) >= len(s.UnionFind) {
			return true
		}
		return s.UnionFind[id].IsCanonical
	}

	nodeStates := make(map[model.ENodeId]model.VisualState)
	classStates := make(map[model.EClassId]model.VisualState)

	for _, cv := range s.EClasses {
		classCanonical := isCanonical(cv.Id)

		var classStyle string
		switch {
		case s.Phase == model.PhaseCompact && !classCanonical:
			classStyle = ClassMerged
		case (s.Phase == model.PhaseCompact || s.Phase == model.PhaseRepair) && s.Metadata.HasActiveId && cv.Id == s.Metadata.ActiveId:
			classStyle = ClassActive
		case worklist[cv.Id]:
			classStyle = ClassInWorklist
		default:
			classStyle = ClassDefault
		}
		classStates[cv.Id] = model.VisualState{StyleClass: classStyle, IsCanonical: classCanonical}

		for _, n := range cv.Nodes {
			portTargets := make([]model.EClassId, len(n.Args))
			anyNonCanonicalArg := false
			argIsActive := false
			for i, a := range n.Args {
				canon, ok := canonicalOf(a)
				if ok {
					portTargets[i] = canon
				} else {
					portTargets[i] = a
				}
				if !isCanonical(a) {
					anyNonCanonicalArg = true
				}
				if s.Metadata.HasActiveId && a == s.Metadata.ActiveId {
					argIsActive = true
				}
			}

			var nodeStyle string
			switch {
			case s.Phase == model.PhaseRepair && argIsActive:
				nodeStyle = NodeParentNode
			case s.Phase == model.PhaseCompact && anyNonCanonicalArg:
				nodeStyle = NodeNonCanonical
			case s.Phase == model.PhaseWrite && newNodes[n.Id]:
				nodeStyle = NodeNewNode
			case (s.Phase == model.PhaseRead || s.Phase == model.PhaseReadBatch || s.Phase == model.PhaseWrite) && matchedNodes[n.Id]:
				nodeStyle = NodeMatchedLHS
			default:
				nodeStyle = NodeDefault
			}

			nodeStates[n.Id] = model.VisualState{
				StyleClass:  nodeStyle,
				IsCanonical: classCanonical,
				PortTargets: portTargets,
			}
		}
	}

	next.NodeVisualStates = nodeStates
	next.ClassVisualStates = classStates
	return &next
}
