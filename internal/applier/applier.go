// Package applier instantiates a match's RHS pattern into the runtime and
// merges the result with the match's target class, recording the
// resulting diffs.
package applier

import (
	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/pkg/model"
)

// instantiate recursively adds the nodes named by pat into rt, substituting
// variables from sub, and returns the id of the resulting root node.
// Pinned leaves resolve directly to their canonical class without adding a
// node.
func instantiate(rt *runtime.Runtime, pat model.Pattern, sub model.Substitution) (model.ENodeId, error) {
	if pat.HasPin {
		return rt.Find(pat.Pinned)
	}
	switch pat.Kind {
	case model.PatternVar:
		id, _ := sub.Lookup(pat.Name)
		return rt.Find(id)
	case model.PatternLiteral:
		return rt.AddEnode(model.ENode{Op: pat.Name})
	case model.PatternApp:
		args := make([]model.EClassId, len(pat.Args))
		for i, a := range pat.Args {
			id, err := instantiate(rt, a, sub)
			if err != nil {
				return model.InvalidId, err
			}
			args[i] = id
		}
		return rt.AddEnode(model.ENode{Op: pat.Name, Args: args})
	default:
		return model.InvalidId, nil
	}
}

// InstantiateRoot adds the nodes named by a fully concrete pattern (no
// variables) into rt, returning the id of the resulting root node. Used
// by the engine to build a preset's root term.
func InstantiateRoot(rt *runtime.Runtime, pat model.Pattern) (model.ENodeId, error) {
	return instantiate(rt, pat, nil)
}

// Apply instantiates rule.RHS under m's substitution and merges the
// result with m's target class. It returns the Rewrite diff recorded in
// addition to the Merge diff Runtime.Merge already records, or nil if the
// target was already equal to the instantiated root (a no-op merge,
// which records no diff at all).
func Apply(rt *runtime.Runtime, rule model.Rewrite, m model.Match) (*model.Diff, error) {
	createdId, err := instantiate(rt, rule.RHS, m.Substitution)
	if err != nil {
		return nil, err
	}

	rootClass, err := rt.Find(createdId)
	if err != nil {
		return nil, err
	}
	targetClass, err := rt.Find(m.EClass)
	if err != nil {
		return nil, err
	}
	if rootClass == targetClass {
		return nil, nil
	}

	mergedInto, err := rt.Merge(rootClass, targetClass)
	if err != nil {
		return nil, err
	}

	diff := model.Rewritten(rule.Name, targetClass, createdId, mergedInto)
	rt.RecordDiff(diff)
	return &diff, nil
}
