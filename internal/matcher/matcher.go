// Package matcher implements the backtracking pattern matcher: for every
// enabled rule, scan the canonical classes and attempt to match the
// rule's LHS against any node of the class, producing deduplicated
// (rule, eclass, substitution) tuples. It is exposed as a restartable
// batched iterator so the Driver can control read-phase snapshot
// granularity without changing match semantics.
package matcher

import (
	"sort"

	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/pkg/model"
)

type result struct {
	sub   model.Substitution
	nodes []model.ENodeId
}

// matchPattern recursively matches pat against classId, threading the
// accumulated substitution and matched-node set through argument
// positions so distinct positions combine by cartesian product (a
// variable-binding conflict in any branch discards that branch).
func matchPattern(rt *runtime.Runtime, pat model.Pattern, classId model.EClassId, sub model.Substitution, nodes []model.ENodeId) ([]result, error) {
	if pat.HasPin {
		canonPin, err := rt.Find(pat.Pinned)
		if err != nil {
			return nil, err
		}
		if canonPin != classId {
			return nil, nil
		}
		return []result{{sub: sub, nodes: nodes}}, nil
	}

	switch pat.Kind {
	case model.PatternVar:
		newSub, ok := sub.With(pat.Name, classId)
		if !ok {
			return nil, nil
		}
		return []result{{sub: newSub, nodes: nodes}}, nil

	case model.PatternLiteral:
		cls := rt.Class(classId)
		if cls == nil {
			return nil, nil
		}
		var out []result
		for _, nodeId := range cls.Nodes {
			n := rt.Nodes()[nodeId]
			if n.Op == pat.Name && len(n.Args) == 0 {
				out = append(out, result{sub: sub, nodes: append(append([]model.ENodeId{}, nodes...), nodeId)})
			}
		}
		return out, nil

	case model.PatternApp:
		cls := rt.Class(classId)
		if cls == nil {
			return nil, nil
		}
		var out []result
		for _, nodeId := range cls.Nodes {
			n := rt.Nodes()[nodeId]
			if n.Op != pat.Name || len(n.Args) != len(pat.Args) {
				continue
			}
			branchNodes := append(append([]model.ENodeId{}, nodes...), nodeId)
			branch := []result{{sub: sub, nodes: branchNodes}}
			for i, argPat := range pat.Args {
				argClass, err := rt.Find(n.Args[i])
				if err != nil {
					return nil, err
				}
				var next []result
				for _, b := range branch {
					rs, err := matchPattern(rt, argPat, argClass, b.sub, b.nodes)
					if err != nil {
						return nil, err
					}
					next = append(next, rs...)
				}
				branch = next
				if len(branch) == 0 {
					break
				}
			}
			out = append(out, branch...)
		}
		return out, nil

	default:
		return nil, nil
	}
}

// BatchIterator restartably scans the canonical class map, yielding the
// full accumulated match list after every batchSize classes. batchSize
// <= 0 means unbatched: a single Next() call scans every class.
type BatchIterator struct {
	rt        *runtime.Runtime
	rules     []model.Rewrite
	classIds  []model.EClassId
	batchSize int
	pos       int
	seen      map[string]bool
	acc       []model.Match
}

// NewBatchIterator snapshots the set of enabled rules (sorted by name)
// and the current canonical class ids (sorted ascending) at construction
// time; the scan itself does not observe classes created after this
// point, matching "iterate only over canonical ids" read-phase semantics.
func NewBatchIterator(rt *runtime.Runtime, rules []model.Rewrite, batchSize int) *BatchIterator {
	var enabled []model.Rewrite
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Name < enabled[j].Name })

	var classIds []model.EClassId
	for _, id := range rt.ClassIds() {
		canon, err := rt.IsCanonical(id)
		if err == nil && canon {
			classIds = append(classIds, id)
		}
	}

	return &BatchIterator{
		rt:        rt,
		rules:     enabled,
		classIds:  classIds,
		batchSize: batchSize,
		seen:      make(map[string]bool),
	}
}

// Done reports whether the scan has consumed every class.
func (it *BatchIterator) Done() bool {
	return it.pos >= len(it.classIds)
}

// Next advances the scan by up to batchSize classes (or to completion, if
// batchSize <= 0) and returns the full accumulated, deduplicated,
// stably-ordered match list along with whether the scan is now complete.
func (it *BatchIterator) Next() ([]model.Match, bool, error) {
	limit := it.batchSize
	if limit <= 0 {
		limit = len(it.classIds)
		if limit == 0 {
			limit = 1
		}
	}

	processed := 0
	for it.pos < len(it.classIds) && processed < limit {
		classId := it.classIds[it.pos]
		for _, rule := range it.rules {
			results, err := matchPattern(it.rt, rule.LHS, classId, nil, nil)
			if err != nil {
				return nil, false, err
			}
			for _, res := range results {
				m := model.Match{
					Rule:         rule.Name,
					EClass:       classId,
					Substitution: res.sub.Sorted(),
					MatchedNodes: res.nodes,
				}
				key := m.Key()
				if it.seen[key] {
					continue
				}
				it.seen[key] = true
				it.acc = append(it.acc, m)
			}
		}
		it.pos++
		processed++
	}

	sort.Slice(it.acc, func(i, j int) bool {
		a, b := it.acc[i], it.acc[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.EClass != b.EClass {
			return a.EClass < b.EClass
		}
		return firstBindingLess(a.Substitution, b.Substitution)
	})

	out := make([]model.Match, len(it.acc))
	copy(out, it.acc)
	return out, it.Done(), nil
}

func firstBindingLess(a, b model.Substitution) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Var != b[i].Var {
			return a[i].Var < b[i].Var
		}
		if a[i].Id != b[i].Id {
			return a[i].Id < b[i].Id
		}
	}
	return len(a) < len(b)
}

// MatchAll runs the scan to completion in one pass, equivalent to a batch
// size of +infinity.
func MatchAll(rt *runtime.Runtime, rules []model.Rewrite) ([]model.Match, error) {
	it := NewBatchIterator(rt, rules, 0)
	matches, _, err := it.Next()
	return matches, err
}
