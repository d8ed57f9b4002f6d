// Package runtime holds the mutable e-graph state: the e-node registry,
// the hashcons, the class map, the parent index, the worklist, and the
// pending-diff buffer. It is the only component that mutates the graph;
// everything else (Matcher, Applier, Rebuilder, Snapshotter) reads it or
// drives it through the public contract below.
package runtime

import (
	"sort"

	"github.com/eqsat/eqsat/internal/unionfind"
	"github.com/eqsat/eqsat/pkg/collections"
	"github.com/eqsat/eqsat/pkg/model"
)

// ParentEntry is one entry of a class's parent index: the id of the
// parent node and the (possibly stale) node contents as stored when the
// entry was made.
type ParentEntry struct {
	ParentId model.ENodeId
	Node     model.ENode
}

// EClass is the runtime's owned representation of one e-class: its
// member node ids, its parent index (keyed by the canonical-key string
// described in the data model), an opaque analysis payload, and a
// version counter bumped on any mutation that would change its snapshot
// view.
type EClass struct {
	Nodes   []model.ENodeId
	Parents map[string]ParentEntry
	Data    map[string]interface{}
	Version int64
}

func newEClass() *EClass {
	return &EClass{
		Parents: make(map[string]ParentEntry),
		Data:    make(map[string]interface{}),
	}
}

func (c *EClass) touch() {
	c.Version++
}

// Touch bumps the class's version counter, signalling the Snapshotter
// that its cached view is stale. Exported for the Rebuilder's compact
// phase, which mutates classes it reaches via Class/ClassIds rather than
// through a Runtime method.
func (c *EClass) Touch() {
	c.touch()
}

// Runtime is the mutable e-graph.
type Runtime struct {
	uf       *unionfind.UnionFind
	nodes    []model.ENode
	hashcons map[string]model.EClassId
	classes  map[model.EClassId]*EClass
	worklist *collections.Bitset

	pendingDiffs []model.Diff

	// deferred selects the merge-time behavior of the data model's
	// Merge rule (5): in eager mode a subsumed class is deleted from the
	// class map immediately; in deferred mode it is kept as a "ghost"
	// until the next compaction.
	deferred bool
}

// New creates an empty runtime. deferred selects the strategy-coupled
// merge behavior; see the Driver for how it is chosen from Options.
func New(deferred bool, hasSeed bool, seed int64) *Runtime {
	return &Runtime{
		uf:       unionfind.New(hasSeed, seed),
		hashcons: make(map[string]model.EClassId),
		classes:  make(map[model.EClassId]*EClass),
		worklist: collections.NewBitset(64),
		deferred: deferred,
	}
}

// NextId returns the id the next AddEnode would allocate, were the key
// novel.
func (r *Runtime) NextId() model.ENodeId {
	return model.ENodeId(len(r.nodes))
}

// Nodes returns the full append-only node registry, indexed by id. Callers
// (the Snapshotter) must treat it as read-only.
func (r *Runtime) Nodes() []model.ENode {
	return r.nodes
}

// Find returns the canonical representative of id.
func (r *Runtime) Find(id model.ENodeId) (model.EClassId, error) {
	return r.uf.Find(id)
}

// IsCanonical reports whether id is currently its own canonical
// representative.
func (r *Runtime) IsCanonical(id model.ENodeId) (bool, error) {
	return r.uf.IsCanonical(id)
}

// Canonicalize returns a copy of n with every child id replaced by its
// current canonical id.
func (r *Runtime) Canonicalize(n model.ENode) (model.ENode, error) {
	out := n.Clone()
	for i, a := range out.Args {
		c, err := r.uf.Find(a)
		if err != nil {
			return model.ENode{}, err
		}
		out.Args[i] = c
	}
	return out, nil
}

// CanonicalKey canonicalizes n and renders its hashcons key.
func (r *Runtime) CanonicalKey(n model.ENode) (string, error) {
	cn, err := r.Canonicalize(n)
	if err != nil {
		return "", err
	}
	return model.CanonicalKey(cn), nil
}

// classOf returns the EClass owning canonical id c, allocating one if
// this is the first time c has been seen as a class (used right after
// MakeSet, before the class map has an entry for the new singleton).
func (r *Runtime) classOf(c model.EClassId) *EClass {
	cls, ok := r.classes[c]
	if !ok {
		cls = newEClass()
		r.classes[c] = cls
	}
	return cls
}

// AddEnode canonicalizes n's children via Find, forms the hashcons key,
// and returns the existing id if the key is already known. Otherwise it
// allocates a new id, creates a singleton class, inserts the node into
// the hashcons, inserts a parent entry into every child class, and
// records an Add diff.
func (r *Runtime) AddEnode(n model.ENode) (model.ENodeId, error) {
	canon, err := r.Canonicalize(n)
	if err != nil {
		return model.InvalidId, err
	}
	key := model.CanonicalKey(canon)
	if existing, ok := r.hashcons[key]; ok {
		return existing, nil
	}

	id := r.uf.MakeSet()
	r.nodes = append(r.nodes, canon)

	cls := r.classOf(id)
	cls.Nodes = append(cls.Nodes, id)
	cls.touch()
	r.hashcons[key] = id

	for _, childId := range canon.Args {
		childClass := r.classOf(childId)
		pkey := model.ParentKey(id, canon)
		childClass.Parents[pkey] = ParentEntry{ParentId: id, Node: canon}
		childClass.touch()
	}

	r.pendingDiffs = append(r.pendingDiffs, model.Add(id, canon))
	return id, nil
}

// Merge canonicalizes a and b and, if they are not already equal, unions
// them and folds the loser's nodes, parents and data into the winner.
// Returns the winning canonical id. Whether the loser entry survives as a
// non-canonical "ghost" in the class map is governed by the runtime's
// configured strategy (deferred mode keeps it for the next compaction;
// eager mode deletes it immediately) — see mergeWith.
func (r *Runtime) Merge(a, b model.EClassId) (model.EClassId, error) {
	return r.mergeWith(a, b, r.deferred)
}

// MergeEager merges a and b exactly like Merge, except the loser is always
// deleted from the class map immediately regardless of the runtime's
// configured strategy. The Rebuilder's repair phase must use this for its
// inner parent-regrouping merges (§4.5(c)): those merges are documented to
// use eager semantics specifically so they never leave a ghost behind —
// compaction has already run for this rebuild, so nothing would clean one
// up afterward, and a ghost surviving repair would break the "eclasses is
// a list of canonical classes" snapshot contract.
func (r *Runtime) MergeEager(a, b model.EClassId) (model.EClassId, error) {
	return r.mergeWith(a, b, false)
}

func (r *Runtime) mergeWith(a, b model.EClassId, deferred bool) (model.EClassId, error) {
	ca, err := r.uf.Find(a)
	if err != nil {
		return model.InvalidId, err
	}
	cb, err := r.uf.Find(b)
	if err != nil {
		return model.InvalidId, err
	}
	if ca == cb {
		return ca, nil
	}

	winner, loser, err := r.uf.Union(ca, cb)
	if err != nil {
		return model.InvalidId, err
	}

	winnerClass := r.classOf(winner)
	loserClass := r.classes[loser]
	if loserClass == nil {
		loserClass = newEClass()
	}

	winnerClass.Nodes = append(winnerClass.Nodes, loserClass.Nodes...)

	for _, p := range loserClass.Parents {
		winnerClass.Parents[model.ParentKey(p.ParentId, p.Node)] = p

		// The loser's parent classes have a child whose canonical id
		// just changed, so their canonical keys are stale; bump their
		// version so the Snapshotter rebuilds their view.
		if ownerId, ferr := r.uf.Find(p.ParentId); ferr == nil {
			if owner, ok := r.classes[ownerId]; ok {
				owner.touch()
			}
		}
	}
	for k, v := range loserClass.Data {
		winnerClass.Data[k] = v // shallow overwrite on key conflict
	}
	winnerClass.touch()

	for _, nodeId := range loserClass.Nodes {
		node := r.nodes[nodeId]
		canon, cerr := r.Canonicalize(node)
		if cerr == nil {
			r.hashcons[model.CanonicalKey(canon)] = winner
		}
	}

	if !deferred {
		delete(r.classes, loser)
	}

	r.worklist.Set(int(winner))
	r.pendingDiffs = append(r.pendingDiffs, model.Merged(winner, loser))

	return winner, nil
}

// GetParents returns every {parentId, node} entry of the class owning id,
// sorted by parent id for deterministic iteration.
func (r *Runtime) GetParents(id model.ENodeId) ([]ParentEntry, error) {
	c, err := r.uf.Find(id)
	if err != nil {
		return nil, err
	}
	cls, ok := r.classes[c]
	if !ok {
		return nil, nil
	}
	out := make([]ParentEntry, 0, len(cls.Parents))
	for _, p := range cls.Parents {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParentId < out[j].ParentId })
	return out, nil
}

// Class returns the runtime's owned EClass for canonical id c, or nil if
// c does not currently name a live class (e.g. it was compacted away).
func (r *Runtime) Class(c model.EClassId) *EClass {
	return r.classes[c]
}

// ClassIds returns every id currently in the class map (including
// non-canonical "ghost" classes kept under the deferred strategy),
// sorted ascending for deterministic iteration.
func (r *Runtime) ClassIds() []model.EClassId {
	out := make([]model.EClassId, 0, len(r.classes))
	for id := range r.classes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DeleteClass removes id from the class map (used by the Rebuilder's
// compact phase once a non-canonical class's contents have been folded
// into its canonical survivor).
func (r *Runtime) DeleteClass(id model.EClassId) {
	delete(r.classes, id)
}

// SetHashcons overwrites the hashcons entry for key (used by the
// Rebuilder's repair phase).
func (r *Runtime) SetHashcons(key string, id model.EClassId) {
	r.hashcons[key] = id
}

// Hashcons returns the live class id for key, if any.
func (r *Runtime) Hashcons(key string) (model.EClassId, bool) {
	id, ok := r.hashcons[key]
	return id, ok
}

// WorklistAdd adds id to the worklist.
func (r *Runtime) WorklistAdd(id model.EClassId) {
	r.worklist.Set(int(id))
}

// WorklistRemove removes id from the worklist.
func (r *Runtime) WorklistRemove(id model.EClassId) {
	r.worklist.Clear(int(id))
	if cls := r.classes[id]; cls != nil {
		cls.touch()
	}
}

// WorklistIds returns the worklist's current members, sorted ascending.
func (r *Runtime) WorklistIds() []model.EClassId {
	ids := r.worklist.ToSlice()
	out := make([]model.EClassId, len(ids))
	for i, id := range ids {
		out[i] = model.EClassId(id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WorklistEmpty reports whether the worklist has no members.
func (r *Runtime) WorklistEmpty() bool {
	return r.worklist.Count() == 0
}

// WorklistPop removes and returns the smallest member of the worklist,
// and whether one existed.
func (r *Runtime) WorklistPop() (model.EClassId, bool) {
	found := false
	var result model.EClassId
	r.worklist.Iterate(func(i int) bool {
		result = model.EClassId(i)
		found = true
		return false
	})
	if found {
		r.worklist.Clear(int(result))
		if cls := r.classes[result]; cls != nil {
			cls.touch()
		}
	}
	return result, found
}

// RecordDiff appends d to the pending-diff buffer. Used by the Applier to
// record a Rewrite diff alongside the Merge diff Merge already recorded.
func (r *Runtime) RecordDiff(d model.Diff) {
	r.pendingDiffs = append(r.pendingDiffs, d)
}

// DrainDiffs returns the pending diffs accumulated since the last drain
// and clears the buffer. Ownership: Runtime writes, Snapshotter moves
// out.
func (r *Runtime) DrainDiffs() []model.Diff {
	out := r.pendingDiffs
	r.pendingDiffs = nil
	return out
}

// UnionFindLen returns the number of allocated ids, for building a
// snapshot's per-id union-find view.
func (r *Runtime) UnionFindLen() int {
	return r.uf.Len()
}

// CheckInvariants verifies I3 (hashcons agreement) and I4 (parent
// closure) and returns the per-key result, used when Options.DebugInvariants
// is set. A false entry signals a bug and should surface as
// InvariantViolation to the caller.
func (r *Runtime) CheckInvariants() (map[string]bool, error) {
	result := map[string]bool{"I3": true, "I4": true}

	for _, cid := range r.ClassIds() {
		canonical, err := r.uf.Find(cid)
		if err != nil {
			return nil, err
		}
		if canonical != cid {
			continue // non-canonical ghost class, not subject to I3/I4
		}
		cls := r.classes[cid]
		for _, nodeId := range cls.Nodes {
			node := r.nodes[nodeId]
			canon, err := r.Canonicalize(node)
			if err != nil {
				return nil, err
			}
			key := model.CanonicalKey(canon)
			owner, ok := r.hashcons[key]
			if !ok || owner != cid {
				result["I3"] = false
			}
			for _, argId := range canon.Args {
				argClass := r.classes[argId]
				if argClass == nil {
					result["I4"] = false
					continue
				}
				pkey := model.ParentKey(nodeId, canon)
				if _, ok := argClass.Parents[pkey]; !ok {
					result["I4"] = false
				}
			}
		}
	}
	return result, nil
}
