// Package snapshot builds the immutable, structurally-shared Snapshot
// values the Driver appends to a Timeline. Sharing is concentrated in two
// places, per the data model's design notes: the append-only node
// registry, chunked so that completed chunks are frozen once and reused
// by reference forever after, leaving only the still-filling tail chunk
// to differ between consecutive snapshots, and a per-class view cache
// keyed by (classId, version) so an untouched class's view object is
// reused rather than rebuilt.
package snapshot

import (
	"sort"
	"time"

	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/pkg/model"
)

type cachedClassView struct {
	version int64
	view    *model.EClassView
}

// Snapshotter incrementally builds Snapshot values from a Runtime.
type Snapshotter struct {
	rt        *runtime.Runtime
	presetId  string
	strategy  model.Implementation
	chunkSize int
	now       func() time.Time

	stepIndex int64
	viewCache map[model.EClassId]*cachedClassView

	// frozenChunks holds every node chunk that has filled to chunkSize at
	// least once, each copied out into its own independently allocated
	// []ENode the moment it filled. The runtime's node array is a plain
	// append-only slice, so once it outgrows its capacity Go reallocates
	// it onto a new backing array; re-slicing straight out of
	// rt.Nodes() on every Emit would then hand out a *different* backing
	// array for a chunk that never logically changed, breaking the
	// reference-equality consecutive snapshots are supposed to share
	// (§3/§9, P7). Freezing a chunk the moment it completes keeps every
	// snapshot's reference to it identical for the rest of the run; only
	// the still-filling tail chunk is rebuilt (copy-on-write) per Emit.
	frozenChunks [][]model.ENode
}

// New creates a Snapshotter. now supplies the Timestamp field (injected so
// tests and the I6 determinism check can freeze it); a chunkSize <= 0 is
// replaced by 256.
func New(rt *runtime.Runtime, presetId string, strategy model.Implementation, chunkSize int, now func() time.Time) *Snapshotter {
	if chunkSize <= 0 {
		chunkSize = 256
	}
	return &Snapshotter{
		rt:        rt,
		presetId:  presetId,
		strategy:  strategy,
		chunkSize: chunkSize,
		now:       now,
		viewCache: make(map[model.EClassId]*cachedClassView),
	}
}

// Emit builds and returns the next snapshot, draining the runtime's
// pending diffs into its metadata and advancing the step index. matches,
// activeId and note are caller-supplied context for the step that
// triggered this snapshot (e.g. the read phase attaches the batch's
// matches; a compact/repair step attaches the affected class as
// activeId).
func (s *Snapshotter) Emit(phase model.Phase, activeId model.EClassId, hasActiveId bool, matches []model.Match, invariants map[string]bool, note string) *model.Snapshot {
	snap := &model.Snapshot{
		StepIndex:  s.stepIndex,
		PresetId:   s.presetId,
		Strategy:   s.strategy,
		Phase:      phase,
		Timestamp:  s.now(),
		UnionFind:  s.buildUnionFind(),
		EClasses:   s.buildClassViews(),
		NodeChunks: s.buildNodeChunks(),
		ChunkSize:  s.chunkSize,
		Worklist:   s.rt.WorklistIds(),
		Metadata: model.Metadata{
			Diffs:       s.rt.DrainDiffs(),
			Matches:     matches,
			ActiveId:    activeId,
			HasActiveId: hasActiveId,
			Invariants:  invariants,
			Note:        note,
		},
	}
	s.stepIndex++
	return snap
}

func (s *Snapshotter) buildUnionFind() []model.UnionFindEntry {
	n := s.rt.UnionFindLen()
	out := make([]model.UnionFindEntry, n)
	for i := 0; i < n; i++ {
		id := model.ENodeId(i)
		canon, err := s.rt.Find(id)
		if err != nil {
			continue
		}
		isCanon, err := s.rt.IsCanonical(id)
		if err != nil {
			continue
		}
		out[i] = model.UnionFindEntry{Canonical: canon, IsCanonical: isCanon}
	}
	return out
}

func (s *Snapshotter) buildNodeChunks() [][]model.ENode {
	nodes := s.rt.Nodes()
	total := len(nodes)
	if total == 0 {
		return nil
	}

	// Freeze every chunk that has filled completely since the last call.
	// Each is copied once into its own array, so it stays byte-for-byte
	// and reference-identical across every future Emit even after the
	// runtime's node slice reallocates onto a new backing array.
	completed := total / s.chunkSize
	for len(s.frozenChunks) < completed {
		idx := len(s.frozenChunks)
		start := idx * s.chunkSize
		end := start + s.chunkSize
		frozen := make([]model.ENode, s.chunkSize)
		copy(frozen, nodes[start:end])
		s.frozenChunks = append(s.frozenChunks, frozen)
	}

	chunks := make([][]model.ENode, len(s.frozenChunks), len(s.frozenChunks)+1)
	copy(chunks, s.frozenChunks)

	// The tail chunk is still filling; copy it fresh every call so the
	// snapshot owns its own view regardless of later appends.
	tailStart := completed * s.chunkSize
	if tailStart < total {
		tail := make([]model.ENode, total-tailStart)
		copy(tail, nodes[tailStart:total])
		chunks = append(chunks, tail)
	}
	return chunks
}

func (s *Snapshotter) buildClassViews() []*model.EClassView {
	ids := s.rt.ClassIds()
	out := make([]*model.EClassView, 0, len(ids))
	live := make(map[model.EClassId]bool, len(ids))

	for _, id := range ids {
		live[id] = true
		cls := s.rt.Class(id)
		if cls == nil {
			continue
		}
		if cached, ok := s.viewCache[id]; ok && cached.version == cls.Version {
			out = append(out, cached.view)
			continue
		}

		sortedIds := append([]model.ENodeId(nil), cls.Nodes...)
		sort.Slice(sortedIds, func(i, j int) bool {
			oi, oj := s.rt.Nodes()[sortedIds[i]].Op, s.rt.Nodes()[sortedIds[j]].Op
			if oi != oj {
				return oi < oj
			}
			return sortedIds[i] < sortedIds[j]
		})
		nodes := make([]model.NodeView, 0, len(sortedIds))
		for _, nid := range sortedIds {
			n := s.rt.Nodes()[nid]
			nodes = append(nodes, model.NodeView{Id: nid, Op: n.Op, Args: append([]model.EClassId(nil), n.Args...)})
		}

		parents := make([]model.ParentView, 0, len(cls.Parents))
		for _, p := range cls.Parents {
			parents = append(parents, model.ParentView{ParentId: p.ParentId, Op: p.Node.Op, Args: append([]model.EClassId(nil), p.Node.Args...)})
		}
		sort.Slice(parents, func(i, j int) bool { return parents[i].ParentId < parents[j].ParentId })

		inWorklist, _ := s.rt.IsCanonical(id)
		view := &model.EClassView{
			Id:         id,
			Version:    cls.Version,
			Nodes:      nodes,
			Parents:    parents,
			InWorklist: inWorklist && s.worklistHas(id),
		}
		s.viewCache[id] = &cachedClassView{version: cls.Version, view: view}
		out = append(out, view)
	}

	// Evict cache entries for classes the compactor has since removed.
	for id := range s.viewCache {
		if !live[id] {
			delete(s.viewCache, id)
		}
	}
	return out
}

func (s *Snapshotter) worklistHas(id model.EClassId) bool {
	for _, w := range s.rt.WorklistIds() {
		if w == id {
			return true
		}
	}
	return false
}
