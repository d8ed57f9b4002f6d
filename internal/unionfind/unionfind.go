// Package unionfind implements the disjoint-set structure backing the
// e-graph's canonical-id relation: monotonically allocated ids, path
// compression on find, and a deterministic (or seeded) tie-break on
// union.
package unionfind

import (
	"github.com/eqsat/eqsat/internal/rng"
	apperrors "github.com/eqsat/eqsat/pkg/errors"
	"github.com/eqsat/eqsat/pkg/model"
)

// UnionFind is an array indexed by id, storing each id's parent id. The
// root of an id is its canonical representative.
type UnionFind struct {
	parent []model.ENodeId
	rng    *rng.Xorshift64
}

// New creates an empty UnionFind. If seed is supplied (hasSeed), unions
// use a coin-flip tie-break instead of smaller-id-wins.
func New(hasSeed bool, seed int64) *UnionFind {
	uf := &UnionFind{}
	if hasSeed {
		uf.rng = rng.New(seed)
	}
	return uf
}

// NextId returns the id that MakeSet would allocate next.
func (uf *UnionFind) NextId() model.ENodeId {
	return model.ENodeId(len(uf.parent))
}

// MakeSet allocates a new singleton set and returns its id. Ids are
// assigned in strictly increasing order (I1) and are never recycled.
func (uf *UnionFind) MakeSet() model.ENodeId {
	id := model.ENodeId(len(uf.parent))
	uf.parent = append(uf.parent, id)
	return id
}

// Find returns the canonical representative of id, compressing the path
// from id to its root. Fails with UnknownId if id was never allocated.
func (uf *UnionFind) Find(id model.ENodeId) (model.ENodeId, error) {
	if id < 0 || int(id) >= len(uf.parent) {
		return model.InvalidId, apperrors.UnknownIdErr(id)
	}
	root := id
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	// Path compression: re-point every visited id directly at root.
	for uf.parent[id] != root {
		next := uf.parent[id]
		uf.parent[id] = root
		id = next
	}
	return root, nil
}

// Union merges the sets containing a and b. Deterministic mode (U1):
// winner = min(find(a), find(b)). Seeded mode: the survivor is chosen by
// a coin flip over {find(a), find(b)}, and the RNG is advanced by exactly
// one step. Returns the winning (surviving) canonical id, and the losing
// id that was subsumed — identical to winner if a and b were already in
// the same set.
func (uf *UnionFind) Union(a, b model.ENodeId) (winner, loser model.ENodeId, err error) {
	ra, err := uf.Find(a)
	if err != nil {
		return model.InvalidId, model.InvalidId, err
	}
	rb, err := uf.Find(b)
	if err != nil {
		return model.InvalidId, model.InvalidId, err
	}
	if ra == rb {
		return ra, ra, nil
	}

	winner, loser = ra, rb
	if uf.rng != nil {
		if uf.rng.CoinFlip() {
			winner, loser = rb, ra
		}
	} else if rb < ra {
		winner, loser = rb, ra
	}

	uf.parent[loser] = winner
	return winner, loser, nil
}

// IsCanonical reports whether id is its own root, without path
// compression side effects beyond the normal Find.
func (uf *UnionFind) IsCanonical(id model.ENodeId) (bool, error) {
	root, err := uf.Find(id)
	if err != nil {
		return false, err
	}
	return root == id, nil
}

// Len returns the number of allocated ids.
func (uf *UnionFind) Len() int {
	return len(uf.parent)
}
