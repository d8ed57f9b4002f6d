package unionfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/eqsat/eqsat/pkg/errors"
	"github.com/eqsat/eqsat/pkg/model"
)

func TestMakeSetMonotonic(t *testing.T) {
	uf := New(false, 0)
	a := uf.MakeSet()
	b := uf.MakeSet()
	c := uf.MakeSet()
	assert.Equal(t, model.ENodeId(0), a)
	assert.Equal(t, model.ENodeId(1), b)
	assert.Equal(t, model.ENodeId(2), c)
}

func TestFindSingleton(t *testing.T) {
	uf := New(false, 0)
	a := uf.MakeSet()
	root, err := uf.Find(a)
	require.NoError(t, err)
	assert.Equal(t, a, root)
}

func TestFindUnknownId(t *testing.T) {
	uf := New(false, 0)
	uf.MakeSet()
	_, err := uf.Find(model.ENodeId(5))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownId, apperrors.GetErrorCode(err))
}

func TestUnionSmallerIdWins(t *testing.T) {
	uf := New(false, 0)
	a := uf.MakeSet() // 0
	b := uf.MakeSet() // 1
	winner, loser, err := uf.Union(b, a)
	require.NoError(t, err)
	assert.Equal(t, a, winner)
	assert.Equal(t, b, loser)

	ra, _ := uf.Find(a)
	rb, _ := uf.Find(b)
	assert.Equal(t, ra, rb)
	assert.Equal(t, a, ra)
}

func TestUnionAlreadyEqual(t *testing.T) {
	uf := New(false, 0)
	a := uf.MakeSet()
	b := uf.MakeSet()
	uf.Union(a, b)
	winner, loser, err := uf.Union(a, b)
	require.NoError(t, err)
	assert.Equal(t, winner, loser)
}

func TestPathCompression(t *testing.T) {
	uf := New(false, 0)
	ids := make([]model.ENodeId, 5)
	for i := range ids {
		ids[i] = uf.MakeSet()
	}
	// Chain unions: 4 into 3, 3 into 2, 2 into 1, 1 into 0 (smaller wins
	// each time, so 0 ends up the root of everything).
	uf.Union(ids[3], ids[4])
	uf.Union(ids[2], ids[3])
	uf.Union(ids[1], ids[2])
	uf.Union(ids[0], ids[1])

	root, err := uf.Find(ids[4])
	require.NoError(t, err)
	assert.Equal(t, ids[0], root)

	for _, id := range ids {
		r, err := uf.Find(id)
		require.NoError(t, err)
		assert.Equal(t, ids[0], r)
	}
}

func TestSeededTieBreakDeterministic(t *testing.T) {
	uf1 := New(true, 42)
	uf2 := New(true, 42)

	for i := 0; i < 10; i++ {
		uf1.MakeSet()
		uf2.MakeSet()
	}
	w1, l1, err := uf1.Union(model.ENodeId(2), model.ENodeId(7))
	require.NoError(t, err)
	w2, l2, err := uf2.Union(model.ENodeId(2), model.ENodeId(7))
	require.NoError(t, err)

	assert.Equal(t, w1, w2)
	assert.Equal(t, l1, l2)
}

func TestIsCanonical(t *testing.T) {
	uf := New(false, 0)
	a := uf.MakeSet()
	b := uf.MakeSet()
	uf.Union(a, b)

	isA, _ := uf.IsCanonical(a)
	isB, _ := uf.IsCanonical(b)
	assert.True(t, isA)
	assert.False(t, isB)
}
