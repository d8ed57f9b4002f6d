package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ipattern "github.com/eqsat/eqsat/internal/pattern"
	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/pkg/model"
)

func buildMulOne(t *testing.T) (*runtime.Runtime, model.EClassId) {
	t.Helper()
	rt := runtime.New(false, false, 0)
	one, err := rt.AddEnode(model.ENode{Op: "1"})
	require.NoError(t, err)
	a, err := rt.AddEnode(model.ENode{Op: "a"})
	require.NoError(t, err)
	_, err = rt.AddEnode(model.ENode{Op: "*", Args: []model.EClassId{a, one}})
	require.NoError(t, err)
	return rt, a
}

func mulOneRule(t *testing.T) model.Rewrite {
	t.Helper()
	lhs, err := ipattern.Parse("*(?x, 1)")
	require.NoError(t, err)
	rhs, err := ipattern.Parse("?x")
	require.NoError(t, err)
	return model.Rewrite{Name: "mul-one", LHS: lhs, RHS: rhs, Enabled: true}
}

func TestMatchAllFindsMulOne(t *testing.T) {
	rt, a := buildMulOne(t)
	rule := mulOneRule(t)

	matches, err := MatchAll(rt, []model.Rewrite{rule})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "mul-one", m.Rule)
	bound, ok := m.Substitution.Lookup("?x")
	require.True(t, ok)
	assert.Equal(t, a, bound)
}

func TestMatchDisabledRuleIsSkipped(t *testing.T) {
	rt, _ := buildMulOne(t)
	rule := mulOneRule(t)
	rule.Enabled = false

	matches, err := MatchAll(rt, []model.Rewrite{rule})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchIsDeduplicated(t *testing.T) {
	rt, _ := buildMulOne(t)
	rule := mulOneRule(t)

	m1, err := MatchAll(rt, []model.Rewrite{rule})
	require.NoError(t, err)
	m2, err := MatchAll(rt, []model.Rewrite{rule})
	require.NoError(t, err)
	assert.Equal(t, len(m1), len(m2))
}

func TestBatchIteratorAccumulatesAcrossBatches(t *testing.T) {
	rt := runtime.New(false, false, 0)
	one, _ := rt.AddEnode(model.ENode{Op: "1"})
	a, _ := rt.AddEnode(model.ENode{Op: "a"})
	b, _ := rt.AddEnode(model.ENode{Op: "b"})
	rt.AddEnode(model.ENode{Op: "*", Args: []model.EClassId{a, one}})
	rt.AddEnode(model.ENode{Op: "*", Args: []model.EClassId{b, one}})

	rule := mulOneRule(t)
	it := NewBatchIterator(rt, []model.Rewrite{rule}, 1)

	var last []model.Match
	for !it.Done() {
		matches, _, err := it.Next()
		require.NoError(t, err)
		last = matches
	}
	assert.Len(t, last, 2)

	full, err := MatchAll(rt, []model.Rewrite{rule})
	require.NoError(t, err)
	assert.Equal(t, len(full), len(last))
}

func TestMatchLiteralRequiresZeroArity(t *testing.T) {
	rt := runtime.New(false, false, 0)
	rt.AddEnode(model.ENode{Op: "a"})

	lhs, _ := ipattern.Parse("a")
	rhs, _ := ipattern.Parse("a")
	rule := model.Rewrite{Name: "noop", LHS: lhs, RHS: rhs, Enabled: true}

	matches, err := MatchAll(rt, []model.Rewrite{rule})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
