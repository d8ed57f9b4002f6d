package applier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ipattern "github.com/eqsat/eqsat/internal/pattern"
	"github.com/eqsat/eqsat/internal/runtime"
	"github.com/eqsat/eqsat/pkg/model"
)

func TestApplyMulOneMergesIntoTarget(t *testing.T) {
	rt := runtime.New(false, false, 0)
	one, _ := rt.AddEnode(model.ENode{Op: "1"})
	a, _ := rt.AddEnode(model.ENode{Op: "a"})
	root, _ := rt.AddEnode(model.ENode{Op: "*", Args: []model.EClassId{a, one}})

	lhs, _ := ipattern.Parse("*(?x, 1)")
	rhs, _ := ipattern.Parse("?x")
	rule := model.Rewrite{Name: "mul-one", LHS: lhs, RHS: rhs, Enabled: true}

	sub := model.Substitution{{Var: "?x", Id: a}}
	m := model.Match{Rule: "mul-one", EClass: root, Substitution: sub}

	diff, err := Apply(rt, rule, m)
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, model.DiffRewrite, diff.Kind)

	ca, _ := rt.Find(a)
	croot, _ := rt.Find(root)
	assert.Equal(t, ca, croot)
}

func TestApplyNoOpWhenAlreadyEqual(t *testing.T) {
	rt := runtime.New(false, false, 0)
	a, _ := rt.AddEnode(model.ENode{Op: "a"})

	lhs, _ := ipattern.Parse("?x")
	rhs, _ := ipattern.Parse("?x")
	rule := model.Rewrite{Name: "identity", LHS: lhs, RHS: rhs, Enabled: true}

	sub := model.Substitution{{Var: "?x", Id: a}}
	m := model.Match{Rule: "identity", EClass: a, Substitution: sub}

	diff, err := Apply(rt, rule, m)
	require.NoError(t, err)
	assert.Nil(t, diff)
}

func TestApplyCycleRuleHashconsesImmediately(t *testing.T) {
	rt := runtime.New(false, false, 0)
	a, _ := rt.AddEnode(model.ENode{Op: "a"})

	lhs, _ := ipattern.Parse("?x")
	rhs, _ := ipattern.Parse("f(?x)")
	rule := model.Rewrite{Name: "cycle", LHS: lhs, RHS: rhs, Enabled: true}

	sub := model.Substitution{{Var: "?x", Id: a}}
	m := model.Match{Rule: "cycle", EClass: a, Substitution: sub}

	_, err := Apply(rt, rule, m)
	require.NoError(t, err)

	ca, _ := rt.Find(a)
	cls := rt.Class(ca)
	require.NotNil(t, cls)
	assert.Len(t, cls.Nodes, 2) // a and f(a) share the class
}
