package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPattern_IsConcrete(t *testing.T) {
	assert.True(t, Literal("a").IsConcrete())
	assert.False(t, Var("?x").IsConcrete())
	assert.True(t, App("f", Literal("a"), Literal("b")).IsConcrete())
	assert.False(t, App("f", Literal("a"), Var("?x")).IsConcrete())
}

func TestPattern_Variables(t *testing.T) {
	p := App("f", Var("?x"), App("g", Var("?y"), Var("?x")))
	assert.Equal(t, []string{"?x", "?y"}, p.Variables(nil))
}

func TestPattern_Pin(t *testing.T) {
	p := Var("?x").Pin(EClassId(7))
	assert.True(t, p.HasPin)
	assert.Equal(t, EClassId(7), p.Pinned)
}

func TestSubstitution_WithAndLookup(t *testing.T) {
	var sub Substitution
	sub, ok := sub.With("?x", EClassId(1))
	assert.True(t, ok)

	sub, ok = sub.With("?y", EClassId(2))
	assert.True(t, ok)

	_, ok = sub.With("?x", EClassId(2))
	assert.False(t, ok, "rebinding ?x to a different class must be rejected")

	id, found := sub.Lookup("?y")
	assert.True(t, found)
	assert.Equal(t, EClassId(2), id)

	_, found = sub.Lookup("?z")
	assert.False(t, found)
}

func TestSubstitution_Sorted(t *testing.T) {
	sub := Substitution{{Var: "?b", Id: 2}, {Var: "?a", Id: 1}}
	sorted := sub.Sorted()
	assert.Equal(t, "?a", sorted[0].Var)
	assert.Equal(t, "?b", sorted[1].Var)
	// Sorted must not mutate the receiver.
	assert.Equal(t, "?b", sub[0].Var)
}

func TestMatch_KeyDedup(t *testing.T) {
	m1 := Match{Rule: "comm", EClass: 3, Substitution: Substitution{{Var: "?b", Id: 2}, {Var: "?a", Id: 1}}}
	m2 := Match{Rule: "comm", EClass: 3, Substitution: Substitution{{Var: "?a", Id: 1}, {Var: "?b", Id: 2}}}
	assert.Equal(t, m1.Key(), m2.Key(), "substitution order must not affect the dedup key")

	m3 := Match{Rule: "comm", EClass: 4, Substitution: m1.Substitution}
	assert.NotEqual(t, m1.Key(), m3.Key())
}

func TestCanonicalKeyAndParentKey(t *testing.T) {
	n := ENode{Op: "f", Args: []EClassId{1, 2}}
	assert.Equal(t, "f(1,2)", CanonicalKey(n))
	assert.Equal(t, "5:f(1,2)", ParentKey(ENodeId(5), n))

	leaf := ENode{Op: "a"}
	assert.Equal(t, "a()", CanonicalKey(leaf))
}

func TestENode_Clone(t *testing.T) {
	n := ENode{Op: "f", Args: []EClassId{1, 2}}
	c := n.Clone()
	c.Args[0] = 99
	assert.Equal(t, EClassId(1), n.Args[0], "Clone must not alias the original's Args")
}

func TestResolveProfile(t *testing.T) {
	opts, ok := ResolveProfile(ProfileFast)
	assert.True(t, ok)
	assert.Equal(t, 20, opts.IterationCap)

	_, ok = ResolveProfile(Profile("nonexistent"))
	assert.False(t, ok)
}

func TestApplyProfile_DoesNotOverrideExplicitOptions(t *testing.T) {
	opts := Options{IterationCap: 42}
	opts = ApplyProfile(opts, ProfileThorough)
	assert.Equal(t, 42, opts.IterationCap, "an explicitly set field must survive profile application")
	assert.Equal(t, 1024, opts.ReadBatchSize)
}
