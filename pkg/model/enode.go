package model

import "strings"

// ENode is an operator symbol plus an ordered list of child ids. Two
// e-nodes are structurally equal iff their operator strings are equal and
// their canonical child id sequences are equal.
type ENode struct {
	Op   string
	Args []EClassId
}

// Arity returns the number of children.
func (n ENode) Arity() int {
	return len(n.Args)
}

// Clone returns a deep copy, safe to mutate independently of n.
func (n ENode) Clone() ENode {
	args := make([]EClassId, len(n.Args))
	copy(args, n.Args)
	return ENode{Op: n.Op, Args: args}
}

// CanonicalKey renders the node's hashcons/parent-index key,
// "op(a,b,c,...)", assuming Args are already canonical.
func CanonicalKey(n ENode) string {
	var b strings.Builder
	b.WriteString(n.Op)
	b.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

// ParentKey renders the parent-index key "${parentId}:${op}(args...)" used
// by invariant I4.
func ParentKey(parentId ENodeId, n ENode) string {
	return parentId.String() + ":" + CanonicalKey(n)
}
