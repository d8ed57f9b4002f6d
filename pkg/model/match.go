package model

import "sort"

// Binding is one variable -> class-id entry of a substitution.
type Binding struct {
	Var string
	Id  EClassId
}

// Substitution is a list of bindings produced by matching a pattern's
// variables against concrete classes, kept in the order the variables were
// bound; Sorted returns the by-name ordering.
type Substitution []Binding

// Lookup returns the bound class id for name and whether it was found.
func (s Substitution) Lookup(name string) (EClassId, bool) {
	for _, b := range s {
		if b.Var == name {
			return b.Id, true
		}
	}
	return InvalidId, false
}

// With returns a copy of s with (name, id) appended, or s unchanged if the
// existing binding for name already equals id. Returns ok=false if name is
// already bound to a different id (a binding conflict).
func (s Substitution) With(name string, id EClassId) (Substitution, bool) {
	if existing, found := s.Lookup(name); found {
		return s, existing == id
	}
	out := make(Substitution, len(s), len(s)+1)
	copy(out, s)
	out = append(out, Binding{Var: name, Id: id})
	return out, true
}

// Sorted returns a copy of s ordered by variable name, the canonical form
// used for dedup keys.
func (s Substitution) Sorted() Substitution {
	out := make(Substitution, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

// Match is one discovered rewrite opportunity: the rule, the e-class it
// was discovered against, and the variable substitution. MatchedNodes
// records every node id involved in the match, for visual classification.
type Match struct {
	Rule         string
	EClass       EClassId
	Substitution Substitution
	MatchedNodes []ENodeId
}

// Key returns the dedup key (ruleName, eclassId, sorted substitution).
func (m Match) Key() string {
	sorted := m.Substitution.Sorted()
	key := m.Rule + "|" + m.EClass.String()
	for _, b := range sorted {
		key += "|" + b.Var + "=" + b.Id.String()
	}
	return key
}
