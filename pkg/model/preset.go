package model

// Implementation names the saturation strategy.
type Implementation string

const (
	ImplementationNaive    Implementation = "naive"
	ImplementationDeferred Implementation = "deferred"
)

// IsEager reports whether impl rebuilds after every merge ("naive" in the
// preset/options surface) rather than once per outer iteration.
func IsEager(impl Implementation) bool {
	return impl == ImplementationNaive
}

// Rewrite is one named rule: lhs is matched, rhs is instantiated and
// merged with the matched class when the rule fires.
type Rewrite struct {
	Name     string
	LHS      Pattern
	RHS      Pattern
	Enabled  bool
	Priority int
}

// ImplementationHints are optional preset-authored defaults, overridable
// by explicit Options fields. Profile, if set, names a tri-level
// implementation profile (see ResolveProfile) supplying iterationCap/
// readBatchSize/maxNodes defaults; DefaultStrategy and IterationCap, when
// set directly, take precedence over the profile's values.
type ImplementationHints struct {
	DefaultStrategy Implementation
	IterationCap    int
	Profile         Profile
}

// Preset is a record with a concrete root term and a rewrite set: id,
// label, free-text description, a fully concrete root pattern (no
// variables), and the rewrites list.
type Preset struct {
	ID                  string
	Label               string
	Description         string
	Root                Pattern
	Rewrites            []Rewrite
	ImplementationHints *ImplementationHints
}

// Options configures a run.
type Options struct {
	Implementation  Implementation
	IterationCap    int
	RecordDiffs     bool
	DebugInvariants bool
	MaxNodes        int  // 0 means unbounded
	HasSeed         bool
	Seed            int64
	ReadBatchSize   int // 0 means unbatched (single emission)
}

// DefaultOptions returns the documented defaults: implementation must
// still be set explicitly (it is required), iterationCap 100,
// recordDiffs true.
func DefaultOptions() Options {
	return Options{
		IterationCap: 100,
		RecordDiffs:  true,
	}
}
