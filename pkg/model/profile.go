package model

// Profile names one of the three fixed implementation profiles a preset or
// run request can select instead of spelling out Options by hand. It
// mirrors the tri-level shape of the teacher's own analysis profile: a
// short, stable name standing in for a bundle of defaults.
type Profile string

const (
	ProfileFast     Profile = "fast"
	ProfileBalanced Profile = "balanced"
	ProfileThorough Profile = "thorough"
)

// profileDefaults holds the IterationCap/ReadBatchSize/MaxNodes a profile
// contributes. Zero fields are left for ImplementationHints or an explicit
// Options value to fill in.
type profileDefaults struct {
	iterationCap  int
	readBatchSize int
	maxNodes      int
}

var profileTable = map[Profile]profileDefaults{
	ProfileFast:     {iterationCap: 20, readBatchSize: 64, maxNodes: 20000},
	ProfileBalanced: {iterationCap: 100, readBatchSize: 256, maxNodes: 200000},
	ProfileThorough: {iterationCap: 500, readBatchSize: 1024, maxNodes: 0},
}

// ResolveProfile reports whether name is one of the three known profiles
// and, if so, the Options it expands to (Implementation left unset; the
// caller or ImplementationHints.DefaultStrategy fills that in).
func ResolveProfile(name Profile) (Options, bool) {
	d, ok := profileTable[name]
	if !ok {
		return Options{}, false
	}
	return Options{
		IterationCap:  d.iterationCap,
		ReadBatchSize: d.readBatchSize,
		MaxNodes:      d.maxNodes,
		RecordDiffs:   true,
	}, true
}

// ApplyProfile fills the zero-valued fields of opts from the named
// profile's defaults without overriding anything the caller already set.
func ApplyProfile(opts Options, name Profile) Options {
	d, ok := profileTable[name]
	if !ok {
		return opts
	}
	if opts.IterationCap <= 0 {
		opts.IterationCap = d.iterationCap
	}
	if opts.ReadBatchSize <= 0 {
		opts.ReadBatchSize = d.readBatchSize
	}
	if opts.MaxNodes == 0 {
		opts.MaxNodes = d.maxNodes
	}
	return opts
}
