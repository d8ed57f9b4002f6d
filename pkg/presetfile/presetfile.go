// Package presetfile loads a model.Preset and model.Options from a YAML
// document, the on-disk format the CLI's run/step commands accept.
package presetfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eqsat/eqsat/pkg/model"
)

// patternDoc is the YAML shape of a model.Pattern: exactly one of Var,
// Lit or App is set.
type patternDoc struct {
	Var  string        `yaml:"var,omitempty"`
	Lit  string        `yaml:"lit,omitempty"`
	App  string        `yaml:"app,omitempty"`
	Args []patternDoc  `yaml:"args,omitempty"`
	Pin  *model.EClassId `yaml:"pin,omitempty"`
}

func (d patternDoc) toPattern() (model.Pattern, error) {
	var p model.Pattern
	switch {
	case d.Var != "":
		p = model.Var(d.Var)
	case d.App != "":
		args := make([]model.Pattern, len(d.Args))
		for i, a := range d.Args {
			ap, err := a.toPattern()
			if err != nil {
				return model.Pattern{}, err
			}
			args[i] = ap
		}
		p = model.App(d.App, args...)
	case d.Lit != "":
		p = model.Literal(d.Lit)
	default:
		return model.Pattern{}, fmt.Errorf("pattern node must set one of var/lit/app")
	}
	if d.Pin != nil {
		p = p.Pin(*d.Pin)
	}
	return p, nil
}

type rewriteDoc struct {
	Name     string      `yaml:"name"`
	LHS      patternDoc  `yaml:"lhs"`
	RHS      patternDoc  `yaml:"rhs"`
	Enabled  *bool       `yaml:"enabled,omitempty"`
	Priority int         `yaml:"priority,omitempty"`
}

type implementationHintsDoc struct {
	DefaultStrategy model.Implementation `yaml:"defaultStrategy,omitempty"`
	IterationCap    int                  `yaml:"iterationCap,omitempty"`
	Profile         model.Profile        `yaml:"profile,omitempty"`
}

type optionsDoc struct {
	Implementation  model.Implementation `yaml:"implementation,omitempty"`
	IterationCap    int                  `yaml:"iterationCap,omitempty"`
	RecordDiffs     bool                 `yaml:"recordDiffs,omitempty"`
	DebugInvariants bool                 `yaml:"debugInvariants,omitempty"`
	MaxNodes        int                  `yaml:"maxNodes,omitempty"`
	HasSeed         bool                 `yaml:"hasSeed,omitempty"`
	Seed            int64                `yaml:"seed,omitempty"`
	ReadBatchSize   int                  `yaml:"readBatchSize,omitempty"`
}

func (d optionsDoc) toOptions() model.Options {
	return model.Options{
		Implementation:  d.Implementation,
		IterationCap:    d.IterationCap,
		RecordDiffs:     d.RecordDiffs,
		DebugInvariants: d.DebugInvariants,
		MaxNodes:        d.MaxNodes,
		HasSeed:         d.HasSeed,
		Seed:            d.Seed,
		ReadBatchSize:   d.ReadBatchSize,
	}
}

// presetDoc is the top-level YAML document shape.
type presetDoc struct {
	ID                  string                   `yaml:"id"`
	Label               string                   `yaml:"label"`
	Description         string                   `yaml:"description"`
	Root                patternDoc               `yaml:"root"`
	Rewrites            []rewriteDoc             `yaml:"rewrites"`
	ImplementationHints *implementationHintsDoc  `yaml:"implementationHints,omitempty"`
	Options             optionsDoc               `yaml:"options,omitempty"`
}

// Load reads and parses path, returning the decoded preset and its
// accompanying run options.
func Load(path string) (model.Preset, model.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Preset{}, model.Options{}, fmt.Errorf("presetfile: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document from data.
func Parse(data []byte) (model.Preset, model.Options, error) {
	var doc presetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.Preset{}, model.Options{}, fmt.Errorf("presetfile: parse: %w", err)
	}

	root, err := doc.Root.toPattern()
	if err != nil {
		return model.Preset{}, model.Options{}, fmt.Errorf("presetfile: root: %w", err)
	}

	rewrites := make([]model.Rewrite, len(doc.Rewrites))
	for i, rw := range doc.Rewrites {
		lhs, err := rw.LHS.toPattern()
		if err != nil {
			return model.Preset{}, model.Options{}, fmt.Errorf("presetfile: rewrite %q lhs: %w", rw.Name, err)
		}
		rhs, err := rw.RHS.toPattern()
		if err != nil {
			return model.Preset{}, model.Options{}, fmt.Errorf("presetfile: rewrite %q rhs: %w", rw.Name, err)
		}
		enabled := true
		if rw.Enabled != nil {
			enabled = *rw.Enabled
		}
		rewrites[i] = model.Rewrite{
			Name:     rw.Name,
			LHS:      lhs,
			RHS:      rhs,
			Enabled:  enabled,
			Priority: rw.Priority,
		}
	}

	preset := model.Preset{
		ID:          doc.ID,
		Label:       doc.Label,
		Description: doc.Description,
		Root:        root,
		Rewrites:    rewrites,
	}
	if doc.ImplementationHints != nil {
		preset.ImplementationHints = &model.ImplementationHints{
			DefaultStrategy: doc.ImplementationHints.DefaultStrategy,
			IterationCap:    doc.ImplementationHints.IterationCap,
			Profile:         doc.ImplementationHints.Profile,
		}
	}

	return preset, doc.Options.toOptions(), nil
}
