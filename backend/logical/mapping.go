// Package logical implements the logical name mapping backend of
// spec §4.4: a composition engine that builds a virtual catalogue by
// transforming registers of one or more target backends, declared by
// a mapping document. Grounded on core_engine/devices/iobus.go's
// device-table dispatch, generalized from a single flat port table to
// a graph of virtual registers each redirecting to a target.
package logical

import (
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
)

// Kind is a virtual register's target-specification kind, spec §4.4's table.
type Kind int

const (
	KindRedirect Kind = iota
	KindChannel
	KindBit
	KindConstant
	KindVariable
	KindArea
)

// PluginKind names one of the spec §4.4 plugins.
type PluginKind int

const (
	PluginMath PluginKind = iota
	PluginMultiply
	PluginForceReadOnly
	PluginBitRange
	PluginMonostableTrigger
	PluginTagModifier
	PluginTypeHint
)

// PluginSpec is one declared plugin application, in order, over a
// virtual register's target chain.
type PluginSpec struct {
	Kind PluginKind

	// math
	Formula    string
	Parameters []MathParameter

	// multiply
	Factor float64

	// bitRange
	Shift, Width int
	Signed       bool

	// tagModifier
	SetTags    []string
	AddTags    []string
	RemoveTags []string

	// typeHint
	Hint string
}

// MathParameter names one parameter of a math-plugin formula: another
// register, optionally subscribed for push delivery.
type MathParameter struct {
	Name   string
	Target regpath.Path
	Push   bool
}

// TargetSpec is the target-specification half of a virtual register
// declaration, spec §4.4's table.
type TargetSpec struct {
	Kind Kind

	Target        regpath.Path // redirect, channel, bit, area
	FirstIndex    int          // redirect
	Length        int          // redirect (0 = unbounded)
	ElementOffset int          // redirect

	Channel int // channel

	Bit int // bit

	ConstantValues []float64 // constant
	InitialValue   float64   // variable
}

// Declaration is one line of the mapping document: a virtual register
// path, its target specification, and its ordered plugin chain.
type Declaration struct {
	Path    regpath.Path
	Target  TargetSpec
	Plugins []PluginSpec
}

// Document is the parsed mapping document (spec §6's "logical-mapping
// document"; its on-disk syntax is out of scope — this is the
// resolved, in-memory model a parser produces).
type Document struct {
	Declarations []Declaration
}

// validate checks the per-declaration index invariants that don't
// require resolving the target graph: a channel target needs a
// non-negative channel index and a bit target a non-negative bit
// index. Nothing else is checked here.
func (d Declaration) validate() error {
	switch d.Target.Kind {
	case KindChannel:
		if d.Target.Channel < 0 {
			return deverr.Logicf(d.Path.String(), "channel kind requires a non-negative channel index")
		}
	case KindBit:
		if d.Target.Bit < 0 {
			return deverr.Logicf(d.Path.String(), "bit kind requires a non-negative bit index")
		}
	}
	return nil
}

// DetectCycles walks the redirect/channel/area target graph and
// rejects cycles as logic errors, per spec §4.4's "Cycles are
// detected at load time and rejected".
func DetectCycles(doc Document) error {
	byPath := make(map[string]Declaration, len(doc.Declarations))
	for _, d := range doc.Declarations {
		byPath[d.Path.String()] = d
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(doc.Declarations))

	var visit func(path string) error
	visit = func(path string) error {
		switch state[path] {
		case done:
			return nil
		case visiting:
			return deverr.Logicf(path, "cyclic logical mapping")
		}
		state[path] = visiting
		if d, ok := byPath[path]; ok {
			if err := d.validate(); err != nil {
				return err
			}
			switch d.Target.Kind {
			case KindRedirect, KindChannel, KindArea:
				if err := visit(d.Target.Target.String()); err != nil {
					return err
				}
			}
			for _, p := range d.Plugins {
				if p.Kind == PluginMath {
					for _, param := range p.Parameters {
						if err := visit(param.Target.String()); err != nil {
							return err
						}
					}
				}
			}
		}
		state[path] = done
		return nil
	}

	for _, d := range doc.Declarations {
		if err := visit(d.Path.String()); err != nil {
			return err
		}
	}
	return nil
}
