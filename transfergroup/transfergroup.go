// Package transfergroup implements the transfer group of spec §4.5: a
// set of numeric-addressed accessors whose hardware-accessing leaves
// are partitioned by adjacency and merged into a single raw transfer
// per merged range, so that "three adjacent 32-bit registers" cost
// one raw I/O instead of three. Grounded on backend/numeric's
// Adjacent/Merge functions (spec §4.2), which this package's
// Finalize calls directly rather than re-deriving adjacency from
// mayReplaceOther (mayReplaceOther is exact-identity equivalence per
// spec §8, not the weaker adjacency relation the merge step needs).
package transfergroup

import (
	"context"
	"sort"

	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/version"
)

// Member is one register bound into the group: its path, its address
// layout, and the fixed-point channel interpretation used to convert
// to/from the int64 user value the group exposes.
type Member struct {
	Path   regpath.Path
	Layout numeric.RegisterLayout
}

// run is a contiguous set of members sharing one raw read/write.
type run struct {
	bar         int
	byteAddress int
	byteSize    int
	members     []Member
}

// Group is a finalized (or pending-finalization) transfer group over
// one AddressSpace.
type Group struct {
	space    *numeric.AddressSpace
	members  []Member
	runs     []run
	final    bool
	values   map[string]int64
	versions map[string]version.Number
}

// New constructs an empty Group over space.
func New(space *numeric.AddressSpace) *Group {
	return &Group{space: space, values: make(map[string]int64), versions: make(map[string]version.Number)}
}

// Add registers m as a group member. Per spec §4.5, adding a member
// after Finalize has already run is allowed; the group re-partitions.
func (g *Group) Add(m Member) {
	g.members = append(g.members, m)
	g.final = false
}

// Finalize partitions members by (bar, byteAddress) adjacency into
// runs, each run sharing a single raw transfer.
func (g *Group) Finalize() error {
	sorted := append([]Member(nil), g.members...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Layout.Bar != sorted[j].Layout.Bar {
			return sorted[i].Layout.Bar < sorted[j].Layout.Bar
		}
		return sorted[i].Layout.ByteAddress < sorted[j].Layout.ByteAddress
	})

	var runs []run
	for _, m := range sorted {
		if len(runs) > 0 {
			last := &runs[len(runs)-1]
			lastMember := last.members[len(last.members)-1]
			if numeric.Adjacent(lastMember.Layout, m.Layout) {
				merged := numeric.Merge(lastMember.Layout, m.Layout)
				last.byteSize = merged.ByteAddress + merged.ByteSize - last.byteAddress
				last.members = append(last.members, m)
				continue
			}
			if last.bar == m.Layout.Bar && last.byteAddress+last.byteSize > m.Layout.ByteAddress {
				return deverr.Logicf(m.Path.String(), "overlapping member in transfer group")
			}
		}
		runs = append(runs, run{bar: m.Layout.Bar, byteAddress: m.Layout.ByteAddress, byteSize: m.Layout.ByteSize, members: []Member{m}})
	}
	g.runs = runs
	g.final = true
	return nil
}

// Read performs exactly one raw read per merged run, then decodes
// each member's own slice of the run's bytes.
func (g *Group) Read(ctx context.Context) error {
	if !g.final {
		if err := g.Finalize(); err != nil {
			return err
		}
	}
	v := version.Next()
	for _, r := range g.runs {
		raw := make([]byte, r.byteSize)
		if err := g.space.Read(r.bar, r.byteAddress, r.byteSize, raw); err != nil {
			return err
		}
		for _, m := range r.members {
			offset := m.Layout.ByteAddress - r.byteAddress
			word := decodeWord(raw[offset : offset+m.Layout.ByteSize])
			conv := numeric.FixedPointConverterInt64(m.Layout.Channels[0])
			value, err := conv.ToUser(word)
			if err != nil {
				return err
			}
			g.values[m.Path.String()] = value
			g.versions[m.Path.String()] = v
		}
	}
	return nil
}

// Value returns the int64 decoded for path by the most recent Read.
func (g *Group) Value(path regpath.Path) (int64, version.Number, bool) {
	v, ok := g.values[path.String()]
	return v, g.versions[path.String()], ok
}

// Write stages values (by path string) into their owning run and
// performs exactly one raw write per run touched. Per spec §4.5, a
// writable group rejects overlapping members at write time — already
// enforced by Finalize, which errors on overlap.
func (g *Group) Write(ctx context.Context, values map[string]int64) error {
	if !g.final {
		if err := g.Finalize(); err != nil {
			return err
		}
	}
	for _, r := range g.runs {
		touched := false
		raw := make([]byte, r.byteSize)
		if err := g.space.Read(r.bar, r.byteAddress, r.byteSize, raw); err != nil {
			return err
		}
		for _, m := range r.members {
			value, ok := values[m.Path.String()]
			if !ok {
				continue
			}
			touched = true
			conv := numeric.FixedPointConverterInt64(m.Layout.Channels[0])
			word, err := conv.ToRaw(value)
			if err != nil {
				return err
			}
			offset := m.Layout.ByteAddress - r.byteAddress
			encodeWord(raw[offset:offset+m.Layout.ByteSize], word)
		}
		if !touched {
			continue
		}
		if err := g.space.Write(r.bar, r.byteAddress, raw); err != nil {
			return err
		}
	}
	return nil
}

func decodeWord(b []byte) uint32 {
	var w uint32
	for i := 0; i < len(b) && i < 4; i++ {
		w |= uint32(b[i]) << (8 * i)
	}
	return w
}

func encodeWord(b []byte, w uint32) {
	for i := 0; i < len(b) && i < 4; i++ {
		b[i] = byte(w >> (8 * i))
	}
}
