// Package catalogue implements the register catalogue: DataDescriptor,
// RegisterInfo (here Info), AccessMode, and the path-keyed set of
// registers a backend exposes, plus its metadata map.
//
// The keyed-by-exact-path lookup mirrors core_engine/devices/iobus.go's
// `ports map[uint16]PioDevice` — here the key is a hierarchical path
// instead of a port number, and the value is register metadata instead
// of a device handle.
package catalogue

import (
	"sort"

	"github.com/vdatab/devaccess/regpath"
)

// Catalogue is the set of RegisterInfos a backend exposes, keyed by
// exact path.
type Catalogue struct {
	entries  map[string]Info
	metadata map[string]string
}

// New returns an empty Catalogue.
func New() *Catalogue {
	return &Catalogue{
		entries:  make(map[string]Info),
		metadata: make(map[string]string),
	}
}

// Add registers info under its own path, overwriting any previous entry
// at that path.
func (c *Catalogue) Add(info Info) {
	c.entries[info.Path.String()] = info
}

// Get looks up the Info at the exact path p.
func (c *Catalogue) Get(p regpath.Path) (Info, bool) {
	info, ok := c.entries[p.String()]
	return info, ok
}

// Has reports whether p names a register in the catalogue.
func (c *Catalogue) Has(p regpath.Path) bool {
	_, ok := c.entries[p.String()]
	return ok
}

// Remove deletes the entry at p, if any.
func (c *Catalogue) Remove(p regpath.Path) {
	delete(c.entries, p.String())
}

// All returns every Info in the catalogue, sorted by path for
// deterministic iteration.
func (c *Catalogue) All() []Info {
	out := make([]Info, 0, len(c.entries))
	for _, info := range c.entries {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path.Compare(out[j].Path) < 0
	})
	return out
}

// WithTag returns every Info carrying tag t.
func (c *Catalogue) WithTag(t string) []Info {
	var out []Info
	for _, info := range c.All() {
		if info.HasTag(t) {
			out = append(out, info)
		}
	}
	return out
}

// Len reports the number of registers in the catalogue.
func (c *Catalogue) Len() int { return len(c.entries) }

// SetMetadata stores a metadata key/value pair (the map-file's `@name
// value` lines per spec §6).
func (c *Catalogue) SetMetadata(key, value string) { c.metadata[key] = value }

// Metadata looks up a metadata value by key.
func (c *Catalogue) Metadata(key string) (string, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// AllMetadata returns a copy of the full metadata map.
func (c *Catalogue) AllMetadata() map[string]string {
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}
