package numeric

import (
	"strconv"
	"strings"

	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
)

// MapLoader resolves a descriptor's "map" parameter into a catalogue
// and register layouts. Map-file syntax is out of scope (spec §1); a
// composition root wires this hook to whatever parser it uses before
// opening any descriptor that names a "map" parameter. With no hook
// configured, CatalogueFor falls back to an empty catalogue for a
// mapless descriptor — a backend with zero declared registers, a
// legitimate (if useless) total map.
var MapLoader func(path string) (*catalogue.Catalogue, map[string]RegisterLayout, error)

// ParseBars parses a "bar:size,bar:size,..." descriptor parameter
// (e.g. "0:4096,1:256") into the map NewAddressSpace expects. An empty
// string yields an empty, valid bar set.
func ParseBars(raw string) (map[int]int, error) {
	bars := make(map[int]int)
	if raw == "" {
		return bars, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, deverr.Logicf("", "malformed bar entry %q, want bar:size", entry)
		}
		bar, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, deverr.Logicf("", "malformed bar index %q: %v", parts[0], err)
		}
		size, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, deverr.Logicf("", "malformed bar size %q: %v", parts[1], err)
		}
		bars[bar] = size
	}
	return bars, nil
}

// CatalogueFor resolves desc's "map" parameter (if present) through
// MapLoader, or returns an empty catalogue and layout set if absent.
func CatalogueFor(desc backend.Descriptor) (*catalogue.Catalogue, map[string]RegisterLayout, error) {
	path, ok := desc.Parameter("map")
	if !ok {
		return catalogue.New(), map[string]RegisterLayout{}, nil
	}
	if MapLoader == nil {
		return nil, nil, deverr.Logicf("", "descriptor names map %q but no numeric.MapLoader is configured", path)
	}
	return MapLoader(path)
}

// init registers the "numeric" scheme of spec §6's reserved schemes:
// "(numeric?bars=0:4096&map=/path/to/map)". The concrete PCIe/UIO mmap
// driver is an out-of-scope transport collaborator (spec §1), so this
// factory builds the same in-memory AddressSpace the dummy backend
// uses; a deployment with a real driver re-registers "numeric" with
// backend.Register before opening any "(numeric)" descriptor, which
// simply overwrites this entry (backend.Register's documented
// last-registration-wins semantics).
func init() {
	backend.Register("numeric", func(desc backend.Descriptor) (backend.Backend, error) {
		barsRaw, _ := desc.Parameter("bars")
		bars, err := ParseBars(barsRaw)
		if err != nil {
			return nil, err
		}
		cat, layouts, err := CatalogueFor(desc)
		if err != nil {
			return nil, err
		}
		return New(NewAddressSpace(bars), cat, layouts, nil), nil
	})
}
