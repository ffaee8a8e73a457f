package dummy

import (
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/numeric"
)

// init registers the "dummy" scheme of spec §6's reserved schemes:
// "(dummy?bars=0:4096&map=/path/to/map)". Fully self-contained — a
// dummy backend needs nothing beyond the descriptor string, unlike
// logical and subdevice which compose other live backends.
func init() {
	backend.Register("dummy", func(desc backend.Descriptor) (backend.Backend, error) {
		barsRaw, _ := desc.Parameter("bars")
		bars, err := numeric.ParseBars(barsRaw)
		if err != nil {
			return nil, err
		}
		cat, layouts, err := numeric.CatalogueFor(desc)
		if err != nil {
			return nil, err
		}
		return New(bars, cat, layouts, nil), nil
	})
}
