package rebot

import (
	"strconv"
	"time"

	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/deverr"
)

// init registers the "rebot" scheme of spec §6's reserved schemes:
// "(rebot?addr=host:port&timeout=5000&map=/path/to/map)". timeout is
// milliseconds, defaulting to 5s when absent.
func init() {
	backend.Register("rebot", func(desc backend.Descriptor) (backend.Backend, error) {
		addr, ok := desc.Parameter("addr")
		if !ok {
			return nil, deverr.Logicf("", `rebot descriptor missing required "addr" parameter`)
		}
		timeout := 5 * time.Second
		if raw, ok := desc.Parameter("timeout"); ok {
			ms, err := strconv.Atoi(raw)
			if err != nil {
				return nil, deverr.Logicf("", "malformed rebot timeout %q: %v", raw, err)
			}
			timeout = time.Duration(ms) * time.Millisecond
		}
		cat, layouts, err := numeric.CatalogueFor(desc)
		if err != nil {
			return nil, err
		}
		return New(addr, timeout, cat, layouts, nil), nil
	})
}
