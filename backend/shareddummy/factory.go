package shareddummy

import (
	"os"

	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/numeric"
)

// init registers the "shareddummy" scheme of spec §6's reserved
// schemes: "(shareddummy?bars=0:4096&instance=i&user=u&map=/path&dir=/dev/shm)".
// dir defaults to os.TempDir() when absent.
func init() {
	backend.Register("shareddummy", func(desc backend.Descriptor) (backend.Backend, error) {
		barsRaw, _ := desc.Parameter("bars")
		bars, err := numeric.ParseBars(barsRaw)
		if err != nil {
			return nil, err
		}
		cat, layouts, err := numeric.CatalogueFor(desc)
		if err != nil {
			return nil, err
		}
		dir, ok := desc.Parameter("dir")
		if !ok {
			dir = os.TempDir()
		}
		instance, _ := desc.Parameter("instance")
		mapPath, _ := desc.Parameter("map")
		user, _ := desc.Parameter("user")
		key := Key{InstanceID: instance, MapFilePath: mapPath, User: user}
		return Open(dir, key, bars, cat, layouts, nil)
	})
}
