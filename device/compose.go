package device

import (
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/logical"
	"github.com/vdatab/devaccess/backend/subdevice"
	"github.com/vdatab/devaccess/obslog"
)

// RegisterLogicalScheme registers scheme as a logical-name-mapping
// backend (spec §4.4) bound to doc and targets. Unlike the leaf
// backends (dummy, shareddummy, numeric, rebot), which self-register
// from a descriptor string alone, a logical backend composes other
// already-constructed backends by name — something a flat
// "(scheme?k=v)" descriptor cannot express. This is the "central
// wiring point in device" spec §6 allows in place of a self-contained
// init() registration: a composition root calls this once, after
// constructing every target, before any "(scheme)" descriptor naming
// it is opened.
func RegisterLogicalScheme(scheme string, doc logical.Document, targets map[string]logical.TargetResolver, log *obslog.Logger) error {
	b, err := logical.New(doc, targets, log)
	if err != nil {
		return err
	}
	backend.Register(scheme, func(backend.Descriptor) (backend.Backend, error) {
		return b, nil
	})
	return nil
}

// RegisterSubdeviceScheme registers scheme as a subdevice backend
// (spec §4.8) tunnelled through host, for the same composition-root
// reason as RegisterLogicalScheme: host is an already-open backend
// reference, not something a descriptor string can name.
func RegisterSubdeviceScheme(scheme string, host subdevice.Host, cfg subdevice.Config, regs []subdevice.Register, log *obslog.Logger) {
	backend.Register(scheme, func(backend.Descriptor) (backend.Backend, error) {
		return subdevice.New(host, cfg, regs, log), nil
	})
}
