// Package device implements the device facade of spec §4.7: a handle
// wrapping a shared Backend reference obtained by alias through a
// static device-map registry, plus the inefficient-by-design one-shot
// convenience reads/writes layered on top of it.
package device

import (
	"context"
	"sync"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
)

// deviceMap is the process-wide alias -> descriptor registry of spec
// §4.7 ("open(alias) resolves the alias through a static device-map
// registry to a backend descriptor string"), grounded on
// core_engine/devices/iobus.go's port table: one mutex-guarded map,
// looked up by a string key, populated once at program init.
var deviceMap = struct {
	mu      sync.Mutex
	aliases map[string]string
}{aliases: make(map[string]string)}

// RegisterAlias binds alias to the device descriptor string descriptor
// (e.g. "(dummy?bars=0:4096)"), overwriting any previous binding.
func RegisterAlias(alias, descriptor string) {
	deviceMap.mu.Lock()
	defer deviceMap.mu.Unlock()
	deviceMap.aliases[alias] = descriptor
}

func resolveAlias(alias string) (string, error) {
	deviceMap.mu.Lock()
	defer deviceMap.mu.Unlock()
	descriptor, ok := deviceMap.aliases[alias]
	if !ok {
		return "", deverr.Logicf(alias, "no device-map entry for alias")
	}
	return descriptor, nil
}

// Device is a handle on a Backend, obtained by alias per spec §4.7.
// The zero value is not ready for use; construct with New.
type Device struct {
	mu        sync.Mutex
	lastAlias string
	b         backend.Backend
}

// New constructs an unopened Device.
func New() *Device {
	return &Device{}
}

// Open resolves alias through the device map, selects the registered
// backend factory by the descriptor's scheme, constructs and opens
// the backend, and remembers alias for a subsequent parameterless
// Open.
func (d *Device) Open(ctx context.Context, alias string) error {
	descriptor, err := resolveAlias(alias)
	if err != nil {
		return err
	}
	desc, err := backend.ParseDescriptor(descriptor)
	if err != nil {
		return err
	}
	b, err := backend.Create(desc)
	if err != nil {
		return err
	}
	if err := b.Open(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.b = b
	d.lastAlias = alias
	return nil
}

// Reopen re-opens the alias passed to the most recent Open, per spec
// §4.7's "open() re-opens the last alias".
func (d *Device) Reopen(ctx context.Context) error {
	d.mu.Lock()
	alias := d.lastAlias
	d.mu.Unlock()
	if alias == "" {
		return deverr.Logicf("", "device has never been opened, nothing to reopen")
	}
	return d.Open(ctx, alias)
}

// Close releases the backend. Per spec §4.7, Close does not forget
// lastAlias: a later Reopen still works.
func (d *Device) Close() error {
	d.mu.Lock()
	b := d.b
	d.b = nil
	d.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Close()
}

func (d *Device) backendOrPanic() (backend.Backend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.b == nil {
		return nil, deverr.Logicf("", "device is not open")
	}
	return d.b, nil
}

// ActivateAsyncRead arms every WaitForNewData register the open
// backend has bound to a push source (spec §4.3), so accessors
// obtained with catalogue.WaitForNewData start receiving pushed
// updates instead of blocking forever on an unarmed source.
func (d *Device) ActivateAsyncRead(ctx context.Context) error {
	b, err := d.backendOrPanic()
	if err != nil {
		return err
	}
	return b.ActivateAsyncRead(ctx)
}

// Catalogue returns the open backend's register catalogue.
func (d *Device) Catalogue() (*catalogue.Catalogue, error) {
	b, err := d.backendOrPanic()
	if err != nil {
		return nil, err
	}
	return b.Catalogue(), nil
}

// ScalarRegisterAccessorInt64 delegates to the open backend, per spec
// §4.7's getScalarRegisterAccessor<T>.
func (d *Device) ScalarRegisterAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	b, err := d.backendOrPanic()
	if err != nil {
		return nil, err
	}
	return b.ScalarAccessorInt64(path, modes)
}

// ScalarRegisterAccessorFloat64 delegates to the open backend.
func (d *Device) ScalarRegisterAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	b, err := d.backendOrPanic()
	if err != nil {
		return nil, err
	}
	return b.ScalarAccessorFloat64(path, modes)
}

// OneDRegisterAccessorInt64 delegates to the open backend.
func (d *Device) OneDRegisterAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	b, err := d.backendOrPanic()
	if err != nil {
		return nil, err
	}
	return b.OneDAccessorInt64(path, modes)
}

// OneDRegisterAccessorFloat64 delegates to the open backend.
func (d *Device) OneDRegisterAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	b, err := d.backendOrPanic()
	if err != nil {
		return nil, err
	}
	return b.OneDAccessorFloat64(path, modes)
}

// TwoDRegisterAccessorInt64 delegates to the open backend.
func (d *Device) TwoDRegisterAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	b, err := d.backendOrPanic()
	if err != nil {
		return nil, err
	}
	return b.TwoDAccessorInt64(path, modes)
}

// VoidRegisterAccessor delegates to the open backend.
func (d *Device) VoidRegisterAccessor(path regpath.Path) (accessor.Accessor[struct{}], error) {
	b, err := d.backendOrPanic()
	if err != nil {
		return nil, err
	}
	return b.VoidAccessor(path)
}

// ReadScalarInt64 is a one-shot convenience read: construct the
// accessor, transfer once, discard it. Documented as inefficient per
// spec §4.7 — callers on a hot path should instead keep the accessor
// returned by ScalarRegisterAccessorInt64.
func (d *Device) ReadScalarInt64(ctx context.Context, path regpath.Path) (int64, error) {
	a, err := d.ScalarRegisterAccessorInt64(path, catalogue.AccessMode(0))
	if err != nil {
		return 0, err
	}
	return accessor.ReadScalar[int64](ctx, a)
}

// WriteScalarInt64 is a one-shot convenience write; see ReadScalarInt64.
func (d *Device) WriteScalarInt64(ctx context.Context, path regpath.Path, value int64) error {
	a, err := d.ScalarRegisterAccessorInt64(path, catalogue.AccessMode(0))
	if err != nil {
		return err
	}
	return accessor.WriteScalar[int64](ctx, a, value)
}
