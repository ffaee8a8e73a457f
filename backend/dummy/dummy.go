// Package dummy implements the in-process dummy backend of spec
// §4.9: a numeric.Backend over a purely in-memory AddressSpace, with
// an explicit buffer-lock test facility a test harness uses to freeze
// register state mid-scenario. Grounded on
// core_engine/devices/iobus.go's in-memory `ports` table — the dummy
// backend is the numeric backend with that same in-memory store and
// nothing else behind it.
package dummy

import (
	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/obslog"
)

// Backend is the in-process dummy backend: a numeric.Backend whose
// AddressSpace is plain heap memory, with Freeze/Unfreeze exposed for
// tests.
type Backend struct {
	*numeric.Backend
	space *numeric.AddressSpace
}

// New allocates bars of the given sizes (bar -> byteSize) and
// constructs a dummy Backend exposing cat through layouts.
func New(barSizes map[int]int, cat *catalogue.Catalogue, layouts map[string]numeric.RegisterLayout, log *obslog.Logger) *Backend {
	space := numeric.NewAddressSpace(barSizes)
	return &Backend{
		Backend: numeric.New(space, cat, layouts, log),
		space:   space,
	}
}

// Freeze acquires the backend's buffer lock, blocking any in-flight
// readTransfer/writeTransfer until Unfreeze. Spec §5: "the dummy
// backends expose an explicit buffer lock that the test API uses to
// freeze state."
func (b *Backend) Freeze() { b.space.Lock() }

// Unfreeze releases the lock acquired by Freeze.
func (b *Backend) Unfreeze() { b.space.Unlock() }

// WriteRaw pokes byteSize bytes directly into bar at byteAddress,
// bypassing any registered register's access mode — the backdoor a
// test harness uses to set up hardware state before exercising an
// accessor under test.
func (b *Backend) WriteRaw(bar, byteAddress int, data []byte) error {
	return b.space.Write(bar, byteAddress, data)
}

// ReadRaw is WriteRaw's read-side counterpart, used to assert on
// hardware state an accessor under test produced.
func (b *Backend) ReadRaw(bar, byteAddress, byteSize int) ([]byte, error) {
	dst := make([]byte, byteSize)
	if err := b.space.Read(bar, byteAddress, byteSize, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// WriteCount reports how many raw writes this backend's AddressSpace
// has served since construction, regardless of caller — accessor
// transfers, the transfer group's merged writes, and WriteRaw all
// count. Grounded on
// original_source/tests/include/WriteCountingBackend.h, whose
// DummyBackend subclass existed only to add this counter; here it is
// plain AddressSpace bookkeeping every dummy backend gets for free.
func (b *Backend) WriteCount() uint64 { return b.space.WriteCount() }
