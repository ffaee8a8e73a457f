// Package backend defines the Backend contract every concrete driver
// (dummy, shared-dummy, numeric-addressed, rebot, logical, subdevice)
// implements, and the open/functional/faulted state machine common to
// all of them, per spec §4.2/§6.
package backend

import (
	"context"
	"sync"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
)

// Backend is the driver contract a Device fronts. Concrete backends
// embed State for the open/functional/faulted machinery and implement
// getAccessor by composing an accessor.Leaf/decorator chain.
type Backend interface {
	Open(ctx context.Context) error
	Close() error
	IsFunctional() bool
	SetException(msg string)
	Catalogue() *catalogue.Catalogue

	// ActivateAsyncRead arms every WaitForNewData register this backend
	// has bound to a push source (spec §4.3): it writes the hardware
	// enable mask and delivers each armed register's initial value once.
	// Backends with no push-capable registers implement this as a no-op.
	ActivateAsyncRead(ctx context.Context) error

	// ScalarAccessor, OneDAccessor and TwoDAccessor are the typed
	// register-accessor getters of spec §4.7. T is fixed by the
	// caller's instantiation; backends dispatch on
	// catalogue.Info.Descriptor to validate the requested type.
	ScalarAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error)
	ScalarAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error)
	OneDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error)
	OneDAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error)
	TwoDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error)
	VoidAccessor(path regpath.Path) (accessor.Accessor[struct{}], error)
}

// lifecycle is the closed/open/functional/faulted state of spec §4.2.
type lifecycle int

const (
	closed lifecycle = iota
	functional
	faulted
)

// State is the embeddable open/functional/faulted state machine every
// concrete backend carries, grounded on core_engine/devices/iobus.go's
// pattern of a single mutex-guarded struct owning all mutable device
// state, generalized from a port table to the backend lifecycle.
type State struct {
	mu       sync.Mutex
	state    lifecycle
	fault    string
	log      *obslog.Logger
	onFault  []func(msg string) // async dispatchers register here to poison their queues
}

// NewState constructs a closed State logging through log (nil is safe).
func NewState(log *obslog.Logger) *State {
	return &State{state: closed, log: log}
}

// MarkOpen transitions closed -> functional. Idempotent.
func (s *State) MarkOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = functional
	s.fault = ""
}

// MarkClosed transitions to closed, releasing any fault.
func (s *State) MarkClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = closed
	s.fault = ""
}

// IsFunctional reports open ∧ ¬faulted.
func (s *State) IsFunctional() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == functional
}

// OnFault registers a callback invoked by SetException with the fault
// message, used by the async dispatcher to poison every subscriber
// queue (spec §4.3's "every per-subscriber queue is poisoned").
func (s *State) OnFault(fn func(msg string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFault = append(s.onFault, fn)
}

// SetException moves functional -> faulted, records msg, and invokes
// every registered fault callback outside the lock.
func (s *State) SetException(msg string) {
	s.mu.Lock()
	if s.state == closed {
		s.mu.Unlock()
		return
	}
	s.state = faulted
	s.fault = msg
	callbacks := append([]func(string){}, s.onFault...)
	s.mu.Unlock()

	if s.log != nil {
		s.log.Errorw("backend faulted", "message", msg)
	}
	for _, fn := range callbacks {
		fn(msg)
	}
}

// FaultMessage returns the stored fault message, or "" if not faulted.
func (s *State) FaultMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}
