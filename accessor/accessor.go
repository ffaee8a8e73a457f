// Package accessor implements the N-dimensional register accessor of
// spec §4.1/§3: a typed channels x samples buffer layered on a
// transfer.Element, plus the decorator and type-conversion machinery
// every backend's getRegisterAccessor method composes.
//
// The decorator chain follows the Design Notes (spec §9): instead of
// the source's virtual-inheritance decorators, every layer here is a
// plain struct composed by embedding the Accessor[T] interface (or,
// for type-changing layers, holding a typed target explicitly) and
// overriding only the phases it actually transforms.
package accessor

import (
	"context"

	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// Accessor is the typed register handle of spec §3: an
// NDRegisterAccessor<T>. It owns a rectangular buffer, a version
// number, a validity flag, an access-mode set, and the path of the
// register it's bound to, and implements the five-phase transfer
// contract.
type Accessor[T any] interface {
	transfer.Element

	Path() regpath.Path
	NChannels() int
	NSamples() int
	Channel(ch int) []T
	SetChannel(ch int, data []T)

	VersionNumber() version.Number
	Validity() version.Validity
	AccessModes() catalogue.AccessMode

	// Interrupt poisons any in-flight blocking read with a
	// cancellation, per spec §5.
	Interrupt()
}

// state is the common bookkeeping every concrete leaf and facade
// embeds: buffer, version, validity, path, access modes and the
// cancellation plumbing for Interrupt.
type state[T any] struct {
	transfer.Base
	buf        *Buffer[T]
	path       regpath.Path
	modes      catalogue.AccessMode
	version    version.Number
	validity   version.Validity
	cancelFunc context.CancelFunc
}

func newState[T any](id string, path regpath.Path, nChannels, nSamples int, modes catalogue.AccessMode) state[T] {
	return state[T]{
		Base:  transfer.NewBase(id),
		buf:   NewBuffer[T](nChannels, nSamples),
		path:  path,
		modes: modes,
	}
}

func (s *state[T]) Path() regpath.Path                  { return s.path }
func (s *state[T]) NChannels() int                       { return s.buf.NChannels() }
func (s *state[T]) NSamples() int                        { return s.buf.NSamples() }
func (s *state[T]) Channel(ch int) []T                   { return s.buf.Channel(ch) }
func (s *state[T]) SetChannel(ch int, data []T)           { s.buf.SetChannel(ch, data) }
func (s *state[T]) VersionNumber() version.Number        { return s.version }
func (s *state[T]) Validity() version.Validity           { return s.validity }
func (s *state[T]) AccessModes() catalogue.AccessMode    { return s.modes }

func (s *state[T]) stamp(v version.Number, validity version.Validity) {
	s.version = v
	s.validity = validity
}
