package accessor

import (
	"context"

	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// Decorator is the common base every same-type decorator embeds: it
// boxes a target Accessor[T] and forwards the whole contract, per the
// Design Notes' "decorator chains ... express as trait objects layered
// by composition" (spec §9). A concrete decorator embeds Decorator[T]
// and shadows only the methods it actually transforms.
type Decorator[T any] struct {
	Target Accessor[T]
}

// NewDecorator boxes target for embedding by a concrete decorator.
func NewDecorator[T any](target Accessor[T]) Decorator[T] {
	return Decorator[T]{Target: target}
}

func (d *Decorator[T]) Unwrap() Accessor[T] { return d.Target }

func (d *Decorator[T]) Path() regpath.Path               { return d.Target.Path() }
func (d *Decorator[T]) NChannels() int                   { return d.Target.NChannels() }
func (d *Decorator[T]) NSamples() int                    { return d.Target.NSamples() }
func (d *Decorator[T]) Channel(ch int) []T               { return d.Target.Channel(ch) }
func (d *Decorator[T]) SetChannel(ch int, data []T)       { d.Target.SetChannel(ch, data) }
func (d *Decorator[T]) VersionNumber() version.Number    { return d.Target.VersionNumber() }
func (d *Decorator[T]) Validity() version.Validity       { return d.Target.Validity() }
func (d *Decorator[T]) AccessModes() catalogue.AccessMode { return d.Target.AccessModes() }
func (d *Decorator[T]) Interrupt()                        { d.Target.Interrupt() }
func (d *Decorator[T]) ID() string                        { return "decorator(" + d.Target.ID() + ")" }

func (d *Decorator[T]) PreRead(ctx context.Context, kind transfer.TransferKind) error {
	return d.Target.PreRead(ctx, kind)
}

func (d *Decorator[T]) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	return d.Target.ReadTransfer(ctx, kind)
}

func (d *Decorator[T]) ReadTransferNonBlocking(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return d.Target.ReadTransferNonBlocking(ctx, kind)
}

func (d *Decorator[T]) ReadLatest(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return d.Target.ReadLatest(ctx, kind)
}

func (d *Decorator[T]) PostRead(ctx context.Context, kind transfer.TransferKind, hasNewData bool) error {
	return d.Target.PostRead(ctx, kind, hasNewData)
}

func (d *Decorator[T]) PreWrite(ctx context.Context, kind transfer.TransferKind) error {
	return d.Target.PreWrite(ctx, kind)
}

func (d *Decorator[T]) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return d.Target.WriteTransfer(ctx, kind)
}

func (d *Decorator[T]) PostWrite(ctx context.Context, kind transfer.TransferKind) error {
	return d.Target.PostWrite(ctx, kind)
}

func (d *Decorator[T]) MayReplaceOther(other transfer.Element) bool {
	return d.Target.MayReplaceOther(other)
}

func (d *Decorator[T]) HardwareAccessingElements() []transfer.Element {
	return d.Target.HardwareAccessingElements()
}

func (d *Decorator[T]) ReplaceTransferElement(newElem transfer.Element) bool {
	if d.Target.ID() == newElem.ID() {
		if na, ok := newElem.(Accessor[T]); ok {
			d.Target = na
			return true
		}
	}
	return d.Target.ReplaceTransferElement(newElem)
}
