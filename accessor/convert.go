package accessor

import (
	"context"

	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// Converter converts element-wise between a target accessor's wire
// type From and the decorated accessor's user type To, grounded on
// original_source/util/include/TypeChangingDecorator.h: a bidirectional,
// per-element conversion function pair rather than a virtual-dispatch
// template hierarchy.
type Converter[From, To any] struct {
	ToUser func(From) (To, error)
	ToRaw  func(To) (From, error)
}

// TypeChanging wraps a target Accessor[From] and presents an
// Accessor[To], converting every element on PostRead (From -> To) and
// every element on PreWrite (To -> From). The numeric backends'
// fixed-point and IEEE-754 accessors and the multiply plugin are built
// from it; plugins.BitRange is a separate type.
type TypeChanging[From, To any] struct {
	target    Accessor[From]
	buf       *Buffer[To]
	converter Converter[From, To]
	id        string
}

// NewTypeChanging builds a TypeChanging decorator over target using converter.
func NewTypeChanging[From, To any](id string, target Accessor[From], converter Converter[From, To]) *TypeChanging[From, To] {
	return &TypeChanging[From, To]{
		target:    target,
		buf:       NewBuffer[To](target.NChannels(), target.NSamples()),
		converter: converter,
		id:        id,
	}
}

func (t *TypeChanging[From, To]) Path() regpath.Path                { return t.target.Path() }
func (t *TypeChanging[From, To]) NChannels() int                    { return t.target.NChannels() }
func (t *TypeChanging[From, To]) NSamples() int                     { return t.target.NSamples() }
func (t *TypeChanging[From, To]) Channel(ch int) []To                { return t.buf.Channel(ch) }
func (t *TypeChanging[From, To]) SetChannel(ch int, data []To)        { t.buf.SetChannel(ch, data) }
func (t *TypeChanging[From, To]) VersionNumber() version.Number     { return t.target.VersionNumber() }
func (t *TypeChanging[From, To]) Validity() version.Validity        { return t.target.Validity() }
func (t *TypeChanging[From, To]) AccessModes() catalogue.AccessMode {
	// Raw access is meaningless once a type-changing conversion has
	// been applied: strip it per spec §4.4 ("raw access is forbidden
	// on any path that traverses math/multiply/bitRange").
	return t.target.AccessModes() &^ catalogue.Raw
}
func (t *TypeChanging[From, To]) Interrupt() { t.target.Interrupt() }
func (t *TypeChanging[From, To]) ID() string { return t.id }

func (t *TypeChanging[From, To]) PreRead(ctx context.Context, kind transfer.TransferKind) error {
	return t.target.PreRead(ctx, kind)
}

func (t *TypeChanging[From, To]) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	return t.target.ReadTransfer(ctx, kind)
}

func (t *TypeChanging[From, To]) ReadTransferNonBlocking(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return t.target.ReadTransferNonBlocking(ctx, kind)
}

func (t *TypeChanging[From, To]) ReadLatest(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return t.target.ReadLatest(ctx, kind)
}

func (t *TypeChanging[From, To]) PostRead(ctx context.Context, kind transfer.TransferKind, hasNewData bool) error {
	err := t.target.PostRead(ctx, kind, hasNewData)
	if !hasNewData {
		return err
	}
	for ch := 0; ch < t.NChannels(); ch++ {
		src := t.target.Channel(ch)
		dst := t.buf.Channel(ch)
		for i := range src {
			v, convErr := t.converter.ToUser(src[i])
			if convErr != nil && err == nil {
				err = convErr
			}
			dst[i] = v
		}
	}
	return err
}

func (t *TypeChanging[From, To]) PreWrite(ctx context.Context, kind transfer.TransferKind) error {
	for ch := 0; ch < t.NChannels(); ch++ {
		src := t.buf.Channel(ch)
		dst := make([]From, len(src))
		for i := range src {
			v, err := t.converter.ToRaw(src[i])
			if err != nil {
				return err
			}
			dst[i] = v
		}
		t.target.SetChannel(ch, dst)
	}
	return t.target.PreWrite(ctx, kind)
}

func (t *TypeChanging[From, To]) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return t.target.WriteTransfer(ctx, kind)
}

func (t *TypeChanging[From, To]) PostWrite(ctx context.Context, kind transfer.TransferKind) error {
	return t.target.PostWrite(ctx, kind)
}

func (t *TypeChanging[From, To]) MayReplaceOther(other transfer.Element) bool {
	return t.target.MayReplaceOther(other)
}

func (t *TypeChanging[From, To]) HardwareAccessingElements() []transfer.Element {
	return t.target.HardwareAccessingElements()
}

func (t *TypeChanging[From, To]) ReplaceTransferElement(newElem transfer.Element) bool {
	if t.target.ID() == newElem.ID() {
		if na, ok := newElem.(Accessor[From]); ok {
			t.target = na
			return true
		}
	}
	return t.target.ReplaceTransferElement(newElem)
}
