package plugins

import (
	"context"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// BitRange extracts a contiguous bit field [shift, shift+width) of a
// target uint32 word as an int64, per spec §4.4. Writing modifies only
// the field's bits, preserving the rest of the target word, so — unlike
// accessor.TypeChanging's independent elementwise conversion — it
// stages a read of the target's current raw value before every write.
type BitRange struct {
	transfer.Base
	target       accessor.Accessor[uint32]
	shift, width int
	signed       bool
	buf          *accessor.Buffer[int64]
}

// NewBitRange constructs a BitRange over target, field [shift,shift+width).
func NewBitRange(id string, target accessor.Accessor[uint32], shift, width int, signed bool) (*BitRange, error) {
	if width <= 0 || width > 64 || shift < 0 {
		return nil, deverr.Logicf(target.Path().String(), "invalid bit range [%d,%d)", shift, shift+width)
	}
	return &BitRange{
		Base:   transfer.NewBase(id),
		target: target,
		shift:  shift,
		width:  width,
		signed: signed,
		buf:    accessor.NewBuffer[int64](1, 1),
	}, nil
}

func (b *BitRange) fieldMask() uint32 {
	if b.width >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << uint(b.width)) - 1
}

func (b *BitRange) Path() regpath.Path               { return b.target.Path() }
func (b *BitRange) NChannels() int                   { return 1 }
func (b *BitRange) NSamples() int                    { return 1 }
func (b *BitRange) Channel(ch int) []int64           { return b.buf.Channel(0) }
func (b *BitRange) SetChannel(ch int, data []int64)  { b.buf.SetChannel(0, data) }
func (b *BitRange) VersionNumber() version.Number    { return b.target.VersionNumber() }
func (b *BitRange) Validity() version.Validity       { return b.target.Validity() }
func (b *BitRange) AccessModes() catalogue.AccessMode { return b.target.AccessModes() &^ catalogue.Raw }
func (b *BitRange) Interrupt()                        { b.target.Interrupt() }

func (b *BitRange) PreRead(ctx context.Context, kind transfer.TransferKind) error {
	return b.target.PreRead(ctx, kind)
}

func (b *BitRange) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	return b.target.ReadTransfer(ctx, kind)
}

func (b *BitRange) ReadTransferNonBlocking(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return b.target.ReadTransferNonBlocking(ctx, kind)
}

func (b *BitRange) ReadLatest(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return b.target.ReadLatest(ctx, kind)
}

func (b *BitRange) PostRead(ctx context.Context, kind transfer.TransferKind, hasNewData bool) error {
	err := b.target.PostRead(ctx, kind, hasNewData)
	if !hasNewData {
		return err
	}
	word := b.target.Channel(0)[0]
	field := (word >> uint(b.shift)) & b.fieldMask()
	var value int64
	if b.signed && field&(1<<uint(b.width-1)) != 0 {
		value = int64(field) - int64(b.fieldMask()) - 1
	} else {
		value = int64(field)
	}
	b.buf.Channel(0)[0] = value
	return err
}

// PreWrite reads the target's current raw word so the write-back can
// preserve bits outside [shift, shift+width).
func (b *BitRange) PreWrite(ctx context.Context, kind transfer.TransferKind) error {
	if err := b.target.PreRead(ctx, kind); err != nil {
		return err
	}
	if err := b.target.ReadTransfer(ctx, kind); err != nil {
		return err
	}
	if err := b.target.PostRead(ctx, kind, true); err != nil {
		return err
	}

	value := b.buf.Channel(0)[0]
	if value < 0 || uint64(value) > uint64(b.fieldMask()) {
		if !(b.signed && value < 0 && uint64(-value) <= uint64(b.fieldMask())/2+1) {
			return deverr.Logicf(b.Path().String(), "value %d exceeds %d-bit field range", value, b.width)
		}
	}

	current := b.target.Channel(0)[0]
	cleared := current &^ (b.fieldMask() << uint(b.shift))
	word := cleared | ((uint32(value) & b.fieldMask()) << uint(b.shift))
	b.target.SetChannel(0, []uint32{word})
	return b.target.PreWrite(ctx, kind)
}

func (b *BitRange) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return b.target.WriteTransfer(ctx, kind)
}

func (b *BitRange) PostWrite(ctx context.Context, kind transfer.TransferKind) error {
	return b.target.PostWrite(ctx, kind)
}

func (b *BitRange) MayReplaceOther(other transfer.Element) bool { return false }

func (b *BitRange) HardwareAccessingElements() []transfer.Element {
	return b.target.HardwareAccessingElements()
}

func (b *BitRange) ReplaceTransferElement(newElem transfer.Element) bool {
	if b.target.ID() == newElem.ID() {
		if na, ok := newElem.(accessor.Accessor[uint32]); ok {
			b.target = na
			return true
		}
	}
	return b.target.ReplaceTransferElement(newElem)
}
