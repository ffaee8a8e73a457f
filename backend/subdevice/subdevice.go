// Package subdevice implements the subdevice backend of spec §4.8: a
// logical address space tunnelled through a host backend's address,
// data, and (optionally) status registers. Grounded on
// core_engine/devices/rtc.go's index/data register pair (write
// currentRegisterIndex at port 0x70, then access the selected byte at
// port 0x71) generalized into the three/two-register tunnel modes,
// with status-polling additionally grounded on
// core_engine/devices/pit.go's multi-phase latch read/write sequencing.
package subdevice

import (
	"context"
	"time"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/usertype"
)

// Mode selects one of spec §4.8's three tunnel protocols.
type Mode int

const (
	// ModeArea: the host exposes a single large area register; the
	// sub-register at logical offset o maps to host-area offset o.
	ModeArea Mode = iota
	// ModeThreeRegister: write address <- r, then data <- v (or read
	// data), polling status until quiescent if present.
	ModeThreeRegister
	// ModeTwoRegister: as ModeThreeRegister without status, with a
	// fixed sleep interval instead.
	ModeTwoRegister
)

// Host is the subset of a host backend's scalar accessors the tunnel
// needs: address, data, and optional status registers.
type Host interface {
	ScalarAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error)
}

// Config describes one subdevice's tunnel wiring.
type Config struct {
	Mode          Mode
	AreaPath      regpath.Path // ModeArea
	AddressPath   regpath.Path // ModeThreeRegister / ModeTwoRegister
	DataPath      regpath.Path
	StatusPath    regpath.Path // ModeThreeRegister, when HasStatus
	HasStatus     bool
	SleepInterval time.Duration // ModeTwoRegister
}

// Register names one sub-register exposed through the tunnel, at the
// logical offset the map file assigns it.
type Register struct {
	Path   regpath.Path
	Offset int
}

// Backend is the subdevice backend of spec §4.8.
type Backend struct {
	*backend.State
	host    Host
	cfg     Config
	regs    []Register
	cat     *catalogue.Catalogue
	log     *obslog.Logger
	address accessor.Accessor[int64]
	data    accessor.Accessor[int64]
	status  accessor.Accessor[int64]
	area    accessor.Accessor[int64]
}

// New constructs a subdevice Backend over host per cfg, exposing the
// sub-registers named in regs.
func New(host Host, cfg Config, regs []Register, log *obslog.Logger) *Backend {
	cat := catalogue.New()
	for _, r := range regs {
		cat.Add(catalogue.Info{
			Path:        r.Path,
			NChannels:   1,
			NElements:   1,
			NDimensions: 0,
			Descriptor:  catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
			Readable:    true,
			Writeable:   true,
		})
	}
	return &Backend{State: backend.NewState(log), host: host, cfg: cfg, regs: regs, cat: cat, log: log}
}

func (b *Backend) Open(ctx context.Context) error {
	var err error
	switch b.cfg.Mode {
	case ModeArea:
		b.area, err = b.host.ScalarAccessorInt64(b.cfg.AreaPath, catalogue.AccessMode(0))
	case ModeThreeRegister, ModeTwoRegister:
		if b.address, err = b.host.ScalarAccessorInt64(b.cfg.AddressPath, catalogue.AccessMode(0)); err != nil {
			break
		}
		if b.data, err = b.host.ScalarAccessorInt64(b.cfg.DataPath, catalogue.AccessMode(0)); err != nil {
			break
		}
		if b.cfg.Mode == ModeThreeRegister && b.cfg.HasStatus {
			b.status, err = b.host.ScalarAccessorInt64(b.cfg.StatusPath, catalogue.AccessMode(0))
		}
	}
	if err != nil {
		return err
	}
	b.MarkOpen()
	return nil
}

func (b *Backend) Close() error {
	b.MarkClosed()
	return nil
}

func (b *Backend) Catalogue() *catalogue.Catalogue { return b.cat }

// ActivateAsyncRead is a no-op: tunnelled sub-registers are transferred
// synchronously through the host's address/data/status registers, with
// no push-capable interrupt source of their own.
func (b *Backend) ActivateAsyncRead(ctx context.Context) error { return nil }

// ScalarAccessorInt64 returns the Accessor[int64] for the sub-register
// declared at path, tunnelling each transfer through the configured
// address/data/status registers (or the area register).
func (b *Backend) ScalarAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	if modes.Has(catalogue.Raw) {
		return nil, deverr.Logicf(path.String(), "raw access is not available through the subdevice backend")
	}
	offset := -1
	for _, r := range b.regs {
		if r.Path.String() == path.String() {
			offset = r.Offset
			break
		}
	}
	if offset < 0 {
		return nil, deverr.Logicf(path.String(), "no such subdevice register")
	}
	t := &tunnelTransport{b: b, offset: offset}
	return accessor.NewLeaf[int64]("subdevice:"+path.String(), path, 1, 1, catalogue.AccessMode(0), t), nil
}

// ScalarAccessorFloat64 exposes the sub-register as a plain int64-to-
// float64 cast over the same tunnel transport; subdevices tunnel raw
// integral words, so there is no fixed-point scaling to apply.
func (b *Backend) ScalarAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	base, err := b.ScalarAccessorInt64(path, modes)
	if err != nil {
		return nil, err
	}
	return accessor.NewTypeChanging[int64, float64]("float64:"+path.String(), base, castConverter()), nil
}

// OneDAccessorFloat64 exposes a sub-register array as float64, per
// ScalarAccessorFloat64's plain-cast rule.
func (b *Backend) OneDAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	base, err := b.OneDAccessorInt64(path, modes)
	if err != nil {
		return nil, err
	}
	return accessor.NewTypeChanging[int64, float64]("float64:"+path.String(), base, castConverter()), nil
}

func castConverter() accessor.Converter[int64, float64] {
	return accessor.Converter[int64, float64]{
		ToUser: func(raw int64) (float64, error) { return float64(raw), nil },
		ToRaw:  func(v float64) (int64, error) { return int64(v), nil },
	}
}

// OneDAccessorInt64 returns an Accessor[int64] over an array of
// sub-registers sharing path's base, each element tunnelled in turn
// per spec §4.8's "for arrays the protocol is repeated per element".
func (b *Backend) OneDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	if modes.Has(catalogue.Raw) {
		return nil, deverr.Logicf(path.String(), "raw access is not available through the subdevice backend")
	}
	var offsets []int
	for _, r := range b.regs {
		if r.Path.String() == path.String() {
			offsets = append(offsets, r.Offset)
		}
	}
	if len(offsets) == 0 {
		return nil, deverr.Logicf(path.String(), "no such subdevice register array")
	}
	t := &arrayTunnelTransport{b: b, offsets: offsets}
	return accessor.NewLeaf[int64]("subdevice:"+path.String(), path, 1, len(offsets), catalogue.AccessMode(0), t), nil
}

// TwoDAccessorInt64 is not supported: a subdevice tunnel addresses one
// scalar or one 1-D array per declared register, never a multiplexed
// block.
func (b *Backend) TwoDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	return nil, deverr.Logicf(path.String(), "2-D accessors are not available through the subdevice backend")
}

// VoidAccessor is not supported by the subdevice backend.
func (b *Backend) VoidAccessor(path regpath.Path) (accessor.Accessor[struct{}], error) {
	return nil, deverr.Logicf(path.String(), "void accessors are not available through the subdevice backend")
}

// arrayTunnelTransport drives the tunnel protocol once per element of
// a sub-register array declared with repeated Offset entries under
// the same path.
type arrayTunnelTransport struct {
	b       *Backend
	offsets []int
}

func (t *arrayTunnelTransport) Read(ctx context.Context, buf *accessor.Buffer[int64]) error {
	values := make([]int64, len(t.offsets))
	for i, offset := range t.offsets {
		v, err := (&tunnelTransport{b: t.b, offset: offset}).readOne(ctx)
		if err != nil {
			return err
		}
		values[i] = v
	}
	buf.SetChannel(0, values)
	return nil
}

func (t *arrayTunnelTransport) Write(ctx context.Context, buf *accessor.Buffer[int64]) (bool, error) {
	values := buf.Channel(0)
	for i, offset := range t.offsets {
		if err := (&tunnelTransport{b: t.b, offset: offset}).writeOne(ctx, values[i]); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (t *arrayTunnelTransport) MayReplaceOther(other accessor.Transport[int64]) bool {
	o, ok := other.(*arrayTunnelTransport)
	if !ok || o.b != t.b || len(o.offsets) != len(t.offsets) {
		return false
	}
	for i := range t.offsets {
		if t.offsets[i] != o.offsets[i] {
			return false
		}
	}
	return true
}

// tunnelTransport implements accessor.Transport[int64] by driving the
// configured tunnel protocol once per read/write.
type tunnelTransport struct {
	b      *Backend
	offset int
}

func (t *tunnelTransport) Read(ctx context.Context, buf *accessor.Buffer[int64]) error {
	v, err := t.readOne(ctx)
	if err != nil {
		return err
	}
	buf.SetChannel(0, []int64{v})
	return nil
}

func (t *tunnelTransport) Write(ctx context.Context, buf *accessor.Buffer[int64]) (bool, error) {
	return false, t.writeOne(ctx, buf.Channel(0)[0])
}

// readOne and writeOne drive one tunnel transfer for offset; shared by
// the scalar Transport above and arrayTunnelTransport's per-element loop.
func (t *tunnelTransport) readOne(ctx context.Context) (int64, error) {
	switch t.b.cfg.Mode {
	case ModeArea:
		return accessor.ReadScalar[int64](ctx, t.b.area)
	case ModeThreeRegister, ModeTwoRegister:
		if err := accessor.WriteScalar[int64](ctx, t.b.address, int64(t.offset)); err != nil {
			return 0, err
		}
		if err := t.awaitQuiescent(ctx); err != nil {
			return 0, err
		}
		return accessor.ReadScalar[int64](ctx, t.b.data)
	default:
		return 0, deverr.Logicf("", "unknown subdevice mode")
	}
}

func (t *tunnelTransport) writeOne(ctx context.Context, value int64) error {
	switch t.b.cfg.Mode {
	case ModeArea:
		return accessor.WriteScalar[int64](ctx, t.b.area, value)
	case ModeThreeRegister, ModeTwoRegister:
		if err := accessor.WriteScalar[int64](ctx, t.b.address, int64(t.offset)); err != nil {
			return err
		}
		if err := accessor.WriteScalar[int64](ctx, t.b.data, value); err != nil {
			return err
		}
		return t.awaitQuiescent(ctx)
	default:
		return deverr.Logicf("", "unknown subdevice mode")
	}
}

func (t *tunnelTransport) MayReplaceOther(other accessor.Transport[int64]) bool {
	o, ok := other.(*tunnelTransport)
	return ok && o.b == t.b && o.offset == t.offset
}

// awaitQuiescent blocks until the tunnel is ready to proceed: polling
// status to zero in 3-register mode, or sleeping a fixed interval in
// 2-register mode (spec §4.8).
func (t *tunnelTransport) awaitQuiescent(ctx context.Context) error {
	if t.b.cfg.Mode == ModeThreeRegister && t.b.status != nil {
		for {
			v, err := accessor.ReadScalar[int64](ctx, t.b.status)
			if err != nil {
				return err
			}
			if v == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
	if t.b.cfg.Mode == ModeTwoRegister {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.b.cfg.SleepInterval):
			return nil
		}
	}
	return nil
}
