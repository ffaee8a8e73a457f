package numeric

import (
	"context"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/numeric/interrupt"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/version"
)

// Backend is the numeric-addressed backend of spec §4.2: a catalogue
// mapped onto an AddressSpace, with per-register layout metadata. It
// implements backend.Backend; concrete transports (mmap'd BAR,
// ioctl-based PCIe, in-process dummy) differ only in how AddressSpace
// is constructed.
type Backend struct {
	*backend.State
	space   *AddressSpace
	cat     *catalogue.Catalogue
	layouts map[string]RegisterLayout
	log     *obslog.Logger
	nodes   map[string]*interrupt.Node // path string -> bound interrupt node, spec §4.3
	root    *interrupt.Node            // root of the bound dispatcher tree, for ActivateAsyncRead
}

// New constructs a numeric-addressed Backend over space, with cat
// describing the public catalogue and layouts the backend-private
// address/bit-layout metadata keyed by path string.
func New(space *AddressSpace, cat *catalogue.Catalogue, layouts map[string]RegisterLayout, log *obslog.Logger) *Backend {
	return &Backend{
		State:   backend.NewState(log),
		space:   space,
		cat:     cat,
		layouts: layouts,
		log:     log,
		nodes:   make(map[string]*interrupt.Node),
	}
}

// BindInterrupt associates path's register with node, so a subsequent
// accessor request with catalogue.WaitForNewData set returns a
// push-backed InterruptTransport instead of erroring. root is the
// top-level dispatcher node this backend activates from
// ActivateAsyncRead; it is set on the first call and must be the same
// node (or an ancestor reachable from it) for every later call.
func (b *Backend) BindInterrupt(path regpath.Path, node *interrupt.Node) {
	b.nodes[path.String()] = node
	if b.root == nil {
		b.root = node
	}
}

// ActivateAsyncRead walks the bound interrupt dispatcher tree, writing
// the hardware enable mask and delivering the initial value to every
// node with at least one subscriber (spec §4.3). It is a no-op if no
// interrupt node has been bound.
func (b *Backend) ActivateAsyncRead(ctx context.Context) error {
	if b.root == nil {
		return nil
	}
	return b.root.Activate(ctx, func(*interrupt.Node) (version.Number, error) {
		return version.Next(), nil
	})
}

func (b *Backend) Open(ctx context.Context) error {
	b.MarkOpen()
	return nil
}

func (b *Backend) Close() error {
	b.MarkClosed()
	return nil
}

func (b *Backend) Catalogue() *catalogue.Catalogue { return b.cat }

func (b *Backend) layoutFor(path regpath.Path) (RegisterLayout, catalogue.Info, error) {
	info, ok := b.cat.Get(path)
	if !ok {
		return RegisterLayout{}, catalogue.Info{}, deverr.Logicf(path.String(), "no such register")
	}
	layout, ok := b.layouts[path.String()]
	if !ok {
		return RegisterLayout{}, catalogue.Info{}, deverr.Logicf(path.String(), "no address layout for register")
	}
	return layout, info, nil
}

func (b *Backend) rawTransport(layout RegisterLayout) *RawTransport {
	return NewRawTransport(b.space, layout)
}

// transportFor returns the accessor.Transport[uint32] appropriate for
// the requested modes: a push-backed InterruptTransport if
// catalogue.WaitForNewData was requested and path has a bound
// interrupt node (spec §4.3), otherwise the plain polled RawTransport.
func (b *Backend) transportFor(path regpath.Path, layout RegisterLayout, modes catalogue.AccessMode) (accessor.Transport[uint32], error) {
	raw := b.rawTransport(layout)
	if !modes.Has(catalogue.WaitForNewData) {
		return raw, nil
	}
	node, ok := b.nodes[path.String()]
	if !ok {
		return nil, deverr.Logicf(path.String(), "wait_for_new_data requested but no interrupt node is bound")
	}
	return NewInterruptTransport(raw, node, asyncQueueCapacity), nil
}

// asyncQueueCapacity bounds a WaitForNewData accessor's pending-update
// queue (spec §9's bounded multi-producer/single-consumer channel).
const asyncQueueCapacity = 4

// RawAccessorUint32 exposes the raw wire word directly, for callers
// (such as the logical backend's bit/bitRange plugins) that need
// untransformed access to a numeric-addressed register.
func (b *Backend) RawAccessorUint32(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[uint32], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	if !info.Supported.Has(catalogue.Raw) {
		return nil, deverr.Logicf(path.String(), "raw access not supported")
	}
	return accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, 1, modes, b.rawTransport(layout)), nil
}

// ScalarAccessorInt64 builds a 1x1 fixed-point/integral accessor.
func (b *Backend) ScalarAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	if modes.Has(catalogue.Raw) {
		return nil, deverr.Logicf(path.String(), "raw access requires the declared raw type, not int64")
	}
	if !info.Readable && !info.Writeable {
		return nil, deverr.Logicf(path.String(), "register is neither readable nor writeable")
	}
	transport, err := b.transportFor(path, layout, modes)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, 1, modes, transport)
	return accessor.NewTypeChanging[uint32, int64]("int64:"+path.String(), raw, FixedPointConverterInt64(layout.Channels[0])), nil
}

// ScalarAccessorFloat64 builds a 1x1 fixed-point-or-IEEE754 float64 accessor.
func (b *Backend) ScalarAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	layout, _, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	transport, err := b.transportFor(path, layout, modes)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, 1, modes, transport)
	conv := FixedPointConverterFloat64(layout.Channels[0])
	if layout.Channels[0].IEEE754 {
		conv = IEEE754ConverterFloat64()
	}
	return accessor.NewTypeChanging[uint32, float64]("float64:"+path.String(), raw, conv), nil
}

// OneDAccessorInt64 builds a 1xN accessor over an array register.
func (b *Backend) OneDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	nSamples := info.NElements
	transport, err := b.transportFor(path, layout, modes)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, nSamples, modes, transport)
	return accessor.NewTypeChanging[uint32, int64]("int64:"+path.String(), raw, FixedPointConverterInt64(layout.Channels[0])), nil
}

// OneDAccessorFloat64 builds a 1xN float64 accessor over an array register.
func (b *Backend) OneDAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	transport, err := b.transportFor(path, layout, modes)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, info.NElements, modes, transport)
	return accessor.NewTypeChanging[uint32, float64]("float64:"+path.String(), raw, FixedPointConverterFloat64(layout.Channels[0])), nil
}

// TwoDAccessorInt64 builds a channels x samples accessor over a
// memory-multiplexed register (spec §4.2's 2-D multiplexed registers).
func (b *Backend) TwoDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, info.NChannels, layout.NBlocks, modes, b.rawTransport(layout))
	ch0 := layout.Channels[0]
	return accessor.NewTypeChanging[uint32, int64]("int64:"+path.String(), raw, FixedPointConverterInt64(ch0)), nil
}

func (b *Backend) VoidAccessor(path regpath.Path) (accessor.Accessor[struct{}], error) {
	layout, _, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	transport := b.rawTransport(layout)
	voidTransport := voidAdapter{inner: transport}
	return accessor.NewLeaf[struct{}]("void:"+path.String(), path, 1, 1, catalogue.AccessMode(0), voidTransport), nil
}

// voidAdapter adapts a RawTransport to accessor.Transport[struct{}]
// for void (trigger-only) registers: writes pulse the underlying word
// with value 1 and discard reads.
type voidAdapter struct {
	inner *RawTransport
}

func (v voidAdapter) Read(ctx context.Context, buf *accessor.Buffer[struct{}]) error {
	return nil
}

func (v voidAdapter) Write(ctx context.Context, buf *accessor.Buffer[struct{}]) (bool, error) {
	wordBuf := accessor.NewBuffer[uint32](1, 1)
	wordBuf.SetChannel(0, []uint32{1})
	return v.inner.Write(ctx, wordBuf)
}

func (v voidAdapter) MayReplaceOther(other accessor.Transport[struct{}]) bool { return false }
