package rebot

import (
	"context"
	"time"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
)

// Backend is the rebot backend of spec §4.2/§6: register accessors
// identical in shape to backend/numeric's, but transferred over a
// Client instead of a local AddressSpace.
type Backend struct {
	*backend.State
	addr    string
	timeout time.Duration
	cat     *catalogue.Catalogue
	layouts map[string]numeric.RegisterLayout
	log     *obslog.Logger
	client  *Client
}

// New constructs a rebot Backend that will dial addr on Open.
func New(addr string, timeout time.Duration, cat *catalogue.Catalogue, layouts map[string]numeric.RegisterLayout, log *obslog.Logger) *Backend {
	return &Backend{State: backend.NewState(log), addr: addr, timeout: timeout, cat: cat, layouts: layouts, log: log}
}

func (b *Backend) Open(ctx context.Context) error {
	client, err := Dial(b.addr, b.timeout, func(err error) {
		b.SetException("rebot connection lost: " + err.Error())
	})
	if err != nil {
		return err
	}
	b.client = client
	b.MarkOpen()
	return nil
}

func (b *Backend) Close() error {
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	b.MarkClosed()
	return nil
}

func (b *Backend) Catalogue() *catalogue.Catalogue { return b.cat }

// ActivateAsyncRead is a no-op: rebot registers are transferred over
// the wire protocol on demand, with no push-capable interrupt source.
func (b *Backend) ActivateAsyncRead(ctx context.Context) error { return nil }

func (b *Backend) layoutFor(path regpath.Path) (numeric.RegisterLayout, catalogue.Info, error) {
	info, ok := b.cat.Get(path)
	if !ok {
		return numeric.RegisterLayout{}, catalogue.Info{}, deverr.Logicf(path.String(), "no such register")
	}
	layout, ok := b.layouts[path.String()]
	if !ok {
		return numeric.RegisterLayout{}, catalogue.Info{}, deverr.Logicf(path.String(), "no address layout for register")
	}
	return layout, info, nil
}

func (b *Backend) rawTransport(layout numeric.RegisterLayout) *wireTransport {
	return &wireTransport{client: b.client, layout: layout}
}

// ScalarAccessorInt64 builds a 1x1 fixed-point/integral accessor
// reached over the wire.
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
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, 1, modes, b.rawTransport(layout))
	return accessor.NewTypeChanging[uint32, int64]("int64:"+path.String(), raw, numeric.FixedPointConverterInt64(layout.Channels[0])), nil
}

// ScalarAccessorFloat64 builds a 1x1 fixed-point-or-IEEE754 float64
// accessor reached over the wire.
func (b *Backend) ScalarAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	layout, _, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, 1, modes, b.rawTransport(layout))
	conv := numeric.FixedPointConverterFloat64(layout.Channels[0])
	if layout.Channels[0].IEEE754 {
		conv = numeric.IEEE754ConverterFloat64()
	}
	return accessor.NewTypeChanging[uint32, float64]("float64:"+path.String(), raw, conv), nil
}

// OneDAccessorInt64 builds a 1xN accessor over an array register.
func (b *Backend) OneDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, info.NElements, modes, b.rawTransport(layout))
	return accessor.NewTypeChanging[uint32, int64]("int64:"+path.String(), raw, numeric.FixedPointConverterInt64(layout.Channels[0])), nil
}

// OneDAccessorFloat64 builds a 1xN fixed-point-or-IEEE754 float64
// accessor over an array register reached over the wire.
func (b *Backend) OneDAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, 1, info.NElements, modes, b.rawTransport(layout))
	conv := numeric.FixedPointConverterFloat64(layout.Channels[0])
	if layout.Channels[0].IEEE754 {
		conv = numeric.IEEE754ConverterFloat64()
	}
	return accessor.NewTypeChanging[uint32, float64]("float64:"+path.String(), raw, conv), nil
}

// TwoDAccessorInt64 builds a channels x samples accessor over a
// memory-multiplexed register reached over the wire.
func (b *Backend) TwoDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	layout, info, err := b.layoutFor(path)
	if err != nil {
		return nil, err
	}
	raw := accessor.NewLeaf[uint32]("raw:"+path.String(), path, info.NChannels, layout.NBlocks, modes, b.rawTransport(layout))
	return accessor.NewTypeChanging[uint32, int64]("int64:"+path.String(), raw, numeric.FixedPointConverterInt64(layout.Channels[0])), nil
}

func (b *Backend) VoidAccessor(path regpath.Path) (accessor.Accessor[struct{}], error) {
	return nil, deverr.Logicf(path.String(), "void accessors are not supported through the rebot backend")
}

// wireTransport implements accessor.Transport[uint32] over one
// register's (bar, byteAddress, byteSize), via the rebot wire protocol.
type wireTransport struct {
	client *Client
	layout numeric.RegisterLayout
}

func (t *wireTransport) nWords() int { return t.layout.ByteSize / 4 }

func (t *wireTransport) Read(ctx context.Context, buf *accessor.Buffer[uint32]) error {
	words, err := t.client.ReadWords(uint32(t.layout.Bar), uint32(t.layout.ByteAddress), t.nWords())
	if err != nil {
		return deverr.Wrap("", err, "rebot read failed")
	}
	for ch := 0; ch < buf.NChannels(); ch++ {
		copy(buf.Channel(ch), words[ch*buf.NSamples():(ch+1)*buf.NSamples()])
	}
	return nil
}

func (t *wireTransport) Write(ctx context.Context, buf *accessor.Buffer[uint32]) (bool, error) {
	words := make([]uint32, 0, t.nWords())
	for ch := 0; ch < buf.NChannels(); ch++ {
		words = append(words, buf.Channel(ch)...)
	}
	if err := t.client.WriteWords(uint32(t.layout.Bar), uint32(t.layout.ByteAddress), words); err != nil {
		return false, deverr.Wrap("", err, "rebot write failed")
	}
	return false, nil
}

func (t *wireTransport) MayReplaceOther(other accessor.Transport[uint32]) bool {
	o, ok := other.(*wireTransport)
	if !ok {
		return false
	}
	return t.client == o.client && t.layout.Bar == o.layout.Bar &&
		t.layout.ByteAddress == o.layout.ByteAddress && t.layout.ByteSize == o.layout.ByteSize
}
