package numeric_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/backend/numeric/interrupt"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/usertype"
	"github.com/vdatab/devaccess/version"
)

func TestScalarAccessorInt64RoundTrips(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 16})
	cat := catalogue.New()
	p := regpath.New("/scalar")
	cat.Add(catalogue.Info{
		Path: p, NChannels: 1, NElements: 1,
		Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
		Readable:   true, Writeable: true,
	})
	layouts := map[string]numeric.RegisterLayout{
		"/scalar": {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}}},
	}
	b := numeric.New(space, cat, layouts, nil)
	require.NoError(t, b.Open(context.Background()))

	reg, err := b.ScalarAccessorInt64(p, catalogue.AccessMode(0))
	require.NoError(t, err)
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), reg, -7))
	v, err := accessor.ReadScalar[int64](context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, int64(-7), v)
}

func TestScalarAccessorRejectsUnknownRegister(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 16})
	b := numeric.New(space, catalogue.New(), map[string]numeric.RegisterLayout{}, nil)
	require.NoError(t, b.Open(context.Background()))

	_, err := b.ScalarAccessorInt64(regpath.New("/nope"), catalogue.AccessMode(0))
	require.Error(t, err)
}

func TestRawAccessorUint32RequiresSupportedRawMode(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 16})
	cat := catalogue.New()
	p := regpath.New("/raw")
	cat.Add(catalogue.Info{
		Path: p, NChannels: 1, NElements: 1,
		Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
		Readable:   true, Writeable: true,
		// Supported deliberately omits catalogue.Raw
	})
	layouts := map[string]numeric.RegisterLayout{
		"/raw": {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}}},
	}
	b := numeric.New(space, cat, layouts, nil)
	require.NoError(t, b.Open(context.Background()))

	_, err := b.RawAccessorUint32(p, catalogue.AccessMode(0))
	require.Error(t, err)
}

func TestTwoDAccessorInt64DecodesMultiplexedBlock(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 64})
	cat := catalogue.New()
	p := regpath.New("/mux")
	cat.Add(catalogue.Info{
		Path: p, NChannels: 2, NElements: 3, NDimensions: 2,
		Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
		Readable:   true, Writeable: true,
	})
	layouts := map[string]numeric.RegisterLayout{
		"/mux": {Bar: 0, ByteAddress: 0, ByteSize: 24, NBlocks: 3,
			Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}, {Width: 32, Signed: true}}},
	}
	b := numeric.New(space, cat, layouts, nil)
	require.NoError(t, b.Open(context.Background()))

	reg, err := b.TwoDAccessorInt64(p, catalogue.AccessMode(0))
	require.NoError(t, err)
	require.Equal(t, 2, reg.NChannels())
	require.Equal(t, 3, reg.NSamples())

	reg.SetChannel(0, []int64{1, 2, 3})
	reg.SetChannel(1, []int64{4, 5, 6})
	require.NoError(t, accessor.WriteOneShot(context.Background(), reg))

	reread, err := b.TwoDAccessorInt64(p, catalogue.AccessMode(0))
	require.NoError(t, err)
	values, err := accessor.ReadTwoD[int64](context.Background(), reread)
	require.NoError(t, err)
	require.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}}, values)
}

func TestScalarAccessorInt64WaitForNewDataReceivesPushedUpdate(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 16})
	cat := catalogue.New()
	p := regpath.New("/async")
	cat.Add(catalogue.Info{
		Path: p, NChannels: 1, NElements: 1,
		Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
		Readable:   true,
		Supported:  catalogue.WaitForNewData,
	})
	layouts := map[string]numeric.RegisterLayout{
		"/async": {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}}},
	}
	b := numeric.New(space, cat, layouts, nil)
	node, err := interrupt.NewNode(interrupt.NodeConfig{}, nil)
	require.NoError(t, err)
	b.BindInterrupt(p, node)
	require.NoError(t, b.Open(context.Background()))

	reg, err := b.ScalarAccessorInt64(p, catalogue.WaitForNewData)
	require.NoError(t, err)

	require.NoError(t, space.Write(0, 0, 4, []byte{42, 0, 0, 0}))
	require.NoError(t, node.Trigger(version.Next()))

	v, err := accessor.ReadScalar[int64](context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}

func TestScalarAccessorInt64WaitForNewDataWithoutBoundNodeErrors(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 16})
	cat := catalogue.New()
	p := regpath.New("/async")
	cat.Add(catalogue.Info{
		Path: p, NChannels: 1, NElements: 1,
		Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
		Readable:   true,
	})
	layouts := map[string]numeric.RegisterLayout{
		"/async": {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}}},
	}
	b := numeric.New(space, cat, layouts, nil)
	require.NoError(t, b.Open(context.Background()))

	_, err := b.ScalarAccessorInt64(p, catalogue.WaitForNewData)
	require.Error(t, err)
}

func TestVoidAccessorWritePulsesUnderlyingWord(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 16})
	cat := catalogue.New()
	p := regpath.New("/trigger")
	cat.Add(catalogue.Info{Path: p, NChannels: 1, NElements: 1, Writeable: true})
	layouts := map[string]numeric.RegisterLayout{
		"/trigger": {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32}}},
	}
	b := numeric.New(space, cat, layouts, nil)
	require.NoError(t, b.Open(context.Background()))

	trig, err := b.VoidAccessor(p)
	require.NoError(t, err)
	require.NoError(t, accessor.WriteOneShot(context.Background(), trig))

	raw := make([]byte, 4)
	require.NoError(t, space.Read(0, 0, 4, raw))
	require.Equal(t, byte(1), raw[0])
}
