package transfergroup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfergroup"
)

func layout32(byteAddress int) numeric.RegisterLayout {
	return numeric.RegisterLayout{
		Bar: 0, ByteAddress: byteAddress, ByteSize: 4,
		Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}},
	}
}

// TestGroupMergesAdjacentRegistersIntoOneRawRead mirrors spec.md's
// worked example: three adjacent 32-bit registers at BAR 0 offsets
// 0x20, 0x24, 0x28 read as one [0x20,0x2C) raw transfer.
func TestGroupMergesAdjacentRegistersIntoOneRawRead(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 0x100})
	require.NoError(t, space.Write(0, 0x20, []byte{42, 0, 0, 0}))
	require.NoError(t, space.Write(0, 0x24, []byte{120, 0, 0, 0}))
	require.NoError(t, space.Write(0, 0x28, []byte{84, 0, 0, 0}))

	pa, pb, pc := regpath.New("/a"), regpath.New("/b"), regpath.New("/c")
	g := transfergroup.New(space)
	g.Add(transfergroup.Member{Path: pa, Layout: layout32(0x20)})
	g.Add(transfergroup.Member{Path: pb, Layout: layout32(0x24)})
	g.Add(transfergroup.Member{Path: pc, Layout: layout32(0x28)})
	require.NoError(t, g.Finalize())

	require.NoError(t, g.Read(context.Background()))

	va, _, ok := g.Value(pa)
	require.True(t, ok)
	require.Equal(t, int64(42), va)
	vb, _, ok := g.Value(pb)
	require.True(t, ok)
	require.Equal(t, int64(120), vb)
	vc, _, ok := g.Value(pc)
	require.True(t, ok)
	require.Equal(t, int64(84), vc)
}

// TestGroupWriteThenIndependentReadRoundTrips writes 42,120,84 through
// the group and confirms independent AddressSpace reads see them.
func TestGroupWriteThenIndependentReadRoundTrips(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 0x100})

	pa, pb, pc := regpath.New("/a"), regpath.New("/b"), regpath.New("/c")
	g := transfergroup.New(space)
	g.Add(transfergroup.Member{Path: pa, Layout: layout32(0x20)})
	g.Add(transfergroup.Member{Path: pb, Layout: layout32(0x24)})
	g.Add(transfergroup.Member{Path: pc, Layout: layout32(0x28)})
	require.NoError(t, g.Finalize())

	require.NoError(t, g.Write(context.Background(), map[string]int64{
		"/a": 42, "/b": 120, "/c": 84,
	}))

	raw := make([]byte, 4)
	require.NoError(t, space.Read(0, 0x20, 4, raw))
	require.Equal(t, byte(42), raw[0])
	require.NoError(t, space.Read(0, 0x24, 4, raw))
	require.Equal(t, byte(120), raw[0])
	require.NoError(t, space.Read(0, 0x28, 4, raw))
	require.Equal(t, byte(84), raw[0])
}

// TestGroupRejectsOverlappingMembers asserts Finalize errors when two
// members cover overlapping (non-adjacent, non-identical) ranges.
func TestGroupRejectsOverlappingMembers(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 0x100})

	g := transfergroup.New(space)
	g.Add(transfergroup.Member{Path: regpath.New("/a"), Layout: layout32(0x20)})
	g.Add(transfergroup.Member{Path: regpath.New("/b"), Layout: layout32(0x22)})
	require.Error(t, g.Finalize())
}

// TestGroupAddAfterFinalizeRepartitions asserts a member added post-
// finalize is picked up by the next Finalize/Read.
func TestGroupAddAfterFinalizeRepartitions(t *testing.T) {
	space := numeric.NewAddressSpace(map[int]int{0: 0x100})
	require.NoError(t, space.Write(0, 0x20, []byte{1, 0, 0, 0}))
	require.NoError(t, space.Write(0, 0x24, []byte{2, 0, 0, 0}))

	pa, pb := regpath.New("/a"), regpath.New("/b")
	g := transfergroup.New(space)
	g.Add(transfergroup.Member{Path: pa, Layout: layout32(0x20)})
	require.NoError(t, g.Finalize())
	require.NoError(t, g.Read(context.Background()))

	g.Add(transfergroup.Member{Path: pb, Layout: layout32(0x24)})
	require.NoError(t, g.Read(context.Background()))

	vb, _, ok := g.Value(pb)
	require.True(t, ok)
	require.Equal(t, int64(2), vb)
}
