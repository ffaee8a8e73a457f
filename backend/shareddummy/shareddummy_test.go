package shareddummy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/backend/shareddummy"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/usertype"
)

func scalarRegister(path string) (*catalogue.Catalogue, map[string]numeric.RegisterLayout) {
	p := regpath.New(path)
	cat := catalogue.New()
	cat.Add(catalogue.Info{
		Path:       p,
		NChannels:  1,
		NElements:  1,
		Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
		Readable:   true,
		Writeable:  true,
	})
	layouts := map[string]numeric.RegisterLayout{
		path: {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}}},
	}
	return cat, layouts
}

func TestSharedDummyTwoAttachesObserveSameSegment(t *testing.T) {
	dir := t.TempDir()
	key := shareddummy.Key{InstanceID: "inst-1", MapFilePath: "/etc/devaccess/test.map", User: "tester"}
	cat, layouts := scalarRegister("/shared/reg")

	first, err := shareddummy.Open(dir, key, map[int]int{0: 16}, cat, layouts, obslog.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Open(context.Background()))

	reg1, err := first.ScalarAccessorInt64(regpath.New("/shared/reg"), catalogue.AccessMode(0))
	require.NoError(t, err)
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), reg1, 314))

	second, err := shareddummy.Open(dir, key, map[int]int{0: 16}, cat, layouts, obslog.NewNop())
	require.NoError(t, err)
	require.NoError(t, second.Open(context.Background()))
	defer second.Close()
	defer first.Close()

	reg2, err := second.ScalarAccessorInt64(regpath.New("/shared/reg"), catalogue.AccessMode(0))
	require.NoError(t, err)
	v, err := accessor.ReadScalar[int64](context.Background(), reg2)
	require.NoError(t, err)
	require.Equal(t, int64(314), v)
}

func TestSharedDummyDifferentKeysAreIsolated(t *testing.T) {
	dir := t.TempDir()
	cat, layouts := scalarRegister("/shared/reg")

	a, err := shareddummy.Open(dir, shareddummy.Key{InstanceID: "a", MapFilePath: "/x.map", User: "u"}, map[int]int{0: 16}, cat, layouts, obslog.NewNop())
	require.NoError(t, err)
	defer a.Close()
	b, err := shareddummy.Open(dir, shareddummy.Key{InstanceID: "b", MapFilePath: "/x.map", User: "u"}, map[int]int{0: 16}, cat, layouts, obslog.NewNop())
	require.NoError(t, err)
	defer b.Close()

	regA, err := a.ScalarAccessorInt64(regpath.New("/shared/reg"), catalogue.AccessMode(0))
	require.NoError(t, err)
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), regA, 7))

	regB, err := b.ScalarAccessorInt64(regpath.New("/shared/reg"), catalogue.AccessMode(0))
	require.NoError(t, err)
	v, err := accessor.ReadScalar[int64](context.Background(), regB)
	require.NoError(t, err)
	require.Equal(t, int64(0), v, "distinct instance IDs must not share a segment")
}
