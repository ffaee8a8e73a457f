package device_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/dummy"
	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/device"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/usertype"
)

func init() {
	backend.Register("device-test-dummy", func(desc backend.Descriptor) (backend.Backend, error) {
		p := regpath.New("/reg")
		cat := catalogue.New()
		cat.Add(catalogue.Info{
			Path: p, NChannels: 1, NElements: 1,
			Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
			Readable:   true, Writeable: true,
		})
		layouts := map[string]numeric.RegisterLayout{
			"/reg": {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}}},
		}
		return dummy.New(map[int]int{0: 64}, cat, layouts, obslog.NewNop()), nil
	})
	device.RegisterAlias("my-dummy", "(device-test-dummy)")
}

func TestDeviceOpenResolvesRealDummySchemeWithoutTestRegistration(t *testing.T) {
	device.RegisterAlias("my-real-dummy", "(dummy?bars=0:64)")
	ctx := context.Background()
	d := device.New()
	require.NoError(t, d.Open(ctx, "my-real-dummy"))
	defer d.Close()

	cat, err := d.Catalogue()
	require.NoError(t, err)
	require.NotNil(t, cat)
}

func TestDeviceOpenReadWriteClose(t *testing.T) {
	ctx := context.Background()
	d := device.New()
	require.NoError(t, d.Open(ctx, "my-dummy"))
	defer d.Close()

	require.NoError(t, d.WriteScalarInt64(ctx, regpath.New("/reg"), 77))
	v, err := d.ReadScalarInt64(ctx, regpath.New("/reg"))
	require.NoError(t, err)
	require.Equal(t, int64(77), v)

	require.NoError(t, d.Close())
	require.NoError(t, d.Reopen(ctx))
	v, err = d.ReadScalarInt64(ctx, regpath.New("/reg"))
	require.NoError(t, err)
	require.Equal(t, int64(0), v, "reopen constructs a fresh dummy backend with zeroed memory")
}

func TestDeviceOpenUnknownAliasFails(t *testing.T) {
	d := device.New()
	require.Error(t, d.Open(context.Background(), "no-such-alias"))
}

func TestDeviceAccessorBeforeOpenFails(t *testing.T) {
	d := device.New()
	_, err := d.ScalarRegisterAccessorInt64(regpath.New("/reg"), catalogue.AccessMode(0))
	require.Error(t, err)
}
