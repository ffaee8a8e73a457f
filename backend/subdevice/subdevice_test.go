package subdevice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend/subdevice"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
)

// fakeHost is an in-memory stand-in for a concrete backend's scalar
// int64 registers. A data register listed in indexed is banked like
// core_engine/devices/rtc.go's registers[128]byte array indexed by
// currentRegisterIndex: its value is kept per value of the named index
// register.
type fakeHost struct {
	regs    map[string]int64
	indexed map[string]string // data path -> index path
	banks   map[string]map[int64]int64
}

func newFakeHost() *fakeHost {
	return &fakeHost{regs: make(map[string]int64), indexed: make(map[string]string), banks: make(map[string]map[int64]int64)}
}

func (h *fakeHost) ScalarAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	key := path.String()
	return accessor.NewLeaf[int64]("fake:"+key, path, 1, 1, catalogue.AccessMode(0), &hostCell{h: h, key: key}), nil
}

type hostCell struct {
	h   *fakeHost
	key string
}

func (c *hostCell) Read(ctx context.Context, buf *accessor.Buffer[int64]) error {
	v := c.h.regs[c.key]
	if idx, ok := c.h.indexed[c.key]; ok {
		v = c.h.banks[c.key][c.h.regs[idx]]
	}
	buf.SetChannel(0, []int64{v})
	return nil
}

func (c *hostCell) Write(ctx context.Context, buf *accessor.Buffer[int64]) (bool, error) {
	v := buf.Channel(0)[0]
	if idx, ok := c.h.indexed[c.key]; ok {
		if c.h.banks[c.key] == nil {
			c.h.banks[c.key] = make(map[int64]int64)
		}
		c.h.banks[c.key][c.h.regs[idx]] = v
	}
	c.h.regs[c.key] = v
	return false, nil
}

func (c *hostCell) MayReplaceOther(other accessor.Transport[int64]) bool { return false }

func TestThreeRegisterTunnelRoutesThroughAddressAndData(t *testing.T) {
	host := newFakeHost()
	host.indexed["/rtc/data"] = "/rtc/index"
	cfg := subdevice.Config{
		Mode:        subdevice.ModeThreeRegister,
		AddressPath: regpath.New("/rtc/index"),
		DataPath:    regpath.New("/rtc/data"),
	}
	regs := []subdevice.Register{{Path: regpath.New("/rtc/seconds"), Offset: 0x00}, {Path: regpath.New("/rtc/hours"), Offset: 0x04}}
	b := subdevice.New(host, cfg, regs, obslog.NewNop())
	require.NoError(t, b.Open(context.Background()))

	seconds, err := b.ScalarAccessorInt64(regpath.New("/rtc/seconds"), catalogue.AccessMode(0))
	require.NoError(t, err)
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), seconds, 42))

	require.Equal(t, int64(0x00), host.regs["/rtc/index"])
	require.Equal(t, int64(42), host.regs["/rtc/data"])

	hours, err := b.ScalarAccessorInt64(regpath.New("/rtc/hours"), catalogue.AccessMode(0))
	require.NoError(t, err)
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), hours, 17))
	require.Equal(t, int64(0x04), host.regs["/rtc/index"])
	require.Equal(t, int64(17), host.regs["/rtc/data"])

	v, err := accessor.ReadScalar[int64](context.Background(), seconds)
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}

func TestThreeRegisterTunnelPollsStatusToQuiescent(t *testing.T) {
	host := newFakeHost()
	host.regs["/pit/status"] = 1
	cfg := subdevice.Config{
		Mode:        subdevice.ModeThreeRegister,
		AddressPath: regpath.New("/pit/index"),
		DataPath:    regpath.New("/pit/data"),
		StatusPath:  regpath.New("/pit/status"),
		HasStatus:   true,
	}
	regs := []subdevice.Register{{Path: regpath.New("/pit/counter"), Offset: 0}}
	b := subdevice.New(host, cfg, regs, obslog.NewNop())
	require.NoError(t, b.Open(context.Background()))

	go func() {
		time.Sleep(2 * time.Millisecond)
		host.regs["/pit/status"] = 0
	}()

	counter, err := b.ScalarAccessorInt64(regpath.New("/pit/counter"), catalogue.AccessMode(0))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, accessor.WriteScalar[int64](ctx, counter, 7))
	require.Equal(t, int64(7), host.regs["/pit/data"])
}

func TestTwoRegisterTunnelSleepsInsteadOfPolling(t *testing.T) {
	host := newFakeHost()
	cfg := subdevice.Config{
		Mode:          subdevice.ModeTwoRegister,
		AddressPath:   regpath.New("/dev/addr"),
		DataPath:      regpath.New("/dev/data"),
		SleepInterval: time.Millisecond,
	}
	regs := []subdevice.Register{{Path: regpath.New("/dev/reg0"), Offset: 3}}
	b := subdevice.New(host, cfg, regs, obslog.NewNop())
	require.NoError(t, b.Open(context.Background()))

	reg0, err := b.ScalarAccessorInt64(regpath.New("/dev/reg0"), catalogue.AccessMode(0))
	require.NoError(t, err)
	start := time.Now()
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), reg0, 9))
	require.GreaterOrEqual(t, time.Since(start), time.Millisecond)
	require.Equal(t, int64(9), host.regs["/dev/data"])
}

func TestAreaModeMapsDirectlyToHostRegister(t *testing.T) {
	host := newFakeHost()
	cfg := subdevice.Config{Mode: subdevice.ModeArea, AreaPath: regpath.New("/area/whole")}
	regs := []subdevice.Register{{Path: regpath.New("/area/sub"), Offset: 0}}
	b := subdevice.New(host, cfg, regs, obslog.NewNop())
	require.NoError(t, b.Open(context.Background()))

	sub, err := b.ScalarAccessorInt64(regpath.New("/area/sub"), catalogue.AccessMode(0))
	require.NoError(t, err)
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), sub, 123))
	require.Equal(t, int64(123), host.regs["/area/whole"])

	v, err := accessor.ReadScalar[int64](context.Background(), sub)
	require.NoError(t, err)
	require.Equal(t, int64(123), v)
}

func TestRawAccessRejected(t *testing.T) {
	host := newFakeHost()
	cfg := subdevice.Config{Mode: subdevice.ModeArea, AreaPath: regpath.New("/area/whole")}
	regs := []subdevice.Register{{Path: regpath.New("/area/sub"), Offset: 0}}
	b := subdevice.New(host, cfg, regs, obslog.NewNop())
	require.NoError(t, b.Open(context.Background()))

	_, err := b.ScalarAccessorInt64(regpath.New("/area/sub"), catalogue.Raw)
	require.Error(t, err)
}
