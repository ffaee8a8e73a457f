package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/regpath"
)

func TestParseDescriptorExtractsSchemeAndParameters(t *testing.T) {
	d, err := backend.ParseDescriptor("(numeric?dev=/dev/mydevice&map=mymap.xml)")
	require.NoError(t, err)
	require.Equal(t, "numeric", d.Scheme)

	v, ok := d.Parameter("dev")
	require.True(t, ok)
	require.Equal(t, "/dev/mydevice", v)

	v, ok = d.Parameter("map")
	require.True(t, ok)
	require.Equal(t, "mymap.xml", v)
}

func TestParseDescriptorWithoutQuery(t *testing.T) {
	d, err := backend.ParseDescriptor("(dummy)")
	require.NoError(t, err)
	require.Equal(t, "dummy", d.Scheme)
	require.Empty(t, d.Parameters)
}

func TestParseDescriptorRejectsMissingParentheses(t *testing.T) {
	_, err := backend.ParseDescriptor("numeric?dev=/dev/mydevice")
	require.Error(t, err)
}

func TestParseDescriptorRejectsEmptyScheme(t *testing.T) {
	_, err := backend.ParseDescriptor("(?dev=/dev/mydevice)")
	require.Error(t, err)
}

type stubBackend struct{ *backend.State }

func newStubBackend() *stubBackend { return &stubBackend{State: backend.NewState(nil)} }

func (b *stubBackend) Open(ctx context.Context) error          { b.MarkOpen(); return nil }
func (b *stubBackend) Close() error                            { b.MarkClosed(); return nil }
func (b *stubBackend) Catalogue() *catalogue.Catalogue         { return catalogue.New() }
func (b *stubBackend) ActivateAsyncRead(ctx context.Context) error { return nil }
func (b *stubBackend) ScalarAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	return nil, nil
}
func (b *stubBackend) ScalarAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	return nil, nil
}
func (b *stubBackend) OneDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	return nil, nil
}
func (b *stubBackend) OneDAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	return nil, nil
}
func (b *stubBackend) TwoDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	return nil, nil
}
func (b *stubBackend) VoidAccessor(path regpath.Path) (accessor.Accessor[struct{}], error) {
	return nil, nil
}

func TestRegisterAndCreateRoundTrips(t *testing.T) {
	backend.Register("backend-test-stub", func(desc backend.Descriptor) (backend.Backend, error) {
		return newStubBackend(), nil
	})

	require.Contains(t, backend.Schemes(), "backend-test-stub")

	b, err := backend.Create(backend.Descriptor{Scheme: "backend-test-stub"})
	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestCreateUnknownSchemeFails(t *testing.T) {
	_, err := backend.Create(backend.Descriptor{Scheme: "backend-test-does-not-exist"})
	require.Error(t, err)
}
