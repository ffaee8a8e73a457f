package plugins_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend/logical/plugins"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/regpath"
)

type memTransportF64 struct{ value float64 }

func (m *memTransportF64) Read(ctx context.Context, buf *accessor.Buffer[float64]) error {
	buf.Channel(0)[0] = m.value
	return nil
}
func (m *memTransportF64) Write(ctx context.Context, buf *accessor.Buffer[float64]) (bool, error) {
	m.value = buf.Channel(0)[0]
	return false, nil
}
func (m *memTransportF64) MayReplaceOther(other accessor.Transport[float64]) bool { return false }

type memTransportU32 struct{ value uint32 }

func (m *memTransportU32) Read(ctx context.Context, buf *accessor.Buffer[uint32]) error {
	buf.Channel(0)[0] = m.value
	return nil
}
func (m *memTransportU32) Write(ctx context.Context, buf *accessor.Buffer[uint32]) (bool, error) {
	m.value = buf.Channel(0)[0]
	return false, nil
}
func (m *memTransportU32) MayReplaceOther(other accessor.Transport[uint32]) bool { return false }

func newF64Leaf(path string, value float64) accessor.Accessor[float64] {
	return accessor.NewLeaf[float64]("f64:"+path, regpath.New(path), 1, 1, catalogue.AccessMode(0), &memTransportF64{value: value})
}

func newU32Leaf(path string, value uint32) accessor.Accessor[uint32] {
	return accessor.NewLeaf[uint32]("u32:"+path, regpath.New(path), 1, 1, catalogue.AccessMode(0), &memTransportU32{value: value})
}

func TestMultiplyScalesOnReadAndInvertsOnWrite(t *testing.T) {
	ctx := context.Background()
	target := newF64Leaf("/m", 10)
	scaled := plugins.Multiply("scaled", target, 2)

	v, err := accessor.ReadScalar[float64](ctx, scaled)
	require.NoError(t, err)
	require.Equal(t, 20.0, v)

	require.NoError(t, accessor.WriteScalar[float64](ctx, scaled, 50))
	raw, err := accessor.ReadScalar[float64](ctx, target)
	require.NoError(t, err)
	require.Equal(t, 25.0, raw)
}

func TestForceReadOnlyRejectsWrites(t *testing.T) {
	ctx := context.Background()
	wrapped := plugins.NewForceReadOnly[float64](newF64Leaf("/ro", 1))
	require.Error(t, accessor.WriteScalar[float64](ctx, wrapped, 2))
}

func TestBitRangeExtractsSignedField(t *testing.T) {
	ctx := context.Background()
	target := newU32Leaf("/bits", 0xFFFFFFF0) // low nibble clear, rest set
	br, err := plugins.NewBitRange("bits:signed", target, 0, 4, true)
	require.NoError(t, err)

	v, err := accessor.ReadScalar[int64](ctx, br)
	require.NoError(t, err)
	require.Equal(t, int64(0), v)
}

func TestBitRangeWritePreservesOtherBits(t *testing.T) {
	ctx := context.Background()
	target := newU32Leaf("/bits2", 0x000000F0)
	br, err := plugins.NewBitRange("bits:write", target, 0, 4, false)
	require.NoError(t, err)

	br.SetChannel(0, []int64{0xA})
	require.NoError(t, br.PreWrite(ctx, 0))
	_, err = br.WriteTransfer(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, br.PostWrite(ctx, 0))

	raw, err := accessor.ReadScalar[uint32](ctx, target)
	require.NoError(t, err)
	require.Equal(t, uint32(0xFA), raw)
}

func TestBitRangeRejectsInvalidWidth(t *testing.T) {
	_, err := plugins.NewBitRange("bad", newU32Leaf("/x", 0), 0, 0, false)
	require.Error(t, err)
}

func TestMathEvaluatesFormulaOnRead(t *testing.T) {
	ctx := context.Background()
	target := newF64Leaf("/x", 3)
	param := newF64Leaf("/k", 4)
	m, err := plugins.NewMath("math", target, "x + k", "", []plugins.MathParameter{{Name: "k", Accessor: param}})
	require.NoError(t, err)

	v, err := accessor.ReadScalar[float64](ctx, m)
	require.NoError(t, err)
	require.Equal(t, 7.0, v)
}

func TestMathWithoutInverseRejectsWrites(t *testing.T) {
	ctx := context.Background()
	m, err := plugins.NewMath("math-ro", newF64Leaf("/x", 1), "x * 2", "", nil)
	require.NoError(t, err)
	require.Error(t, accessor.WriteScalar[float64](ctx, m, 4))
}

func TestMathInverseFormulaWrites(t *testing.T) {
	ctx := context.Background()
	target := newF64Leaf("/x", 0)
	m, err := plugins.NewMath("math-inv", target, "x * 2", "y / 2", nil)
	require.NoError(t, err)

	require.NoError(t, accessor.WriteScalar[float64](ctx, m, 10))
	raw, err := accessor.ReadScalar[float64](ctx, target)
	require.NoError(t, err)
	require.Equal(t, 5.0, raw)
}

func TestMathRejectsWriteUntilPushParameterDelivered(t *testing.T) {
	ctx := context.Background()
	target := newF64Leaf("/x", 0)
	param := newF64Leaf("/push", 0)
	m, err := plugins.NewMath("math-push", target, "x + k", "y - k", []plugins.MathParameter{{Name: "k", Accessor: param, Push: true}})
	require.NoError(t, err)

	require.Error(t, accessor.WriteScalar[float64](ctx, m, 1))
	m.NotePushDelivered("k")
	require.NoError(t, accessor.WriteScalar[float64](ctx, m, 1))
}

func TestMonostableTriggerPulsesRestValueAfterWrite(t *testing.T) {
	ctx := context.Background()
	target := newF64Leaf("/pulse", 0)
	trig := plugins.NewMonostableTrigger[float64](target, 0, true)

	require.NoError(t, accessor.WriteScalar[float64](ctx, trig, 1))
	raw, err := accessor.ReadScalar[float64](ctx, target)
	require.NoError(t, err)
	require.Equal(t, 0.0, raw)
}

func TestMonostableTriggerRejectsReads(t *testing.T) {
	ctx := context.Background()
	trig := plugins.NewMonostableTrigger[float64](newF64Leaf("/pulse2", 0), 0, false)
	_, err := accessor.ReadScalar[float64](ctx, trig)
	require.Error(t, err)
}

func TestApplyTagModifierSetReplacesAllTags(t *testing.T) {
	existing := map[string]struct{}{"adc": {}}
	out := plugins.ApplyTagModifier(existing, plugins.TagOperation{Set: []string{"dac"}})
	require.Equal(t, map[string]struct{}{"dac": {}}, out)
}

func TestApplyTagModifierAddAndRemove(t *testing.T) {
	existing := map[string]struct{}{"adc": {}, "stale": {}}
	out := plugins.ApplyTagModifier(existing, plugins.TagOperation{Add: []string{"fresh"}, Remove: []string{"stale"}})
	require.Equal(t, map[string]struct{}{"adc": {}, "fresh": {}}, out)
}

func TestApplyTypeHintRewritesDescriptor(t *testing.T) {
	desc := catalogue.DataDescriptor{Fundamental: catalogue.Numeric, IsIntegral: true, IsSigned: true}
	out := plugins.ApplyTypeHint(desc, catalogue.Numeric, false, false)
	require.False(t, out.IsIntegral)
	require.False(t, out.IsSigned)
}
