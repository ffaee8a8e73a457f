package usertype_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/usertype"
)

func TestConvertRangeCheckedClamps(t *testing.T) {
	cases := []struct {
		name string
		in   usertype.Value
		to   usertype.Kind
		want int64
	}{
		{"overflow clamps to max", usertype.FromInt64(1000), usertype.Int8, math.MaxInt8},
		{"underflow clamps to min", usertype.FromInt64(-1000), usertype.Int8, math.MinInt8},
		{"unsigned clamps negative to zero", usertype.FromInt64(-5), usertype.Uint8, 0},
		{"exact fits unchanged", usertype.FromInt64(42), usertype.Int32, 42},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := usertype.ConvertRangeChecked(c.in, c.to)
			require.NoError(t, err)
			require.Equal(t, c.want, got.Int64())
		})
	}
}

func TestConvertRangeCheckedRoundsHalfAwayFromZero(t *testing.T) {
	got, err := usertype.ConvertRangeChecked(usertype.FromFloat64(2.5), usertype.Int32)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Int64())

	got, err = usertype.ConvertRangeChecked(usertype.FromFloat64(-2.5), usertype.Int32)
	require.NoError(t, err)
	require.Equal(t, int64(-3), got.Int64())
}

func TestStringRoundTrip(t *testing.T) {
	kinds := []usertype.Kind{usertype.Int8, usertype.Uint16, usertype.Int64, usertype.Float32, usertype.Float64, usertype.Boolean}
	values := []usertype.Value{
		usertype.FromInt64(-12),
		usertype.FromUint64(4096),
		usertype.FromInt64(-123456789),
		usertype.FromFloat32(3.5),
		usertype.FromFloat64(-1.25e10),
		usertype.FromBool(true),
	}
	for i, k := range kinds {
		s := usertype.FormatString(values[i])
		got, err := usertype.ParseString(s, k)
		require.NoError(t, err)
		require.Equal(t, usertype.FormatString(values[i]), usertype.FormatString(got))
	}
}

func TestKindPredicates(t *testing.T) {
	require.True(t, usertype.Int32.IsIntegral())
	require.True(t, usertype.Int32.IsSigned())
	require.False(t, usertype.Uint32.IsSigned())
	require.False(t, usertype.Float64.IsIntegral())
	require.False(t, usertype.String.IsIntegral())
}
