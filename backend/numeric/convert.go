package numeric

import (
	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/numconv"
	"github.com/vdatab/devaccess/usertype"
)

// FixedPointConverterInt64 builds the raw<->cooked converter for an
// integral fixed-point channel (spec §4.2's fixed-point conversion,
// nFractionalBits==0 degenerating to a plain signed/unsigned cast).
func FixedPointConverterInt64(ch ChannelLayout) accessor.Converter[uint32, int64] {
	layout := numconv.FixedPointLayout{Width: ch.Width, FractionalBits: ch.NFractionalBits, Signed: ch.Signed}
	return accessor.Converter[uint32, int64]{
		ToUser: func(raw uint32) (int64, error) {
			v, err := layout.ToUserType(uint64(raw), usertype.Int64)
			if err != nil {
				return 0, err
			}
			return v.Int64(), nil
		},
		ToRaw: func(v int64) (uint32, error) {
			return uint32(layout.ToRaw(usertype.FromInt64(v))), nil
		},
	}
}

// FixedPointConverterFloat64 builds the raw<->cooked converter for a
// fixed-point channel exposed as float64.
func FixedPointConverterFloat64(ch ChannelLayout) accessor.Converter[uint32, float64] {
	layout := numconv.FixedPointLayout{Width: ch.Width, FractionalBits: ch.NFractionalBits, Signed: ch.Signed}
	return accessor.Converter[uint32, float64]{
		ToUser: func(raw uint32) (float64, error) {
			return layout.FromRaw(uint64(raw)), nil
		},
		ToRaw: func(v float64) (uint32, error) {
			return uint32(layout.ToRaw(usertype.FromFloat64(v))), nil
		},
	}
}

// IEEE754ConverterFloat64 builds the raw<->cooked converter for a
// channel the map file declares IEEE754.
func IEEE754ConverterFloat64() accessor.Converter[uint32, float64] {
	return accessor.Converter[uint32, float64]{
		ToUser: func(raw uint32) (float64, error) {
			v, err := numconv.IEEE754FromRaw(uint64(raw), usertype.Float64)
			if err != nil {
				return 0, err
			}
			return v.Float64(), nil
		},
		ToRaw: func(v float64) (uint32, error) {
			return uint32(numconv.IEEE754ToRaw(usertype.FromFloat64(v))), nil
		},
	}
}
