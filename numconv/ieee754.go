package numconv

import (
	"math"

	"github.com/vdatab/devaccess/usertype"
)

// IEEE754ToRaw reinterprets a float64 as its binary32 bit pattern,
// widened into a uint64, for registers whose map-file bit
// interpretation declares IEEE754 (spec §4.2/§6).
func IEEE754ToRaw(v usertype.Value) uint64 {
	return uint64(math.Float32bits(float32(v.Float64())))
}

// IEEE754FromRaw reinterprets the low 32 bits of raw as binary32 and
// converts the result into the requested user type, rounding to
// nearest and range-clamping for integer targets per spec §4.2.
func IEEE754FromRaw(raw uint64, to usertype.Kind) (usertype.Value, error) {
	f := math.Float32frombits(uint32(raw))
	return usertype.ConvertRangeChecked(usertype.FromFloat32(f), to)
}
