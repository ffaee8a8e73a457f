// Package plugins implements the spec §4.4 logical-mapping plugins:
// math, multiply, forceReadOnly, bitRange, monostableTrigger,
// tagModifier, and typeHint. math, multiply, forceReadOnly, bitRange
// and monostableTrigger are decorators over an accessor.Accessor;
// tagModifier and typeHint are functions over catalogue data. The
// decorators are grounded on the Design Notes' "decorator chains
// ... express as trait objects layered by composition" (spec §9) —
// the same composition style as accessor.Decorator/TypeChanging, one
// per mapping-document transformation.
package plugins

import (
	"github.com/vdatab/devaccess/accessor"
)

// Multiply wraps a target Accessor[float64] and scales every element
// by factor on read, and by 1/factor on write — bidirectional and
// composable with itself, per spec §4.4.
func Multiply(id string, target accessor.Accessor[float64], factor float64) accessor.Accessor[float64] {
	return accessor.NewTypeChanging[float64, float64](id, target, accessor.Converter[float64, float64]{
		ToUser: func(v float64) (float64, error) { return v * factor, nil },
		ToRaw:  func(v float64) (float64, error) { return v / factor, nil },
	})
}
