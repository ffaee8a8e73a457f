package logical

import (
	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend/logical/plugins"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
)

func multiplyPlugin(id string, target accessor.Accessor[float64], factor float64) accessor.Accessor[float64] {
	return plugins.Multiply(id, target, factor)
}

func forceReadOnlyPlugin(target accessor.Accessor[float64]) accessor.Accessor[float64] {
	return plugins.NewForceReadOnly[float64](target)
}

func monostableTriggerPlugin(target accessor.Accessor[float64]) accessor.Accessor[float64] {
	return plugins.NewMonostableTrigger[float64](target, 0, true)
}

func (b *Backend) mathPlugin(d Declaration, spec PluginSpec, target accessor.Accessor[float64]) (accessor.Accessor[float64], error) {
	params := make([]plugins.MathParameter, 0, len(spec.Parameters))
	for _, p := range spec.Parameters {
		var pa accessor.Accessor[float64]
		if _, isVirtual := b.byPath[p.Target.String()]; isVirtual {
			var err error
			pa, err = b.ScalarAccessorFloat64(p.Target, 0)
			if err != nil {
				return nil, deverr.Logicf(d.Path.String(), "math parameter %q: %v", p.Name, err)
			}
		} else {
			resolver, err := b.resolverFor(p.Target)
			if err != nil {
				return nil, deverr.Logicf(d.Path.String(), "math parameter %q: %v", p.Name, err)
			}
			pa, err = resolver.ScalarAccessorFloat64(p.Target, 0)
			if err != nil {
				return nil, err
			}
		}
		params = append(params, plugins.MathParameter{Name: p.Name, Accessor: pa, Push: p.Push})
	}
	return plugins.NewMath("math:"+d.Path.String(), target, spec.Formula, "", params)
}

// bitAccessor aliases one bit of raw as a boolean-valued float64
// register via a width-1 plugins.BitRange.
func bitAccessor(path regpath.Path, raw accessor.Accessor[uint32], bit int) (accessor.Accessor[float64], error) {
	br, err := plugins.NewBitRange("bit:"+path.String(), raw, bit, 1, false)
	if err != nil {
		return nil, err
	}
	return accessor.NewTypeChanging[int64, float64]("bit:"+path.String(), br, accessor.Converter[int64, float64]{
		ToUser: func(v int64) (float64, error) { return float64(v), nil },
		ToRaw:  func(v float64) (int64, error) {
			if v != 0 {
				return 1, nil
			}
			return 0, nil
		},
	}), nil
}
