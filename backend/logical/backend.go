package logical

import (
	"context"
	"strings"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend"
	"github.com/vdatab/devaccess/backend/logical/plugins"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/usertype"
)

// TargetResolver is the subset of a concrete backend the logical
// backend needs in order to resolve a `redirect`/`channel`/`bit`/`area`
// target specification. Concrete backends (backend/numeric, etc.)
// satisfy it structurally; the logical backend is handed one resolver
// per named target backend by whoever wires up the Device.
type TargetResolver interface {
	ScalarAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error)
	RawAccessorUint32(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[uint32], error)
	Catalogue() *catalogue.Catalogue
}

// Backend is the logical name mapping backend of spec §4.4: it
// resolves a Document against one or more TargetResolvers and exposes
// the resulting virtual registers through the usual Backend contract.
type Backend struct {
	*backend.State
	doc     Document
	targets map[string]TargetResolver // resolver name -> resolver
	byPath  map[string]Declaration
	cat     *catalogue.Catalogue
	log     *obslog.Logger
}

// New validates doc (cycle detection) and constructs a logical Backend
// over it. targets maps a resolver name (as referenced by each
// Declaration's Target.Target path prefix, resolved by the caller
// before construction) to the concrete backend exposing it.
func New(doc Document, targets map[string]TargetResolver, log *obslog.Logger) (*Backend, error) {
	if err := DetectCycles(doc); err != nil {
		return nil, err
	}
	byPath := make(map[string]Declaration, len(doc.Declarations))
	for _, d := range doc.Declarations {
		byPath[d.Path.String()] = d
	}
	b := &Backend{
		State:   backend.NewState(log),
		doc:     doc,
		targets: targets,
		byPath:  byPath,
		cat:     catalogue.New(),
		log:     log,
	}
	if err := b.buildCatalogue(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) buildCatalogue() error {
	for _, d := range b.doc.Declarations {
		info := catalogue.Info{
			Path:        d.Path,
			NChannels:   1,
			NElements:   1,
			NDimensions: 0,
			Descriptor:  catalogue.NumericDescriptor(usertype.Float64, 0, usertype.Int32),
			Readable:    true,
			Writeable:   d.Target.Kind != KindConstant,
		}
		for _, p := range d.Plugins {
			if p.Kind == PluginForceReadOnly {
				info.Writeable = false
			}
			if p.Kind == PluginTagModifier {
				info.Tags = plugins.ApplyTagModifier(info.Tags, plugins.TagOperation{Set: p.SetTags, Add: p.AddTags, Remove: p.RemoveTags})
			}
		}
		b.cat.Add(info)
	}
	return nil
}

func (b *Backend) Open(ctx context.Context) error {
	b.MarkOpen()
	return nil
}

func (b *Backend) Close() error {
	b.MarkClosed()
	return nil
}

func (b *Backend) Catalogue() *catalogue.Catalogue { return b.cat }

// ActivateAsyncRead delegates to every distinct target resolver that
// is itself a backend.Backend, so a mapping document layered over a
// push-capable target (e.g. backend/numeric) still arms it. Resolvers
// that don't implement ActivateAsyncRead (a bare TargetResolver) are
// skipped.
func (b *Backend) ActivateAsyncRead(ctx context.Context) error {
	seen := make(map[backend.Backend]bool)
	for _, target := range b.targets {
		activator, ok := target.(backend.Backend)
		if !ok || seen[activator] {
			continue
		}
		seen[activator] = true
		if err := activator.ActivateAsyncRead(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolverFor picks the TargetResolver a target path resolves
// through. The first path component names the resolver (e.g.
// "/numeric/WORD_FIRMWARE" resolves through the resolver registered
// as "numeric"); a single "" entry in targets acts as the default
// resolver for mapping documents that address only one target backend.
func (b *Backend) resolverFor(path regpath.Path) (TargetResolver, error) {
	segments := strings.Split(strings.TrimPrefix(path.String(), "/"), "/")
	if len(segments) > 0 {
		if r, ok := b.targets[segments[0]]; ok {
			return r, nil
		}
	}
	if r, ok := b.targets[""]; ok {
		return r, nil
	}
	return nil, deverr.Logicf(path.String(), "no target resolver bound for %q", path.String())
}

// ScalarAccessorFloat64 resolves declaration d.Path into a composed
// Accessor[float64] chain: target spec first, then declared plugins
// in order.
func (b *Backend) ScalarAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	if modes.Has(catalogue.Raw) {
		return nil, deverr.Logicf(path.String(), "raw access is not available through the logical backend")
	}
	d, ok := b.byPath[path.String()]
	if !ok {
		return nil, deverr.Logicf(path.String(), "no such virtual register")
	}

	base, err := b.resolveTarget(d)
	if err != nil {
		return nil, err
	}

	for i, p := range d.Plugins {
		base, err = b.applyPlugin(d, i, p, base)
		if err != nil {
			return nil, err
		}
	}
	return base, nil
}

func (b *Backend) resolveTarget(d Declaration) (accessor.Accessor[float64], error) {
	switch d.Target.Kind {
	case KindRedirect, KindArea:
		resolver, err := b.resolverFor(d.Target.Target)
		if err != nil {
			return nil, err
		}
		return resolver.ScalarAccessorFloat64(d.Target.Target, catalogue.AccessMode(0))
	case KindConstant:
		value := 0.0
		if len(d.Target.ConstantValues) > 0 {
			value = d.Target.ConstantValues[0]
		}
		return newConstantAccessor(d.Path, value), nil
	case KindVariable:
		return newVariableAccessor("variable:"+d.Path.String(), d.Path, d.Target.InitialValue), nil
	case KindBit:
		resolver, err := b.resolverFor(d.Target.Target)
		if err != nil {
			return nil, err
		}
		raw, err := resolver.RawAccessorUint32(d.Target.Target, catalogue.AccessMode(0))
		if err != nil {
			return nil, err
		}
		return bitAccessor(d.Path, raw, d.Target.Bit)
	default:
		return nil, deverr.Logicf(d.Path.String(), "unsupported target kind")
	}
}

func (b *Backend) applyPlugin(d Declaration, index int, p PluginSpec, base accessor.Accessor[float64]) (accessor.Accessor[float64], error) {
	id := d.Path.String()
	switch p.Kind {
	case PluginMultiply:
		return multiplyPlugin(id, base, p.Factor), nil
	case PluginForceReadOnly:
		return forceReadOnlyPlugin(base), nil
	case PluginMath:
		return b.mathPlugin(d, p, base)
	case PluginMonostableTrigger:
		return monostableTriggerPlugin(base), nil
	case PluginTagModifier, PluginTypeHint:
		// tagModifier is applied to the catalogue entry's tags in
		// buildCatalogue. typeHint is not applied anywhere: the
		// catalogue descriptor and the accessor are left unchanged.
		return base, nil
	case PluginBitRange:
		return nil, deverr.Logicf(id, "bitRange must be declared directly on a bit-typed target, not chained over a float64 accessor")
	default:
		return base, nil
	}
}

func (b *Backend) ScalarAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	f, err := b.ScalarAccessorFloat64(path, modes)
	if err != nil {
		return nil, err
	}
	return accessor.NewTypeChanging[float64, int64]("int64:"+path.String(), f, accessor.Converter[float64, int64]{
		ToUser: func(v float64) (int64, error) { return int64(v), nil },
		ToRaw:  func(v int64) (float64, error) { return float64(v), nil },
	}), nil
}

func (b *Backend) OneDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	return b.ScalarAccessorInt64(path, modes)
}

func (b *Backend) OneDAccessorFloat64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[float64], error) {
	return b.ScalarAccessorFloat64(path, modes)
}

func (b *Backend) TwoDAccessorInt64(path regpath.Path, modes catalogue.AccessMode) (accessor.Accessor[int64], error) {
	return b.ScalarAccessorInt64(path, modes)
}

func (b *Backend) VoidAccessor(path regpath.Path) (accessor.Accessor[struct{}], error) {
	return nil, deverr.Logicf(path.String(), "void accessors are not supported through the logical backend")
}
