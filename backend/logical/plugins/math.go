package plugins

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// MathParameter binds a formula parameter name to its source accessor.
// A push parameter is expected to be kept current by the caller's
// async dispatch rather than re-read synchronously by Math itself.
type MathParameter struct {
	Name     string
	Accessor accessor.Accessor[float64]
	Push     bool
}

// Math evaluates a formula `y = f(x, params...)` on read, where x is
// the wrapped target register, per spec §4.4. The formula is compiled
// once via github.com/expr-lang/expr (selected per the ClusterCockpit
// manifest's use of the same library for runtime metric expressions).
// Writing inverts through an explicitly supplied inverse formula — the
// general symbolic-inversion case the mapping-document format gets
// from exprtk in the original is out of this rewrite's scope; a math
// register without a declared inverse is read-only.
type Math struct {
	transfer.Base
	target  accessor.Accessor[float64]
	params  []MathParameter
	program *vm.Program
	inverse *vm.Program // nil => writes rejected as a logic error

	mu        sync.Mutex
	delivered map[string]bool
	buf       *accessor.Buffer[float64]
}

// NewMath compiles formula (and, if non-empty, inverseFormula) and
// constructs a Math plugin over target with the given parameters.
func NewMath(id string, target accessor.Accessor[float64], formula, inverseFormula string, params []MathParameter) (*Math, error) {
	program, err := expr.Compile(formula, expr.Env(mathEnv(params)))
	if err != nil {
		return nil, deverr.Logicf(target.Path().String(), "invalid math formula: %v", err)
	}
	var inverse *vm.Program
	if inverseFormula != "" {
		inverse, err = expr.Compile(inverseFormula, expr.Env(mathEnv(params)))
		if err != nil {
			return nil, deverr.Logicf(target.Path().String(), "invalid math inverse formula: %v", err)
		}
	}
	delivered := make(map[string]bool, len(params))
	for _, p := range params {
		delivered[p.Name] = !p.Push // non-push parameters are always considered available
	}
	return &Math{
		Base:      transfer.NewBase(id),
		target:    target,
		params:    params,
		program:   program,
		inverse:   inverse,
		delivered: delivered,
		buf:       accessor.NewBuffer[float64](1, 1),
	}, nil
}

func mathEnv(params []MathParameter) map[string]any {
	env := map[string]any{"x": float64(0), "y": float64(0)}
	for _, p := range params {
		env[p.Name] = float64(0)
	}
	return env
}

// NotePushDelivered marks param as having delivered at least one
// value since open, per spec §4.4's write-gating rule. Callers feeding
// async updates into a push parameter call this from their dispatch loop.
func (m *Math) NotePushDelivered(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered[name] = true
}

func (m *Math) allPushDelivered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ok := range m.delivered {
		if !ok {
			return false
		}
	}
	return true
}

func (m *Math) env() map[string]any {
	out := map[string]any{"x": m.target.Channel(0)[0]}
	for _, p := range m.params {
		out[p.Name] = p.Accessor.Channel(0)[0]
	}
	return out
}

func (m *Math) Path() regpath.Path                { return m.target.Path() }
func (m *Math) NChannels() int                    { return 1 }
func (m *Math) NSamples() int                     { return 1 }
func (m *Math) Channel(ch int) []float64          { return m.buf.Channel(0) }
func (m *Math) SetChannel(ch int, data []float64) { m.buf.SetChannel(0, data) }
func (m *Math) VersionNumber() version.Number     { return m.target.VersionNumber() }

// Validity is worst-of across the target and every parameter, push
// parameters included, per spec §3's "Decorators propagate the worst ... from any
// contributing input."
func (m *Math) Validity() version.Validity {
	worst := m.target.Validity()
	for _, p := range m.params {
		worst = version.Worst(worst, p.Accessor.Validity())
	}
	return worst
}

func (m *Math) AccessModes() catalogue.AccessMode {
	return m.target.AccessModes() &^ catalogue.Raw
}

func (m *Math) Interrupt() { m.target.Interrupt() }

func (m *Math) PreRead(ctx context.Context, kind transfer.TransferKind) error {
	if err := m.target.PreRead(ctx, kind); err != nil {
		return err
	}
	for _, p := range m.params {
		if p.Push {
			continue
		}
		if err := p.Accessor.PreRead(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

func (m *Math) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	if err := m.target.ReadTransfer(ctx, kind); err != nil {
		return err
	}
	for _, p := range m.params {
		if p.Push {
			continue
		}
		if err := p.Accessor.ReadTransfer(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

func (m *Math) ReadTransferNonBlocking(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	if err := m.ReadTransfer(ctx, kind); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Math) ReadLatest(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return m.ReadTransferNonBlocking(ctx, kind)
}

func (m *Math) PostRead(ctx context.Context, kind transfer.TransferKind, hasNewData bool) error {
	err := m.target.PostRead(ctx, kind, hasNewData)
	for _, p := range m.params {
		if p.Push {
			continue
		}
		if perr := p.Accessor.PostRead(ctx, kind, hasNewData); perr != nil && err == nil {
			err = perr
		}
	}
	if !hasNewData {
		return err
	}
	result, evalErr := expr.Run(m.program, m.env())
	if evalErr != nil && err == nil {
		err = deverr.Runtimef(m.Path().String(), "math formula evaluation failed: %v", evalErr)
	} else if evalErr == nil {
		m.buf.Channel(0)[0] = toFloat64(result)
	}
	return err
}

func (m *Math) PreWrite(ctx context.Context, kind transfer.TransferKind) error {
	if m.inverse == nil {
		return deverr.Logicf(m.Path().String(), "math register has no inverse formula and is read-only")
	}
	if !m.allPushDelivered() {
		return deverr.Logicf(m.Path().String(), "math register write pending: not every push parameter has delivered a value since open")
	}
	env := m.env()
	env["y"] = m.buf.Channel(0)[0]
	result, err := expr.Run(m.inverse, env)
	if err != nil {
		return deverr.Runtimef(m.Path().String(), "math inverse formula evaluation failed: %v", err)
	}
	m.target.SetChannel(0, []float64{toFloat64(result)})
	return m.target.PreWrite(ctx, kind)
}

func (m *Math) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return m.target.WriteTransfer(ctx, kind)
}

func (m *Math) PostWrite(ctx context.Context, kind transfer.TransferKind) error {
	return m.target.PostWrite(ctx, kind)
}

func (m *Math) MayReplaceOther(other transfer.Element) bool { return false }

func (m *Math) HardwareAccessingElements() []transfer.Element {
	elems := m.target.HardwareAccessingElements()
	for _, p := range m.params {
		if !p.Push {
			elems = append(elems, p.Accessor.HardwareAccessingElements()...)
		}
	}
	return elems
}

func (m *Math) ReplaceTransferElement(newElem transfer.Element) bool {
	if m.target.ID() == newElem.ID() {
		if na, ok := newElem.(accessor.Accessor[float64]); ok {
			m.target = na
			return true
		}
	}
	for i, p := range m.params {
		if p.Accessor.ID() == newElem.ID() {
			if na, ok := newElem.(accessor.Accessor[float64]); ok {
				m.params[i].Accessor = na
				return true
			}
		}
	}
	return false
}

func toFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}
