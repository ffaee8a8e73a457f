package logical

import (
	"context"
	"sync"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// variableCell is the process-wide mutable cell backing a `variable`
// kind virtual register, per spec §4.4: "process-wide mutable cell;
// shared across all accessors of this path." This is a supplemented
// behavior decision (SPEC_FULL.md): the source's variable registers
// are process-global, so every accessor opened against the same path
// observes the same cell rather than a private copy.
type variableCell struct {
	mu       sync.Mutex
	value    float64
	version  version.Number
	validity version.Validity
}

// variableRegistry is the process-wide table of variable cells, keyed
// by path, grounded on spec §9's "the logical-backend decorator cache
// [is a] process-wide singleton with explicit init".
type variableRegistry struct {
	mu    sync.Mutex
	cells map[string]*variableCell
}

var globalVariables = &variableRegistry{cells: make(map[string]*variableCell)}

func (r *variableRegistry) cellFor(path string, initial float64) *variableCell {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cells[path]; ok {
		return c
	}
	c := &variableCell{value: initial, version: version.Next(), validity: version.OK}
	r.cells[path] = c
	return c
}

// variableAccessor is the Accessor[float64] fronting one variableCell.
type variableAccessor struct {
	transfer.Base
	path regpath.Path
	cell *variableCell
	buf  *accessor.Buffer[float64]
}

func newVariableAccessor(id string, path regpath.Path, initial float64) accessor.Accessor[float64] {
	return &variableAccessor{
		Base: transfer.NewBase(id),
		path: path,
		cell: globalVariables.cellFor(path.String(), initial),
		buf:  accessor.NewBuffer[float64](1, 1),
	}
}

func (v *variableAccessor) Path() regpath.Path                { return v.path }
func (v *variableAccessor) NChannels() int                    { return 1 }
func (v *variableAccessor) NSamples() int                     { return 1 }
func (v *variableAccessor) Channel(ch int) []float64          { return v.buf.Channel(0) }
func (v *variableAccessor) SetChannel(ch int, data []float64) { v.buf.SetChannel(0, data) }
func (v *variableAccessor) Interrupt()                        {}
func (v *variableAccessor) AccessModes() catalogue.AccessMode { return catalogue.AccessMode(0) }

func (v *variableAccessor) VersionNumber() version.Number {
	v.cell.mu.Lock()
	defer v.cell.mu.Unlock()
	return v.cell.version
}

func (v *variableAccessor) Validity() version.Validity {
	v.cell.mu.Lock()
	defer v.cell.mu.Unlock()
	return v.cell.validity
}

func (v *variableAccessor) PreRead(ctx context.Context, kind transfer.TransferKind) error { return nil }
func (v *variableAccessor) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	v.cell.mu.Lock()
	v.buf.Channel(0)[0] = v.cell.value
	v.cell.mu.Unlock()
	return nil
}

func (v *variableAccessor) ReadTransferNonBlocking(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return true, v.ReadTransfer(ctx, kind)
}

func (v *variableAccessor) ReadLatest(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return v.ReadTransferNonBlocking(ctx, kind)
}

func (v *variableAccessor) PostRead(ctx context.Context, kind transfer.TransferKind, hasNewData bool) error {
	return nil
}

func (v *variableAccessor) PreWrite(ctx context.Context, kind transfer.TransferKind) error { return nil }

func (v *variableAccessor) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	v.cell.mu.Lock()
	v.cell.value = v.buf.Channel(0)[0]
	v.cell.version = version.Next()
	v.cell.validity = version.OK
	v.cell.mu.Unlock()
	return false, nil
}

func (v *variableAccessor) PostWrite(ctx context.Context, kind transfer.TransferKind) error { return nil }

func (v *variableAccessor) MayReplaceOther(other transfer.Element) bool {
	o, ok := other.(*variableAccessor)
	return ok && o.cell == v.cell
}

func (v *variableAccessor) HardwareAccessingElements() []transfer.Element {
	return []transfer.Element{v}
}

func (v *variableAccessor) ReplaceTransferElement(newElem transfer.Element) bool { return false }
