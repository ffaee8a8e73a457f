package logical

import (
	"context"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// constantAccessor is the Accessor[float64] for a `constant` kind
// virtual register, spec §4.4: "literal array of the declared type ...
// read-only, returns the literal each read."
type constantAccessor struct {
	transfer.Base
	path  regpath.Path
	value float64
	buf   *accessor.Buffer[float64]
}

func newConstantAccessor(path regpath.Path, value float64) accessor.Accessor[float64] {
	buf := accessor.NewBuffer[float64](1, 1)
	buf.SetChannel(0, []float64{value})
	return &constantAccessor{
		Base:  transfer.NewBase("constant:" + path.String()),
		path:  path,
		value: value,
		buf:   buf,
	}
}

func (c *constantAccessor) Path() regpath.Path                { return c.path }
func (c *constantAccessor) NChannels() int                    { return 1 }
func (c *constantAccessor) NSamples() int                     { return 1 }
func (c *constantAccessor) Channel(ch int) []float64          { return c.buf.Channel(0) }
func (c *constantAccessor) SetChannel(ch int, data []float64) {}
func (c *constantAccessor) VersionNumber() version.Number     { return version.Null }
func (c *constantAccessor) Validity() version.Validity        { return version.OK }
func (c *constantAccessor) AccessModes() catalogue.AccessMode { return catalogue.AccessMode(0) }
func (c *constantAccessor) Interrupt()                        {}

func (c *constantAccessor) PreRead(ctx context.Context, kind transfer.TransferKind) error { return nil }
func (c *constantAccessor) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	return nil
}
func (c *constantAccessor) ReadTransferNonBlocking(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return true, nil
}
func (c *constantAccessor) ReadLatest(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return true, nil
}
func (c *constantAccessor) PostRead(ctx context.Context, kind transfer.TransferKind, hasNewData bool) error {
	return nil
}
func (c *constantAccessor) PreWrite(ctx context.Context, kind transfer.TransferKind) error {
	return deverr.Logicf(c.path.String(), "constant register is read-only")
}
func (c *constantAccessor) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return false, deverr.Logicf(c.path.String(), "constant register is read-only")
}
func (c *constantAccessor) PostWrite(ctx context.Context, kind transfer.TransferKind) error {
	return nil
}
func (c *constantAccessor) MayReplaceOther(other transfer.Element) bool { return false }
func (c *constantAccessor) HardwareAccessingElements() []transfer.Element {
	return []transfer.Element{c}
}
func (c *constantAccessor) ReplaceTransferElement(newElem transfer.Element) bool { return false }
