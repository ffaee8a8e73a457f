package plugins

import (
	"context"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/transfer"
)

// MonostableTrigger wraps a write-only target: every write pulses the
// target register (writes the value, then immediately issues the
// target's own write cycle once more with its rest value if one was
// configured). Per spec §4.4, the intermediate-value semantics during
// the pulse is explicitly not specified; this plugin's contract is
// only that the exception contract is honoured and that reads are
// rejected as a logic error.
type MonostableTrigger[T any] struct {
	accessor.Decorator[T]
	restValue T
	hasRest   bool
}

// NewMonostableTrigger constructs a MonostableTrigger over target. If
// hasRest, every pulse is followed by writing restValue back.
func NewMonostableTrigger[T any](target accessor.Accessor[T], restValue T, hasRest bool) *MonostableTrigger[T] {
	return &MonostableTrigger[T]{
		Decorator: accessor.NewDecorator[T](target),
		restValue: restValue,
		hasRest:   hasRest,
	}
}

func (m *MonostableTrigger[T]) PreRead(ctx context.Context, kind transfer.TransferKind) error {
	return deverr.Logicf(m.Path().String(), "monostableTrigger register is write-only")
}

func (m *MonostableTrigger[T]) PostWrite(ctx context.Context, kind transfer.TransferKind) error {
	if err := m.Target.PostWrite(ctx, kind); err != nil {
		return err
	}
	if !m.hasRest {
		return nil
	}
	m.Target.SetChannel(0, []T{m.restValue})
	if err := m.Target.PreWrite(ctx, kind); err != nil {
		return err
	}
	if _, err := m.Target.WriteTransfer(ctx, kind); err != nil {
		return err
	}
	return m.Target.PostWrite(ctx, kind)
}
