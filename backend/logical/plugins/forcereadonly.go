package plugins

import (
	"context"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/transfer"
)

// ForceReadOnly wraps target, marking it read-only: writes fail with
// a logic error, per spec §4.4.
type ForceReadOnly[T any] struct {
	accessor.Decorator[T]
}

// NewForceReadOnly constructs a ForceReadOnly decorator over target.
func NewForceReadOnly[T any](target accessor.Accessor[T]) *ForceReadOnly[T] {
	return &ForceReadOnly[T]{Decorator: accessor.NewDecorator[T](target)}
}

func (f *ForceReadOnly[T]) PreWrite(ctx context.Context, kind transfer.TransferKind) error {
	return deverr.Logicf(f.Path().String(), "register is forced read-only")
}

func (f *ForceReadOnly[T]) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return false, deverr.Logicf(f.Path().String(), "register is forced read-only")
}
