package accessor

import (
	"context"

	"github.com/vdatab/devaccess/transfer"
)

// ReadOneShot runs the full preRead/readTransfer/postRead sequence
// once on a (usually scalar or 1-D) accessor, per spec §4.7's
// "convenience accessors perform a synchronous blocking read/write as
// a single call". It is the generic engine scalar/1D/2D wrappers and
// one-shot callers build on.
func ReadOneShot[T any](ctx context.Context, a Accessor[T]) error {
	if err := a.PreRead(ctx, transfer.KindNormal); err != nil {
		return err
	}
	if err := a.ReadTransfer(ctx, transfer.KindNormal); err != nil {
		return a.PostRead(ctx, transfer.KindNormal, false)
	}
	return a.PostRead(ctx, transfer.KindNormal, true)
}

// WriteOneShot runs the full preWrite/writeTransfer/postWrite
// sequence once, discarding the dataLost flag (callers that care
// about data loss should drive the phases directly).
func WriteOneShot[T any](ctx context.Context, a Accessor[T]) error {
	if err := a.PreWrite(ctx, transfer.KindNormal); err != nil {
		return err
	}
	if _, err := a.WriteTransfer(ctx, transfer.KindNormal); err != nil {
		return a.PostWrite(ctx, transfer.KindNormal)
	}
	return a.PostWrite(ctx, transfer.KindNormal)
}

// ReadScalar performs a one-shot read and returns channel 0, sample 0.
func ReadScalar[T any](ctx context.Context, a Accessor[T]) (T, error) {
	var zero T
	if err := ReadOneShot(ctx, a); err != nil {
		return zero, err
	}
	return a.Channel(0)[0], nil
}

// WriteScalar sets channel 0, sample 0 and performs a one-shot write.
func WriteScalar[T any](ctx context.Context, a Accessor[T], value T) error {
	a.SetChannel(0, []T{value})
	return WriteOneShot(ctx, a)
}

// ReadOneD performs a one-shot read and returns channel 0 in full.
func ReadOneD[T any](ctx context.Context, a Accessor[T]) ([]T, error) {
	if err := ReadOneShot(ctx, a); err != nil {
		return nil, err
	}
	out := make([]T, a.NSamples())
	copy(out, a.Channel(0))
	return out, nil
}

// WriteOneD sets channel 0 and performs a one-shot write.
func WriteOneD[T any](ctx context.Context, a Accessor[T], values []T) error {
	a.SetChannel(0, values)
	return WriteOneShot(ctx, a)
}

// ReadTwoD performs a one-shot read and returns every channel.
func ReadTwoD[T any](ctx context.Context, a Accessor[T]) ([][]T, error) {
	if err := ReadOneShot(ctx, a); err != nil {
		return nil, err
	}
	out := make([][]T, a.NChannels())
	for ch := range out {
		row := make([]T, a.NSamples())
		copy(row, a.Channel(ch))
		out[ch] = row
	}
	return out, nil
}

// WriteTwoD sets every channel and performs a one-shot write.
func WriteTwoD[T any](ctx context.Context, a Accessor[T], values [][]T) error {
	for ch, row := range values {
		a.SetChannel(ch, row)
	}
	return WriteOneShot(ctx, a)
}

// TriggerVoid performs a one-shot write on a void accessor (a single
// zero-valued element used purely for its side effect), per spec
// §4.7's void accessor.
func TriggerVoid(ctx context.Context, a Accessor[struct{}]) error {
	return WriteOneShot(ctx, a)
}
