// Package fanout implements the FanOut family of
// original_source/include/FanOut.h (and its ThreadedFanOut/
// FeedingFanOut/ConsumingFanOut/TriggerFanOut specializations): a
// single feeding accessor's value distributed to a set of slave
// accessors. A supplemented feature (spec.md does not name it), kept
// because the library's transfer-group and async-subscriber model is
// otherwise incomplete without a way to broadcast one source to many
// sinks.
package fanout

import (
	"context"
	"fmt"

	"github.com/vdatab/devaccess/accessor"
)

// FanOut distributes the value read from feeding to every registered
// slave. Grounded on FanOut.h's addSlave/feeding-accessor shape,
// simplified: Go's explicit error returns replace the source's
// exception-based shape mismatch checks.
type FanOut[T any] struct {
	feeding accessor.Accessor[T]
	slaves  []accessor.Accessor[T]
}

// New constructs a FanOut fed by feeding.
func New[T any](feeding accessor.Accessor[T]) *FanOut[T] {
	return &FanOut[T]{feeding: feeding}
}

// AddSlave registers slave to receive every future Distribute call's
// value. slave must be writeable and share feeding's shape, per
// FanOut.h's addSlave precondition.
func (f *FanOut[T]) AddSlave(slave accessor.Accessor[T]) error {
	if slave.NChannels() != f.feeding.NChannels() || slave.NSamples() != f.feeding.NSamples() {
		return fmt.Errorf("fanout: slave %s shape %dx%d does not match feeding %s shape %dx%d",
			slave.Path(), slave.NChannels(), slave.NSamples(),
			f.feeding.Path(), f.feeding.NChannels(), f.feeding.NSamples())
	}
	f.slaves = append(f.slaves, slave)
	return nil
}

// Distribute performs one read of feeding and writes its resulting
// value into every slave, stopping at the first error.
func (f *FanOut[T]) Distribute(ctx context.Context) error {
	if err := accessor.ReadOneShot(ctx, f.feeding); err != nil {
		return err
	}
	for _, slave := range f.slaves {
		for ch := 0; ch < f.feeding.NChannels(); ch++ {
			slave.SetChannel(ch, f.feeding.Channel(ch))
		}
		if err := accessor.WriteOneShot(ctx, slave); err != nil {
			return err
		}
	}
	return nil
}
