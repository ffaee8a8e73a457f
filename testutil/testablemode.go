// Package testutil collects test-support facilities supplemented from
// original_source's tests/include/ directory: a testable-mode accessor
// decorator that lets a test deterministically track how many writes
// an application has produced but not yet consumed by reading. Write
// counting lives in backend/dummy.Backend.WriteCount, not here.
package testutil

import (
	"context"
	"sync"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/transfer"
)

// TestableModeController tracks a single pending-transfer counter
// shared by every TestableModeDecorator wrapping one application's
// accessors, grounded on
// original_source/include/TestableModeAccessorDecorator.h's
// Application::testableMode_counter: each successful write increments
// it, each read that consumes the written value decrements it, and a
// test drives the application deterministically by waiting for the
// counter to return to zero between steps.
type TestableModeController struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
}

// NewTestableModeController constructs an idle controller.
func NewTestableModeController() *TestableModeController {
	c := &TestableModeController{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *TestableModeController) increment() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
}

func (c *TestableModeController) decrement() {
	c.mu.Lock()
	if c.pending > 0 {
		c.pending--
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Pending returns the current outstanding-transfer count.
func (c *TestableModeController) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// WaitForIdle blocks until Pending() reaches zero or ctx is done, per
// the source's "step the application, then wait for it to settle
// before asserting" test discipline.
func (c *TestableModeController) WaitForIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.mu.Lock()
		for c.pending > 0 {
			c.cond.Wait()
		}
		c.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// testableModeDecorator wraps target, counting successful writes and
// consuming reads against a shared TestableModeController.
type testableModeDecorator[T any] struct {
	accessor.Decorator[T]
	handleRead  bool
	handleWrite bool
	controller  *TestableModeController
}

// NewTestableModeDecorator wraps target so that, per handleRead and
// handleWrite, its reads decrement and its successful (non-data-lost)
// writes increment controller's pending count.
func NewTestableModeDecorator[T any](target accessor.Accessor[T], handleRead, handleWrite bool, controller *TestableModeController) accessor.Accessor[T] {
	return &testableModeDecorator[T]{
		Decorator:   accessor.NewDecorator[T](target),
		handleRead:  handleRead,
		handleWrite: handleWrite,
		controller:  controller,
	}
}

func (d *testableModeDecorator[T]) ID() string { return "testablemode(" + d.Target.ID() + ")" }

func (d *testableModeDecorator[T]) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	if d.handleRead {
		d.controller.decrement()
	}
	return d.Target.ReadTransfer(ctx, kind)
}

func (d *testableModeDecorator[T]) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	dataLost, err := d.Target.WriteTransfer(ctx, kind)
	if err != nil {
		return dataLost, err
	}
	if d.handleWrite && !dataLost {
		d.controller.increment()
	}
	return dataLost, nil
}
