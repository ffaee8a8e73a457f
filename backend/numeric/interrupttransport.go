package numeric

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend/numeric/interrupt"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/version"
)

// subscriberSeq hands out unique subscription ids so two accessors
// bound to the same interrupt node each get their own queue.
var subscriberSeq uint64

// InterruptTransport is the WaitForNewData accessor.Transport[uint32]
// of spec §4.3: a Read blocks until node delivers a push (or ctx is
// cancelled), then fetches the current word through raw the same way
// a polled accessor would — the interrupt only signals that new data
// is ready, it carries no payload of its own (interrupt.Update has no
// data field). The version that update carries is exactly the version
// every other subscriber of node sees, which is what lets a
// consistency group (spec §4.6) observe two independently-bound
// registers sharing a version.
type InterruptTransport struct {
	raw   *RawTransport
	node  *interrupt.Node
	id    string
	queue <-chan interrupt.Update
	lastV version.Number
}

// NewInterruptTransport subscribes a fresh queue on node and returns a
// transport that delegates actual word movement to raw.
func NewInterruptTransport(raw *RawTransport, node *interrupt.Node, capacity int) *InterruptTransport {
	n := atomic.AddUint64(&subscriberSeq, 1)
	subID := "interrupt-sub-" + strconv.FormatUint(n, 16)
	return &InterruptTransport{
		raw:   raw,
		node:  node,
		id:    subID,
		queue: node.Subscribe(subID, capacity),
	}
}

func (t *InterruptTransport) Read(ctx context.Context, buf *accessor.Buffer[uint32]) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case u, ok := <-t.queue:
		if !ok {
			return deverr.Logicf("", "interrupt subscriber queue closed")
		}
		if u.Err != nil {
			return u.Err
		}
		if err := t.raw.Read(ctx, buf); err != nil {
			return err
		}
		t.lastV = u.Version
		return nil
	}
}

func (t *InterruptTransport) Write(ctx context.Context, buf *accessor.Buffer[uint32]) (bool, error) {
	return t.raw.Write(ctx, buf)
}

func (t *InterruptTransport) MayReplaceOther(other accessor.Transport[uint32]) bool {
	o, ok := other.(*InterruptTransport)
	if !ok {
		return false
	}
	return t.node == o.node && t.raw.MayReplaceOther(o.raw)
}

// ReadVersion implements accessor.VersionedTransport[uint32]: the
// version stamped by the last successful Read, shared across every
// subscriber of the same node.
func (t *InterruptTransport) ReadVersion() version.Number {
	return t.lastV
}

// Unsubscribe releases this transport's queue on node. Call when the
// owning accessor is discarded.
func (t *InterruptTransport) Unsubscribe() {
	t.node.Unsubscribe(t.id)
}
