package accessor

import (
	"context"

	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/transfer"
	"github.com/vdatab/devaccess/version"
)

// Transport is the hardware-facing I/O a Leaf delegates its
// readTransfer/writeTransfer phases to. Backends implement this over
// whatever their real transport is (an in-memory store, an mmap'd BAR,
// a TCP socket, an async queue, ...); Leaf supplies all the
// bookkeeping (buffer, version, validity, cancellation, pending
// exception) around it.
type Transport[T any] interface {
	// Read fills buf (shaped nChannels x nSamples) with the transport's
	// current contents. For a WaitForNewData transport this call
	// blocks until ctx is cancelled or an update is pushed.
	Read(ctx context.Context, buf *Buffer[T]) error
	// Write pushes buf's contents to the transport and reports whether
	// any of it was lost (queue overflow).
	Write(ctx context.Context, buf *Buffer[T]) (dataLost bool, err error)
	// MayReplaceOther reports byte-identical-transfer equivalence with
	// another Transport, used by the transfer group.
	MayReplaceOther(other Transport[T]) bool
}

// VersionedTransport is a Transport that knows the version number its
// own upstream attaches to the data it just delivered — for example a
// push source (an interrupt dispatcher, spec §4.3) whose update is
// shared across every subscriber it fans out to. A Leaf consults this
// after a successful Read and stamps the reported version instead of
// minting a fresh one, so a data-consistency group (spec §4.6) can
// observe two independently-bound registers sharing a version.
type VersionedTransport[T any] interface {
	Transport[T]
	// ReadVersion returns the version the most recent successful Read
	// carried. Transport.ReadVersion returning version.Null tells the
	// Leaf to fall back to minting its own version, as if the
	// transport did not implement this interface at all.
	ReadVersion() version.Number
}

// Leaf is the hardware-accessing NDRegisterAccessor leaf: it owns the
// buffer/version/validity state and forwards the two blocking phases
// to a Transport.
type Leaf[T any] struct {
	state[T]
	transport   Transport[T]
	pending     transfer.PendingException
	interrupt   context.CancelFunc
	pushVersion version.Number // set from a VersionedTransport's last Read; Null otherwise
}

// NewLeaf constructs a Leaf bound to path, shaped nChannels x nSamples,
// delegating actual I/O to transport.
func NewLeaf[T any](id string, path regpath.Path, nChannels, nSamples int, modes catalogue.AccessMode, transport Transport[T]) *Leaf[T] {
	return &Leaf[T]{
		state:     newState[T](id, path, nChannels, nSamples, modes),
		transport: transport,
	}
}

func (l *Leaf[T]) PreRead(ctx context.Context, kind transfer.TransferKind) error { return nil }

func (l *Leaf[T]) ReadTransfer(ctx context.Context, kind transfer.TransferKind) error {
	ctx, cancel := context.WithCancel(ctx)
	l.interrupt = cancel
	defer func() { l.interrupt = nil }()

	tmp := NewBuffer[T](l.NChannels(), l.NSamples())
	if err := l.transport.Read(ctx, tmp); err != nil {
		l.pending.Set(err)
		return nil
	}
	l.buf.CopyFrom(tmp)
	l.pushVersion = version.Null
	if vt, ok := l.transport.(VersionedTransport[T]); ok {
		l.pushVersion = vt.ReadVersion()
	}
	return nil
}

func (l *Leaf[T]) ReadTransferNonBlocking(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	if err := l.ReadTransfer(ctx, kind); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Leaf[T]) ReadLatest(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	return l.ReadTransferNonBlocking(ctx, kind)
}

func (l *Leaf[T]) PostRead(ctx context.Context, kind transfer.TransferKind, hasNewData bool) error {
	if err := l.pending.TakeAndClear(); err != nil {
		l.stamp(l.version, version.Faulty)
		return deverr.Wrap(l.path.String(), err, "transfer failed")
	}
	if hasNewData {
		v := l.pushVersion
		if v.IsNull() {
			v = version.Next()
		}
		l.stamp(v, version.OK)
	}
	return nil
}

func (l *Leaf[T]) PreWrite(ctx context.Context, kind transfer.TransferKind) error { return nil }

func (l *Leaf[T]) WriteTransfer(ctx context.Context, kind transfer.TransferKind) (bool, error) {
	dataLost, err := l.transport.Write(ctx, l.buf)
	if err != nil {
		l.pending.Set(err)
		return dataLost, nil
	}
	l.stamp(version.Next(), version.OK)
	return dataLost, nil
}

func (l *Leaf[T]) PostWrite(ctx context.Context, kind transfer.TransferKind) error {
	if err := l.pending.TakeAndClear(); err != nil {
		return deverr.Wrap(l.path.String(), err, "write failed")
	}
	return nil
}

func (l *Leaf[T]) MayReplaceOther(other transfer.Element) bool {
	o, ok := other.(*Leaf[T])
	if !ok {
		return false
	}
	return l.transport.MayReplaceOther(o.transport)
}

func (l *Leaf[T]) HardwareAccessingElements() []transfer.Element {
	return []transfer.Element{l}
}

func (l *Leaf[T]) ReplaceTransferElement(newElem transfer.Element) bool {
	return false
}

func (l *Leaf[T]) Interrupt() {
	if l.interrupt != nil {
		l.interrupt()
	}
}

// SetFault pushes a runtime error into this leaf's pending exception,
// poisoning its next transfer. Used by a backend's setException to
// fault outstanding accessors (spec §4.2/§4.3).
func (l *Leaf[T]) SetFault(err error) {
	l.pending.Set(err)
}
