package transfer

import "sync"

// PendingException holds at most one deferred error, set during
// readTransfer/writeTransfer and re-raised by the owning post call
// after locks are released, per spec §7. It is safe for concurrent use.
type PendingException struct {
	mu  sync.Mutex
	err error
}

// Set stores err as the pending exception, overwriting any previous one.
func (p *PendingException) Set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// TakeAndClear returns the pending exception, if any, and clears it —
// "re-thrown ... exactly once" per spec §7.
func (p *PendingException) TakeAndClear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.err
	p.err = nil
	return err
}

// Peek returns the pending exception without clearing it.
func (p *PendingException) Peek() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
