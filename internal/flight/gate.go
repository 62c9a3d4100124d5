// Package flight keeps at most one live request per logical operation.
//
// A Gate owns the handle of the request in flight. Begin supersedes it
// (cancel-and-replace), TryBegin refuses while it is live (reject). Every
// ticket carries a generation so a completion can ask whether it is still the
// newest request before it touches shared state.
package flight

import (
	"context"
	"sync"
)

// Gate is safe for concurrent use. The zero value is ready.
type Gate struct {
	mu   sync.Mutex
	gen  uint64
	live *Ticket
}

// Ticket is the handle of one request admitted by a Gate.
type Ticket struct {
	gate   *Gate
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Begin cancels the request in flight, if any, and admits a new one.
func (g *Gate) Begin(parent context.Context) *Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.live != nil {
		g.live.cancel()
		g.live = nil
	}
	return g.admitLocked(parent)
}

// TryBegin admits a new request only when nothing is in flight.
func (g *Gate) TryBegin(parent context.Context) (*Ticket, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.live != nil {
		return nil, false
	}
	return g.admitLocked(parent), true
}

func (g *Gate) admitLocked(parent context.Context) *Ticket {
	if parent == nil {
		parent = context.Background()
	}
	g.gen++
	ctx, cancel := context.WithCancel(parent)
	t := &Ticket{gate: g, gen: g.gen, ctx: ctx, cancel: cancel}
	g.live = t
	return t
}

// Cancel aborts the request in flight and invalidates every outstanding
// ticket. Calling it with nothing in flight is harmless.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.live != nil {
		g.live.cancel()
		g.live = nil
	}
	g.gen++
}

// Busy reports whether a request is in flight.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live != nil
}

// Context is cancelled when the ticket is superseded, cancelled, or done.
func (t *Ticket) Context() context.Context {
	return t.ctx
}

// Current reports whether no newer request has been admitted and the gate
// has not been cancelled since this ticket was issued.
func (t *Ticket) Current() bool {
	t.gate.mu.Lock()
	defer t.gate.mu.Unlock()
	return t.gate.gen == t.gen
}

// IfCurrent runs fn only while the ticket is current. The gate stays locked
// for the duration of fn so no Begin or Cancel can interleave with it.
func (t *Ticket) IfCurrent(fn func()) bool {
	t.gate.mu.Lock()
	defer t.gate.mu.Unlock()
	if t.gate.gen != t.gen {
		return false
	}
	fn()
	return true
}

// Done releases the ticket. It clears the gate's handle only when the handle
// still points at this ticket. Idempotent.
func (t *Ticket) Done() {
	t.once.Do(func() {
		t.gate.mu.Lock()
		if t.gate.live == t {
			t.gate.live = nil
		}
		t.gate.mu.Unlock()
		t.cancel()
	})
}
