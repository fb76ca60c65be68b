package shell

import "sync"

type gateListener struct {
	id int
	fn func()
}

// ReadyGate withholds the native splash screen until the first embedded
// content paint has happened. The gate is one-way: once ready it stays
// ready until an explicit Reset (a full sign-out), after which a fresh
// sign-in withholds chrome again.
//
// The error channel is parallel and independent: it signals that the
// first paint will not arrive at all, so the platform can skip the
// splash path entirely. Setting it does not touch the ready state.
type ReadyGate struct {
	mu       sync.Mutex
	ready    bool
	failed   bool
	nextID   int
	readyFns []gateListener
	errorFns []gateListener
}

func NewReadyGate() *ReadyGate {
	return &ReadyGate{}
}

// SetReady flips the gate. The first call fires every registered ready
// callback exactly once; later calls are no-ops.
func (g *ReadyGate) SetReady() {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return
	}
	g.ready = true
	pending := g.readyFns
	g.readyFns = nil
	g.mu.Unlock()

	for _, l := range pending {
		l.fn()
	}
}

// OnReady registers a single-shot callback. If the gate is already
// ready the callback runs immediately on the calling goroutine and the
// returned unsubscribe is a no-op.
func (g *ReadyGate) OnReady(fn func()) (unsubscribe func()) {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		fn()
		return func() {}
	}
	g.nextID++
	id := g.nextID
	g.readyFns = append(g.readyFns, gateListener{id: id, fn: fn})
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.readyFns = removeListener(g.readyFns, id)
	}
}

// SetError signals unrecoverable load failure. Idempotent, independent
// of the ready state.
func (g *ReadyGate) SetError() {
	g.mu.Lock()
	if g.failed {
		g.mu.Unlock()
		return
	}
	g.failed = true
	pending := g.errorFns
	g.errorFns = nil
	g.mu.Unlock()

	for _, l := range pending {
		l.fn()
	}
}

// OnError mirrors OnReady for the failure channel.
func (g *ReadyGate) OnError(fn func()) (unsubscribe func()) {
	g.mu.Lock()
	if g.failed {
		g.mu.Unlock()
		fn()
		return func() {}
	}
	g.nextID++
	id := g.nextID
	g.errorFns = append(g.errorFns, gateListener{id: id, fn: fn})
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.errorFns = removeListener(g.errorFns, id)
	}
}

func (g *ReadyGate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

func (g *ReadyGate) Failed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failed
}

// Reset returns the gate to its initial state and drops any callbacks
// still waiting on either channel.
func (g *ReadyGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ready = false
	g.failed = false
	g.readyFns = nil
	g.errorFns = nil
}

func removeListener(ls []gateListener, id int) []gateListener {
	out := ls[:0]
	for _, l := range ls {
		if l.id != id {
			out = append(out, l)
		}
	}
	return out
}
