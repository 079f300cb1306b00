package iotproto

import (
	"sync"
	"time"
)

// ResponseDescriptor is supplied by a caller sending a REQUEST, STREAMING or
// BUFFER_SIZE_REQUEST frame that expects a matching RESPONSE/BUFFER_SIZE_RESPONSE.
// Once the send has succeeded, exactly one of OnResponse (on the final
// fragment) or OnTimeout fires, never both, never neither. If the send
// itself returns an error, the entry is dropped and neither fires.
type ResponseDescriptor struct {
	// OnResponse is invoked once the matching response's final fragment
	// arrives. req.Complete() is always true when this is called.
	OnResponse func(req *Request)
	// OnTimeout is invoked if Timeout elapses before the response completes.
	OnTimeout func(req *Request)
	// Timeout bounds the wait; zero means DefaultResponseTimeout. Refreshed
	// on every partial fragment of a multi-fragment response.
	Timeout time.Duration
}

// pendingEntry is one in-flight request awaiting its response.
type pendingEntry struct {
	desc     ResponseDescriptor
	snapshot *Request
	timer    *time.Timer
}

// pendingTable is the per-connection request/response correlation table.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint16]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[uint16]*pendingEntry)}
}

// has reports whether id is currently in flight; used by the id allocator
// to avoid handing out a colliding id.
func (t *pendingTable) has(id uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[id]
	return ok
}

// insert registers a pending response for id, arming its timeout timer.
// desc.OnTimeout fires (without the table lock held) if the timer expires
// before resolve removes the entry.
func (t *pendingTable) insert(id uint16, desc ResponseDescriptor, snapshot *Request) {
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	desc.Timeout = timeout

	e := &pendingEntry{desc: desc, snapshot: snapshot}

	t.mu.Lock()
	t.entries[id] = e
	e.timer = time.AfterFunc(timeout, func() {
		t.mu.Lock()
		cur, ok := t.entries[id]
		if ok && cur == e {
			delete(t.entries, id)
		}
		t.mu.Unlock()
		if ok && cur == e && e.desc.OnTimeout != nil {
			e.desc.OnTimeout(e.snapshot)
		}
	})
	t.mu.Unlock()
}

// refresh restarts id's timeout timer, used when a partial fragment of a
// multi-fragment response arrives.
func (t *pendingTable) refresh(id uint16) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok && e.timer != nil {
		e.timer.Stop()
		timeout := e.desc.Timeout
		e.timer = time.AfterFunc(timeout, func() {
			t.mu.Lock()
			cur, stillThere := t.entries[id]
			if stillThere && cur == e {
				delete(t.entries, id)
			}
			t.mu.Unlock()
			if stillThere && cur == e && e.desc.OnTimeout != nil {
				e.desc.OnTimeout(e.snapshot)
			}
		})
	}
	t.mu.Unlock()
}

// resolve removes and returns the pending entry for id, stopping its timer.
// Returns ok=false if no such entry exists (e.g. an unmatched RESPONSE).
func (t *pendingTable) resolve(id uint16) (*pendingEntry, bool) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(t.entries, id)
	}
	t.mu.Unlock()
	return e, ok
}

// cancelAll stops every timer and invokes onTimeout for each still-pending
// entry; called when the owning connection is destroyed.
func (t *pendingTable) cancelAll() {
	t.mu.Lock()
	drained := make([]*pendingEntry, 0, len(t.entries))
	for id, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		drained = append(drained, e)
		delete(t.entries, id)
	}
	t.mu.Unlock()

	for _, e := range drained {
		if e.desc.OnTimeout != nil {
			e.desc.OnTimeout(e.snapshot)
		}
	}
}
