package iotproto

import (
	"sync"
	"time"
)

// Reassembler supplies per-id cross-fragment bookkeeping to DecodeRequest.
// *reassemblyTable implements this; each Conn passes its own table. Passing nil treats every id as fresh, which is
// correct for decoding a standalone, already-complete frame (as in the
// codec's round-trip tests) but not for a live multi-fragment stream.
type Reassembler interface {
	// received returns the bytes already accumulated for id, and whether
	// a reassembly entry exists at all.
	received(id uint16) (received int, ok bool)
	// accumulate records n more body bytes received for id, creating the
	// entry (with the declared total) if this is the first fragment.
	accumulate(id uint16, total int, n int)
	// finish removes the reassembly entry for id; called once the
	// declared total has been fully received.
	finish(id uint16)
}

// reassemblyEntry tracks one in-progress multi-fragment body.
type reassemblyEntry struct {
	total    int
	received int
	parts    int
	timer    *time.Timer
}

// reassemblyTable is the per-connection map of in-progress multi-fragment
// receives, guarded by its own mutex so it can be touched by the read loop
// without taking the connection's write mutex.
type reassemblyTable struct {
	mu      sync.Mutex
	entries map[uint16]*reassemblyEntry
	onStale func(id uint16) // invoked (without the table lock held) on inactivity timeout
}

func newReassemblyTable(onStale func(id uint16)) *reassemblyTable {
	return &reassemblyTable{
		entries: make(map[uint16]*reassemblyEntry),
		onStale: onStale,
	}
}

func (t *reassemblyTable) received(id uint16) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return 0, false
	}
	return e.received, true
}

func (t *reassemblyTable) accumulate(id uint16, total int, n int) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		e = &reassemblyEntry{total: total}
		t.entries[id] = e
	}
	e.parts++
	e.received += n
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(MultipartInactivityTimeout, func() { t.expire(id) })
	t.mu.Unlock()
}

// parts returns the number of fragments accumulated so far for id.
func (t *reassemblyTable) parts(id uint16) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		return e.parts
	}
	return 0
}

func (t *reassemblyTable) finish(id uint16) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(t.entries, id)
	}
	t.mu.Unlock()
}

// expire silently discards a stale reassembly after MultipartInactivityTimeout
// of inactivity. No error is surfaced; a later fragment for the same id
// starts a fresh reassembly.
func (t *reassemblyTable) expire(id uint16) {
	t.mu.Lock()
	_, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if ok && t.onStale != nil {
		t.onStale(id)
	}
}

// closeAll stops every outstanding inactivity timer; called when the
// owning connection is destroyed.
func (t *reassemblyTable) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(t.entries, id)
	}
}
