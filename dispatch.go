// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

import (
	"sync"

	"github.com/gogama/httpasync/transport"
)

// registry maps attempt ids to the Controller running the attempt. The
// id, never a pointer, is the context value handed to the transport, so
// an event for a released attempt finds nothing and is dropped.
type registry struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]*Controller
}

var attempts = registry{entries: make(map[uint64]*Controller)}

func (r *registry) add(c *Controller) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.entries[r.next] = c
	return r.next
}

func (r *registry) remove(id uint64) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func (r *registry) lookup(id uint64) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

// dispatch is the transport.Callback installed on every request.
func dispatch(id uint64, s transport.Status) {
	c := attempts.lookup(id)
	if c == nil {
		return
	}
	c.box.post(event{attempt: id, status: s})
}

type event struct {
	attempt uint64
	status  transport.Status
}

// mailbox is an unbounded single-consumer queue. Posting never blocks,
// so a transport callback cannot stall behind the Controller's lock.
type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	events  []event
	pending int // posted but not yet applied
	closed  bool
}

func (b *mailbox) init() {
	b.cond = sync.NewCond(&b.mu)
}

func (b *mailbox) post(e event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.events = append(b.events, e)
	b.pending++
	b.cond.Broadcast()
	return true
}

// take waits for events and removes them all. It returns false once the
// mailbox is closed and empty.
func (b *mailbox) take() ([]event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.events) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.events) == 0 {
		return nil, false
	}
	events := b.events
	b.events = nil
	return events, true
}

// done marks n taken events as applied. The pump calls it after each
// batch, so pending reaches zero exactly when the pump has caught up.
func (b *mailbox) done(n int) {
	b.mu.Lock()
	b.pending -= n
	b.cond.Broadcast()
	b.mu.Unlock()
}

func (b *mailbox) close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
