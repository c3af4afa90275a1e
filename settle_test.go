// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

// settle waits until every completion event posted so far has been
// applied.
func (c *Controller) settle() {
	c.init()
	c.box.drain()
}

// drain waits until every posted event has been applied.
func (b *mailbox) drain() {
	b.mu.Lock()
	for b.pending > 0 {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
