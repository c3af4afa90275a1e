// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"io"
	"sync"
)

// A handle is one node in the session → connection → request ownership
// tree. A parent tracks its open children so that closing the parent
// closes each child exactly once, and a child detaches itself from its
// parent when it is closed first.
type handle struct {
	mu       sync.Mutex
	closed   bool
	parent   *handle
	self     io.Closer
	children map[io.Closer]struct{}
}

func (h *handle) init(parent *handle, self io.Closer) {
	h.parent = parent
	h.self = self
}

// adopt registers child under h. It fails if h is already closed, so a
// child can never be created under a closed parent.
func (h *handle) adopt(child io.Closer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.children == nil {
		h.children = make(map[io.Closer]struct{})
	}
	h.children[child] = struct{}{}
	return true
}

func (h *handle) forget(child io.Closer) {
	h.mu.Lock()
	delete(h.children, child)
	h.mu.Unlock()
}

func (h *handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// shut marks h closed and returns the children that were still open.
// The second return value is false if h was already closed.
func (h *handle) shut() ([]io.Closer, bool) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, false
	}
	h.closed = true
	children := make([]io.Closer, 0, len(h.children))
	for c := range h.children {
		children = append(children, c)
	}
	h.children = nil
	h.mu.Unlock()

	if h.parent != nil {
		h.parent.forget(h.self)
	}
	return children, true
}

// closeTree closes h and then each child which was still open. It
// reports whether this call did the closing.
func (h *handle) closeTree() bool {
	children, ok := h.shut()
	if !ok {
		return false
	}
	for _, c := range children {
		_ = c.Close()
	}
	return true
}
