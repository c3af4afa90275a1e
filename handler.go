// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

// A HandlerGroup is a group of phase handler chains which can be
// installed in a Controller.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack adds a handler to the back of the handler chain for a
// specific phase.
func (g *HandlerGroup) PushBack(p Phase, h Handler) {
	if h == nil {
		panic("httpasync: nil handler")
	}
	if p < 0 || int(p) >= numPhases {
		panic("httpasync: unknown phase")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numPhases)
	}

	g.handlers[p] = append(g.handlers[p], h)
}

// PushBackAll adds a handler to the back of every phase's handler chain.
func (g *HandlerGroup) PushBackAll(h Handler) {
	for _, p := range Phases() {
		g.PushBack(p, h)
	}
}

func (g *HandlerGroup) run(p Phase, s Snapshot) {
	if g == nil {
		return
	}
	i := int(p)
	if i < len(g.handlers) {
		run(g.handlers[i], p, s)
	}
}

func run(chain []Handler, p Phase, s Snapshot) {
	for _, h := range chain {
		h.Handle(p, s)
	}
}

// A Handler handles an attempt's entry into a phase.
//
// Handlers run on whichever goroutine caused the transition, while the
// Controller's lock is held, so that every handler observes transitions
// in the order they happened. A Handler must therefore return promptly
// and must not call methods of the Controller that invoked it.
type Handler interface {
	Handle(Phase, Snapshot)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as phase handlers. If f is a function with appropriate
// signature, then HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Phase, Snapshot)

// Handle calls f(p, s).
func (f HandlerFunc) Handle(p Phase, s Snapshot) {
	f(p, s)
}
