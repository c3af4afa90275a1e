// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

import (
	"sync"
	"testing"

	"github.com/gogama/httpasync/transport"
	"github.com/stretchr/testify/mock"
)

// simTransport is a simulated transport which counts handle opens and
// closes. In auto mode it fires completion events synchronously from
// Send and ReceiveResponse; otherwise the test fires them by hand.
type simTransport struct {
	auto       bool
	status     int
	sendResult *transport.Status

	failOpen        error
	failConnect     error
	failOpenRequest error
	failSend        error
	failReceive     error
	failStatus      error

	mu           sync.Mutex
	opens        int
	closes       int
	doubleCloses int
	closeOrder   []string
	options      []transport.SessionOptions
	requests     []*simRequest
}

func (st *simTransport) opened() {
	st.mu.Lock()
	st.opens++
	st.mu.Unlock()
}

func (st *simTransport) closed(kind string, already bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if already {
		st.doubleCloses++
		return
	}
	st.closes++
	st.closeOrder = append(st.closeOrder, kind)
}

func (st *simTransport) counts() (opens, closes, doubleCloses int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.opens, st.closes, st.doubleCloses
}

func (st *simTransport) order() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.closeOrder...)
}

func (st *simTransport) last() *simRequest {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.requests) == 0 {
		return nil
	}
	return st.requests[len(st.requests)-1]
}

func (st *simTransport) Open(o transport.SessionOptions) (transport.Session, error) {
	if st.failOpen != nil {
		return nil, st.failOpen
	}
	st.mu.Lock()
	st.options = append(st.options, o)
	st.mu.Unlock()
	st.opened()
	return &simSession{t: st}, nil
}

type simSession struct {
	t      *simTransport
	closed bool
}

func (s *simSession) Connect(host string, port int) (transport.Connection, error) {
	if s.t.failConnect != nil {
		return nil, s.t.failConnect
	}
	s.t.opened()
	return &simConnection{t: s.t, host: host, port: port}, nil
}

func (s *simSession) Close() error {
	s.t.closed("session", s.closed)
	s.closed = true
	return nil
}

type simConnection struct {
	t      *simTransport
	host   string
	port   int
	closed bool
}

func (c *simConnection) OpenRequest(method, path string, flags transport.Flags) (transport.Request, error) {
	if c.t.failOpenRequest != nil {
		return nil, c.t.failOpenRequest
	}
	c.t.opened()
	r := &simRequest{t: c.t, conn: c, method: method, path: path, flags: flags}
	c.t.mu.Lock()
	c.t.requests = append(c.t.requests, r)
	c.t.mu.Unlock()
	return r, nil
}

func (c *simConnection) Close() error {
	c.t.closed("connection", c.closed)
	c.closed = true
	return nil
}

type simRequest struct {
	t      *simTransport
	conn   *simConnection
	method string
	path   string
	flags  transport.Flags

	mu      sync.Mutex
	cb      transport.Callback
	mask    transport.Notification
	context uint64
	header  string
	body    []byte
	closed  bool
}

func (r *simRequest) SetCallback(cb transport.Callback, mask transport.Notification, context uint64) {
	r.mu.Lock()
	r.cb, r.mask, r.context = cb, mask, context
	r.mu.Unlock()
}

func (r *simRequest) Send(header string, body []byte) error {
	if r.t.failSend != nil {
		return r.t.failSend
	}
	r.mu.Lock()
	r.header, r.body = header, body
	r.mu.Unlock()
	if r.t.sendResult != nil {
		r.fire(*r.t.sendResult)
	} else if r.t.auto {
		r.fire(transport.Status{Notification: transport.SendComplete})
	}
	return nil
}

func (r *simRequest) ReceiveResponse() error {
	if r.t.failReceive != nil {
		return r.t.failReceive
	}
	if r.t.auto {
		r.fire(transport.Status{Notification: transport.HeadersAvailable})
	}
	return nil
}

func (r *simRequest) StatusCode() (int, error) {
	if r.t.failStatus != nil {
		return 0, r.t.failStatus
	}
	return r.t.status, nil
}

func (r *simRequest) Close() error {
	r.mu.Lock()
	already := r.closed
	r.closed = true
	r.mu.Unlock()
	r.t.closed("request", already)
	return nil
}

// fire delivers s to the installed callback, whether or not the request
// is closed, so tests can simulate a late event.
func (r *simRequest) fire(s transport.Status) {
	r.mu.Lock()
	cb, mask, context := r.cb, r.mask, r.context
	r.mu.Unlock()
	if cb != nil && mask&s.Notification != 0 {
		cb(context, s)
	}
}

func (r *simRequest) ctx() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.context
}

type mockTransport struct {
	mock.Mock
}

func newMockTransport(t *testing.T) *mockTransport {
	m := &mockTransport{}
	m.Test(t)
	return m
}

func (m *mockTransport) Open(o transport.SessionOptions) (transport.Session, error) {
	args := m.Called(o)
	s, _ := args.Get(0).(transport.Session)
	return s, args.Error(1)
}

type mockSession struct {
	mock.Mock
}

func newMockSession(t *testing.T) *mockSession {
	m := &mockSession{}
	m.Test(t)
	return m
}

func (m *mockSession) Connect(host string, port int) (transport.Connection, error) {
	args := m.Called(host, port)
	c, _ := args.Get(0).(transport.Connection)
	return c, args.Error(1)
}

func (m *mockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockHandler struct {
	mock.Mock
}

func (m *mockHandler) Handle(p Phase, s Snapshot) {
	m.Called(p, s)
}

func (g *HandlerGroup) mock(p Phase) *mockHandler {
	if len(g.handlers) > int(p) {
		for _, h := range g.handlers[p] {
			if m, ok := h.(*mockHandler); ok {
				return m
			}
		}
	}

	m := &mockHandler{}
	g.PushBack(p, m)
	return m
}

func (g *HandlerGroup) assertExpectations(t *testing.T) {
	if g.handlers == nil {
		return
	}

	for _, p := range Phases() {
		for _, h := range g.handlers[p] {
			if m, ok := h.(*mockHandler); ok {
				m.AssertExpectations(t)
			}
		}
	}
}

// phaseTrace records every phase entered, in order.
type phaseTrace struct {
	mu     sync.Mutex
	phases []Phase
}

func (c *Controller) addTraceHandlers() *phaseTrace {
	tr := &phaseTrace{}
	if c.Handlers == nil {
		c.Handlers = &HandlerGroup{}
	}
	c.Handlers.PushBackAll(HandlerFunc(func(p Phase, _ Snapshot) {
		tr.mu.Lock()
		tr.phases = append(tr.phases, p)
		tr.mu.Unlock()
	}))
	return tr
}

func (tr *phaseTrace) get() []Phase {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Phase(nil), tr.phases...)
}
