// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dchest/uniuri"
	"github.com/gogama/httpasync/errcode"
	"github.com/gogama/httpasync/request"
	"github.com/gogama/httpasync/transport"
)

// DefaultUserAgent is the User-Agent sent when Controller.UserAgent is
// empty and the caller's header block does not name one.
const DefaultUserAgent = "realtime-rest-check/1.0"

const traceLen = 12

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// A Controller runs one asynchronous HTTPS request attempt at a time and
// tracks its progress through a Phase. Its zero value is a valid
// configuration.
//
// The zero value controller uses transport.Default as the transport,
// connects to port 443, sends DefaultUserAgent, connects without a
// proxy, logs nothing, and runs no phase handlers.
//
// Start returns as soon as the request has been handed to the
// transport. The transport reports progress through completion events
// which the Controller applies on its own goroutine, so the phase read
// by Phase, or observed by a Handler, advances on its own. Cancel may be
// called at any time to abort the attempt.
//
// A Controller owns the session, connection, and request handles of the
// current attempt exclusively and releases them, request first, when
// the attempt reaches HeadersDone, Error, or Canceled. Call Close when
// done with the Controller.
//
// Controller is safe for concurrent use by multiple goroutines.
type Controller struct {
	// Transport opens the handles for each attempt.
	//
	// If Transport is nil, transport.Default is used.
	Transport transport.Transport
	// Port is the server port.
	//
	// If Port is zero, transport.DefaultHTTPSPort is used.
	Port int
	// UserAgent is the session user agent.
	//
	// If UserAgent is empty, DefaultUserAgent is used.
	UserAgent string
	// Proxy is the session proxy policy. The zero value is
	// transport.NoProxy.
	Proxy transport.ProxyPolicy
	// Handlers allows custom handler chains to be invoked when the
	// current attempt enters a phase.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives debug records for transitions and dropped events,
	// and warnings for failed attempts.
	//
	// If Logger is nil, nothing is logged.
	Logger *slog.Logger

	once sync.Once
	box  mailbox
	done chan struct{}

	mu     sync.Mutex
	closed bool
	a      attempt
}

type attempt struct {
	id         uint64
	trace      string
	session    transport.Session
	conn       transport.Connection
	req        transport.Request
	phase      Phase
	statusCode int
	err        *AttemptError
	start      time.Time
	end        time.Time
}

func (a *attempt) snapshot() Snapshot {
	return Snapshot{
		ID:         a.id,
		Trace:      a.trace,
		Phase:      a.phase,
		StatusCode: a.statusCode,
		Err:        a.err,
		Session:    a.session != nil,
		Connection: a.conn != nil,
		Request:    a.req != nil,
		Start:      a.start,
		End:        a.end,
	}
}

// Start starts an attempt to POST body to host and path. The headers
// parameter is a block of CRLF-terminated header lines written verbatim
// ahead of the transport's own Host, User-Agent, and Content-Length
// headers.
//
// Start returns false without any side effect if an attempt is already
// active or the Controller is closed. Otherwise it returns true once the
// request has been handed to the transport, leaving the phase Sending,
// or false if a handle could not be opened or the send was refused,
// leaving the phase Error with LastError describing the failure.
func (c *Controller) Start(host, path, headers string, body []byte) bool {
	return c.StartPlan(&request.Plan{
		Method: request.DefaultMethod,
		Host:   host,
		Path:   path,
		Header: headers,
		Body:   body,
	})
}

// StartPlan is like Start, but takes the attempt's parameters from p.
func (c *Controller) StartPlan(p *request.Plan) bool {
	c.init()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger().Warn("Start rejected: controller is closed")
		return false
	}
	if c.a.phase.Active() {
		c.logger().Debug("Start rejected: attempt in flight",
			"attempt", c.a.id, "trace", c.a.trace, "phase", c.a.phase)
		return false
	}

	c.a = attempt{
		id:    attempts.add(c),
		trace: uniuri.NewLen(traceLen),
		phase: c.a.phase,
		start: time.Now(),
	}

	s, err := c.transport().Open(transport.SessionOptions{
		UserAgent: c.userAgent(),
		Proxy:     c.Proxy,
	})
	if err != nil {
		c.fail(HandleCreationFailed, 0, err)
		return false
	}
	c.a.session = s

	conn, err := s.Connect(p.Host, c.port())
	if err != nil {
		c.fail(HandleCreationFailed, 0, err)
		return false
	}
	c.a.conn = conn

	req, err := conn.OpenRequest(p.RequestMethod(), p.Path, transport.Secure)
	if err != nil {
		c.fail(HandleCreationFailed, 0, err)
		return false
	}
	c.a.req = req

	req.SetCallback(dispatch, transport.AllNotifications, c.a.id)
	if err = req.Send(p.Header, p.Body); err != nil {
		c.fail(SendFailed, 0, err)
		return false
	}

	c.setPhase(Sending)
	return true
}

// Cancel aborts the current attempt, if any, releases every handle it
// holds, and moves to the Canceled phase. Events which arrive for the
// canceled attempt afterward are dropped. Cancel is idempotent and safe
// to call in any phase.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
}

func (c *Controller) cancel() {
	c.release()
	if c.a.end.IsZero() && !c.a.start.IsZero() {
		c.a.end = time.Now()
	}
	c.setPhase(Canceled)
}

// Reset clears the recorded status code and error without changing the
// phase. It does nothing while an attempt is active.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.a.phase.Active() {
		return
	}
	c.a.statusCode = 0
	c.a.err = nil
}

// Close shuts the Controller down. If the current attempt still holds
// handles it is canceled first. Close then stops the goroutine which
// applies completion events. After Close, Start always returns false.
// Close is idempotent.
func (c *Controller) Close() error {
	c.init()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.a.holding() {
		c.cancel()
	}
	c.mu.Unlock()

	c.box.close()
	<-c.done
	return nil
}

// Phase returns the phase of the current attempt.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.a.phase
}

// StatusCode returns the response status of the current attempt, or
// zero if none was received.
func (c *Controller) StatusCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.a.statusCode
}

// LastError returns the cause of the Error phase, or nil.
func (c *Controller) LastError() *AttemptError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.a.err
}

// Snapshot returns a copy of the state of the current attempt.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.a.snapshot()
}

func (c *Controller) init() {
	c.once.Do(func() {
		c.box.init()
		c.done = make(chan struct{})
		go c.pump()
	})
}

// pump applies completion events in the order they were posted.
func (c *Controller) pump() {
	defer close(c.done)
	for {
		events, ok := c.box.take()
		if !ok {
			return
		}
		for _, e := range events {
			c.apply(e)
		}
		c.box.done(len(events))
	}
}

func (c *Controller) apply(e event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := e.status.Notification
	if e.attempt != c.a.id || c.a.req == nil {
		c.drop(e, "attempt released")
		return
	}

	switch n {
	case transport.SendComplete:
		if c.a.phase != Sending {
			c.drop(e, "unexpected phase")
			return
		}
		if err := c.a.req.ReceiveResponse(); err != nil {
			c.fail(SendFailed, 0, err)
			return
		}
		c.setPhase(Waiting)
	case transport.HeadersAvailable:
		if c.a.phase != Waiting {
			c.drop(e, "unexpected phase")
			return
		}
		code, err := c.a.req.StatusCode()
		if err != nil {
			c.fail(TransportError, 0, err)
			return
		}
		c.a.statusCode = code
		c.a.end = time.Now()
		c.release()
		c.setPhase(HeadersDone)
	case transport.RequestError:
		if !c.a.phase.Active() {
			c.drop(e, "unexpected phase")
			return
		}
		c.fail(TransportError, e.status.Code, e.status.Err)
	default:
		c.drop(e, "unknown notification")
	}
}

func (c *Controller) drop(e event, reason string) {
	c.logger().Debug("Dropped completion event",
		"attempt", e.attempt, "notification", e.status.Notification,
		"reason", reason, "phase", c.a.phase)
}

// fail records the attempt's error, releases its handles, and moves it
// to the Error phase. If code is zero, it is derived from err.
func (c *Controller) fail(kind ErrorKind, code int, err error) {
	if code == 0 {
		code = errcode.Of(err)
	}
	c.a.err = &AttemptError{Kind: kind, Code: code, Err: err}
	c.a.end = time.Now()
	c.release()
	c.logger().Warn("Request attempt failed",
		"attempt", c.a.id, "trace", c.a.trace, "kind", kind,
		"code", code, "error", err)
	c.setPhase(Error)
}

// release closes the attempt's handles in reverse order of creation.
// The attempt leaves the registry first so that no new event for it
// can be posted.
func (c *Controller) release() {
	if c.a.id != 0 {
		attempts.remove(c.a.id)
	}
	if c.a.req != nil {
		_ = c.a.req.Close()
		c.a.req = nil
	}
	if c.a.conn != nil {
		_ = c.a.conn.Close()
		c.a.conn = nil
	}
	if c.a.session != nil {
		_ = c.a.session.Close()
		c.a.session = nil
	}
}

func (a *attempt) holding() bool {
	return a.session != nil || a.conn != nil || a.req != nil
}

// setPhase moves the attempt to p and runs the handlers for p. Only a
// repeated Cancel leaves the phase unchanged; a new attempt failing from
// the Error phase still runs the Error handlers.
func (c *Controller) setPhase(p Phase) {
	if c.a.phase == p && p == Canceled {
		return
	}
	from := c.a.phase
	c.a.phase = p
	c.logger().Debug("Phase changed",
		"attempt", c.a.id, "trace", c.a.trace, "from", from, "phase", p)
	c.Handlers.run(p, c.a.snapshot())
}

func (c *Controller) transport() transport.Transport {
	if c.Transport == nil {
		return transport.Default
	}
	return c.Transport
}

func (c *Controller) port() int {
	if c.Port == 0 {
		return transport.DefaultHTTPSPort
	}
	return c.Port
}

func (c *Controller) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}
