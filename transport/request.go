// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gogama/httpasync/errcode"
	"github.com/gogama/httpasync/request"
	"github.com/gogama/httpasync/timeout"
	"github.com/valyala/bytebufferpool"
)

type requestState int

const (
	stateOpen requestState = iota
	stateSending
	stateSent
	stateReceiving
	stateHeaders
	stateFailed
)

type httpRequest struct {
	handle
	conn   *connection
	method string
	path   string
	secure bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   requestState
	cb      Callback
	mask    Notification
	context uint64
	netConn net.Conn
	status  int
}

func (r *httpRequest) SetCallback(cb Callback, mask Notification, context uint64) {
	r.mu.Lock()
	r.cb, r.mask, r.context = cb, mask, context
	r.mu.Unlock()
}

func (r *httpRequest) Send(header string, body []byte) error {
	fields, err := request.ParseHeaderBlock(header)
	if err != nil {
		return opError("send", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isClosed() {
		return stateError("send", "request is closed")
	}
	if r.state != stateOpen {
		return stateError("send", "request was already sent")
	}

	buf := bytebufferpool.Get()
	r.render(buf, header, fields, body)
	r.state = stateSending
	r.wg.Add(1)
	go r.send(buf)
	return nil
}

// render writes the full request: request line, the caller's header
// block verbatim, the transport's own headers, and the body.
func (r *httpRequest) render(buf *bytebufferpool.ByteBuffer, header string, fields []request.Field, body []byte) {
	_, _ = buf.WriteString(r.method)
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(r.path)
	_, _ = buf.WriteString(" HTTP/1.1\r\n")
	if header != "" {
		_, _ = buf.WriteString(header)
		if !strings.HasSuffix(header, "\r\n") {
			_, _ = buf.WriteString("\r\n")
		}
	}
	_, _ = buf.WriteString("Host: ")
	_, _ = buf.WriteString(r.conn.hostHeader(r.secure))
	_, _ = buf.WriteString("\r\n")
	if ua := r.conn.session.options.UserAgent; ua != "" && !request.HasField(fields, "User-Agent") {
		_, _ = buf.WriteString("User-Agent: ")
		_, _ = buf.WriteString(ua)
		_, _ = buf.WriteString("\r\n")
	}
	_, _ = buf.WriteString("Content-Length: ")
	_, _ = buf.WriteString(strconv.Itoa(len(body)))
	_, _ = buf.WriteString("\r\nConnection: close\r\n\r\n")
	_, _ = buf.Write(body)
}

func (r *httpRequest) send(buf *bytebufferpool.ByteBuffer) {
	defer r.wg.Done()
	defer bytebufferpool.Put(buf)

	policy := r.conn.session.transport.timeouts()
	ctx := r.ctx
	if dl := timeout.Deadline(policy, timeout.Connect, time.Now()); !dl.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, dl)
		defer cancel()
	}

	nc, err := r.conn.dial(ctx, r.secure)
	if err != nil {
		r.fail("send", err)
		return
	}

	r.mu.Lock()
	if r.isClosed() {
		r.mu.Unlock()
		_ = nc.Close()
		return
	}
	r.netConn = nc
	r.mu.Unlock()

	if dl := timeout.Deadline(policy, timeout.Send, time.Now()); !dl.IsZero() {
		_ = nc.SetWriteDeadline(dl)
	}
	if _, err = nc.Write(buf.B); err != nil {
		r.fail("send", err)
		return
	}

	r.mu.Lock()
	r.state = stateSent
	r.mu.Unlock()
	r.notify(Status{Notification: SendComplete})
}

func (r *httpRequest) ReceiveResponse() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isClosed() {
		return stateError("receive", "request is closed")
	}
	if r.state != stateSent {
		return stateError("receive", "send has not completed")
	}

	r.state = stateReceiving
	r.wg.Add(1)
	go r.receive(r.netConn)
	return nil
}

func (r *httpRequest) receive(nc net.Conn) {
	defer r.wg.Done()

	policy := r.conn.session.transport.timeouts()
	if dl := timeout.Deadline(policy, timeout.Receive, time.Now()); !dl.IsZero() {
		_ = nc.SetReadDeadline(dl)
	}

	br := bufio.NewReader(nc)
	var resp *http.Response
	var err error
	for {
		resp, err = http.ReadResponse(br, nil)
		if err != nil {
			r.fail("receive", readError(err))
			return
		}
		// Skip interim responses such as 103 Early Hints.
		if resp.StatusCode < 100 || resp.StatusCode >= 200 || resp.StatusCode == http.StatusSwitchingProtocols {
			break
		}
	}

	r.mu.Lock()
	r.status = resp.StatusCode
	r.state = stateHeaders
	r.mu.Unlock()
	r.notify(Status{Notification: HeadersAvailable})
}

func (r *httpRequest) StatusCode() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateHeaders {
		return 0, stateError("query", "response headers are not available")
	}
	return r.status, nil
}

func (r *httpRequest) Close() error {
	if _, ok := r.shut(); !ok {
		return nil
	}
	r.cancel()

	r.mu.Lock()
	nc := r.netConn
	r.netConn = nil
	r.mu.Unlock()
	if nc != nil {
		_ = nc.Close()
	}

	r.wg.Wait()
	return nil
}

func (r *httpRequest) fail(op string, err error) {
	r.mu.Lock()
	r.state = stateFailed
	r.mu.Unlock()
	e := opError(op, err)
	r.notify(Status{Notification: RequestError, Err: e, Code: e.Code()})
}

// notify delivers s to the callback if it is selected by the mask and
// the request is still open.
func (r *httpRequest) notify(s Status) {
	r.mu.Lock()
	cb, mask, context := r.cb, r.mask, r.context
	r.mu.Unlock()
	if cb == nil || mask&s.Notification == 0 || r.isClosed() {
		return
	}
	cb(context, s)
}

// readError marks parse failures so they are told apart from I/O
// failures on the connection.
func readError(err error) error {
	var netErr net.Error
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &netErr) || errors.Is(err, net.ErrClosed) {
		return err
	}
	return fmt.Errorf("%w: %v", errcode.ErrInvalidResponse, err)
}
