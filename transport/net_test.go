// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"encoding/base64"
	"errors"
	"net"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gogama/httpasync/errcode"
	"github.com/gogama/httpasync/timeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http/httpproxy"
)

type recorder struct {
	ch chan Status
	t  *testing.T
}

func newRecorder(t *testing.T) *recorder {
	return &recorder{ch: make(chan Status, 8), t: t}
}

func (rec *recorder) callback(context uint64, s Status) {
	assert.Equal(rec.t, uint64(42), context)
	rec.ch <- s
}

func (rec *recorder) next() Status {
	rec.t.Helper()
	select {
	case s := <-rec.ch:
		return s
	case <-time.After(5 * time.Second):
		rec.t.Fatal("timed out waiting for notification")
		return Status{}
	}
}

func openRequest(t *testing.T, tr Transport, o SessionOptions, host string, port int, flags Flags) (Session, Request, *recorder) {
	s, err := tr.Open(o)
	require.NoError(t, err)
	c, err := s.Connect(host, port)
	require.NoError(t, err)
	r, err := c.OpenRequest("POST", "/test", flags)
	require.NoError(t, err)
	rec := newRecorder(t)
	r.SetCallback(rec.callback, AllNotifications, 42)
	return s, r, rec
}

// exchange sends header and body and drives the request until the
// response headers arrive, returning the status code.
func exchange(t *testing.T, r Request, rec *recorder, header string, body []byte) int {
	require.NoError(t, r.Send(header, body))
	s := rec.next()
	require.Equal(t, SendComplete, s.Notification, "error: %v", s.Err)
	require.NoError(t, r.ReceiveResponse())
	s = rec.next()
	require.Equal(t, HeadersAvailable, s.Notification, "error: %v", s.Err)
	code, err := r.StatusCode()
	require.NoError(t, err)
	return code
}

func TestNet(t *testing.T) {
	t.Run("https", testNetHTTPS)
	t.Run("plaintext", testNetPlaintext)
	t.Run("user agent", testNetUserAgent)
	t.Run("connection refused", testNetConnectionRefused)
	t.Run("receive timeout", testNetReceiveTimeout)
	t.Run("close during receive", testNetCloseDuringReceive)
	t.Run("untrusted certificate", testNetUntrustedCertificate)
	t.Run("invalid header", testNetInvalidHeader)
	t.Run("handle state", testNetHandleState)
	t.Run("proxy", testNetProxy)
	t.Run("proxy refused", testNetProxyRefused)
	t.Run("proxy credentials", testNetProxyCredentials)
}

func testNetHTTPS(t *testing.T) {
	t.Parallel()
	tr := &Net{TLSConfig: serverTLSConfig()}
	s, r, rec := openRequest(t, tr, SessionOptions{}, "127.0.0.1", serverPort(httpsServer), Secure)
	defer func() { _ = s.Close() }()

	code := exchange(t, r, rec, "Content-Type: application/json\r\n", (&serverInstruction{StatusCode: 201}).toJSON())

	assert.Equal(t, 201, code)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}

func testNetPlaintext(t *testing.T) {
	t.Parallel()
	s, r, rec := openRequest(t, &Net{}, SessionOptions{}, "127.0.0.1", serverPort(httpServer), 0)
	defer func() { _ = s.Close() }()

	code := exchange(t, r, rec, "", (&serverInstruction{StatusCode: 200}).toJSON())

	assert.Equal(t, 200, code)
}

func testNetUserAgent(t *testing.T) {
	t.Parallel()
	tr := &Net{TLSConfig: serverTLSConfig()}
	o := SessionOptions{UserAgent: "realtime-rest-check/1.0"}

	t.Run("session default", func(t *testing.T) {
		s, r, rec := openRequest(t, tr, o, "127.0.0.1", serverPort(httpsServer), Secure)
		defer func() { _ = s.Close() }()
		body := (&serverInstruction{StatusCode: 200, ExpectUserAgent: "realtime-rest-check/1.0"}).toJSON()
		assert.Equal(t, 200, exchange(t, r, rec, "", body))
	})
	t.Run("header block wins", func(t *testing.T) {
		s, r, rec := openRequest(t, tr, o, "127.0.0.1", serverPort(httpsServer), Secure)
		defer func() { _ = s.Close() }()
		body := (&serverInstruction{StatusCode: 200, ExpectUserAgent: "probe/2"}).toJSON()
		assert.Equal(t, 200, exchange(t, r, rec, "user-agent: probe/2", body))
	})
}

func testNetConnectionRefused(t *testing.T) {
	t.Parallel()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	s, r, rec := openRequest(t, &Net{}, SessionOptions{}, "127.0.0.1", port, Secure)
	defer func() { _ = s.Close() }()

	require.NoError(t, r.Send("", nil))
	st := rec.next()

	assert.Equal(t, RequestError, st.Notification)
	assert.Equal(t, errcode.CannotConnectCode, st.Code)
	var e *Error
	require.True(t, errors.As(st.Err, &e))
	assert.Equal(t, "send", e.Op)
	assert.Equal(t, errcode.CannotConnectCode, e.Code())
}

func testNetReceiveTimeout(t *testing.T) {
	t.Parallel()
	tr := &Net{
		TLSConfig: serverTLSConfig(),
		Timeouts:  timeout.Stages(5*time.Second, 5*time.Second, 100*time.Millisecond),
	}
	s, r, rec := openRequest(t, tr, SessionOptions{}, "127.0.0.1", serverPort(httpsServer), Secure)
	defer func() { _ = s.Close() }()

	require.NoError(t, r.Send("", (&serverInstruction{StatusCode: 200, HeaderPause: time.Second}).toJSON()))
	require.Equal(t, SendComplete, rec.next().Notification)
	require.NoError(t, r.ReceiveResponse())
	st := rec.next()

	assert.Equal(t, RequestError, st.Notification)
	assert.Equal(t, errcode.TimeoutCode, st.Code)
	var e *Error
	require.True(t, errors.As(st.Err, &e))
	assert.True(t, e.Timeout())
}

func testNetCloseDuringReceive(t *testing.T) {
	t.Parallel()
	tr := &Net{TLSConfig: serverTLSConfig()}
	s, r, rec := openRequest(t, tr, SessionOptions{}, "127.0.0.1", serverPort(httpsServer), Secure)
	defer func() { _ = s.Close() }()

	require.NoError(t, r.Send("", (&serverInstruction{StatusCode: 200, HeaderPause: 2 * time.Second}).toJSON()))
	require.Equal(t, SendComplete, rec.next().Notification)
	require.NoError(t, r.ReceiveResponse())

	start := time.Now()
	require.NoError(t, r.Close())

	assert.True(t, time.Since(start) < time.Second)
	assert.Len(t, rec.ch, 0, "no notification may follow Close")
	_, err := r.StatusCode()
	assert.Equal(t, errcode.IncorrectHandleStateCode, errcode.Of(err))
}

func testNetUntrustedCertificate(t *testing.T) {
	t.Parallel()
	s, r, rec := openRequest(t, &Net{}, SessionOptions{}, "127.0.0.1", serverPort(httpsServer), Secure)
	defer func() { _ = s.Close() }()

	require.NoError(t, r.Send("", nil))
	st := rec.next()

	assert.Equal(t, RequestError, st.Notification)
	assert.Equal(t, errcode.SecureFailureCode, st.Code)
}

func testNetInvalidHeader(t *testing.T) {
	t.Parallel()
	s, r, rec := openRequest(t, &Net{}, SessionOptions{}, "127.0.0.1", serverPort(httpServer), 0)
	defer func() { _ = s.Close() }()

	for _, header := range []string{"no colon here\r\n", "Host: example.com\r\n", "X-A: 1\nX-B: 2\r\n"} {
		err := r.Send(header, nil)
		var e *Error
		require.True(t, errors.As(err, &e), "header %q", header)
		assert.Equal(t, "send", e.Op)
		assert.Equal(t, errcode.InvalidParameterCode, e.Code(), "header %q", header)
	}

	// A rejected header block leaves the request sendable.
	assert.Equal(t, 200, exchange(t, r, rec, "X-Probe: 1\r\n", (&serverInstruction{StatusCode: 200}).toJSON()))
}

func testNetHandleState(t *testing.T) {
	t.Parallel()
	tr := &Net{}

	t.Run("bad options", func(t *testing.T) {
		_, err := tr.Open(SessionOptions{Proxy: ProxyPolicy(7)})
		assert.Equal(t, errcode.InvalidParameterCode, errcode.Of(err))
	})
	t.Run("bad connect", func(t *testing.T) {
		s, err := tr.Open(SessionOptions{})
		require.NoError(t, err)
		defer func() { _ = s.Close() }()
		_, err = s.Connect("", 443)
		assert.Equal(t, errcode.InvalidParameterCode, errcode.Of(err))
		_, err = s.Connect("example.com", 70000)
		assert.Equal(t, errcode.InvalidParameterCode, errcode.Of(err))
		c, err := s.Connect("bücher.example", 0)
		require.NoError(t, err)
		assert.Equal(t, "xn--bcher-kva.example", c.(*connection).host)
		assert.Equal(t, DefaultHTTPSPort, c.(*connection).port)
		_, err = c.OpenRequest("BAD METHOD", "/", Secure)
		assert.Equal(t, errcode.InvalidParameterCode, errcode.Of(err))
		_, err = c.OpenRequest("POST", "relative", Secure)
		assert.Equal(t, errcode.InvalidParameterCode, errcode.Of(err))
	})
	t.Run("out of order", func(t *testing.T) {
		s, r, _ := openRequest(t, tr, SessionOptions{}, "127.0.0.1", serverPort(httpServer), 0)
		defer func() { _ = s.Close() }()
		assert.Equal(t, errcode.IncorrectHandleStateCode, errcode.Of(r.ReceiveResponse()))
		_, err := r.StatusCode()
		assert.Equal(t, errcode.IncorrectHandleStateCode, errcode.Of(err))
	})
	t.Run("closed parent", func(t *testing.T) {
		s, err := tr.Open(SessionOptions{})
		require.NoError(t, err)
		c, err := s.Connect("127.0.0.1", serverPort(httpServer))
		require.NoError(t, err)
		r, err := c.OpenRequest("POST", "/", 0)
		require.NoError(t, err)

		require.NoError(t, s.Close())

		assert.Equal(t, errcode.IncorrectHandleStateCode, errcode.Of(r.Send("", nil)))
		_, err = c.OpenRequest("POST", "/", 0)
		assert.Equal(t, errcode.IncorrectHandleStateCode, errcode.Of(err))
		_, err = s.Connect("127.0.0.1", 80)
		assert.Equal(t, errcode.IncorrectHandleStateCode, errcode.Of(err))
		assert.NoError(t, c.Close())
		assert.NoError(t, s.Close())
	})
}

func testNetProxy(t *testing.T) {
	t.Parallel()
	proxy := newConnectProxy(httpsServer.Listener.Addr().String(), 200)
	defer proxy.Close()
	tr := &Net{
		TLSConfig:   serverTLSConfig(),
		ProxyConfig: &httpproxy.Config{HTTPSProxy: proxy.URL()},
	}
	port := serverPort(httpsServer)

	t.Run("automatic", func(t *testing.T) {
		s, r, rec := openRequest(t, tr, SessionOptions{Proxy: AutomaticProxy}, "example.com", port, Secure)
		defer func() { _ = s.Close() }()
		assert.Equal(t, 200, exchange(t, r, rec, "", (&serverInstruction{StatusCode: 200}).toJSON()))
		assert.Equal(t, []string{net.JoinHostPort("example.com", strconv.Itoa(port))}, proxy.Targets())
	})
	t.Run("none", func(t *testing.T) {
		s, r, rec := openRequest(t, tr, SessionOptions{Proxy: NoProxy}, "127.0.0.1", port, Secure)
		defer func() { _ = s.Close() }()
		assert.Equal(t, 204, exchange(t, r, rec, "", (&serverInstruction{StatusCode: 204}).toJSON()))
		assert.Len(t, proxy.Targets(), 1)
	})
}

func testNetProxyCredentials(t *testing.T) {
	t.Parallel()
	proxy := newConnectProxy(httpsServer.Listener.Addr().String(), 200)
	defer proxy.Close()
	u, err := url.Parse(proxy.URL())
	require.NoError(t, err)
	u.User = url.UserPassword("ops@example.com", "p:ss% word")
	tr := &Net{
		TLSConfig:   serverTLSConfig(),
		ProxyConfig: &httpproxy.Config{HTTPSProxy: u.String()},
	}
	s, r, rec := openRequest(t, tr, SessionOptions{Proxy: AutomaticProxy}, "example.com", serverPort(httpsServer), Secure)
	defer func() { _ = s.Close() }()

	assert.Equal(t, 200, exchange(t, r, rec, "", (&serverInstruction{StatusCode: 200}).toJSON()))

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("ops@example.com:p:ss% word"))
	assert.Equal(t, []string{want}, proxy.Auths())
}

func testNetProxyRefused(t *testing.T) {
	t.Parallel()
	proxy := newConnectProxy(httpsServer.Listener.Addr().String(), 403)
	defer proxy.Close()
	tr := &Net{
		TLSConfig:   serverTLSConfig(),
		ProxyConfig: &httpproxy.Config{HTTPSProxy: proxy.URL()},
	}
	s, r, rec := openRequest(t, tr, SessionOptions{Proxy: AutomaticProxy}, "example.com", serverPort(httpsServer), Secure)
	defer func() { _ = s.Close() }()

	require.NoError(t, r.Send("", nil))
	st := rec.next()

	assert.Equal(t, RequestError, st.Notification)
	assert.Equal(t, errcode.CannotConnectCode, st.Code)
}
