// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

type connection struct {
	handle
	session *session
	host    string
	port    int
}

func (c *connection) OpenRequest(method, path string, flags Flags) (Request, error) {
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, paramError("open request", "invalid method "+strconv.Quote(method))
	}
	if !strings.HasPrefix(path, "/") || strings.ContainsAny(path, " \r\n") {
		return nil, paramError("open request", "invalid path "+strconv.Quote(path))
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &httpRequest{
		conn:   c,
		method: method,
		path:   path,
		secure: flags&Secure != 0,
		ctx:    ctx,
		cancel: cancel,
	}
	r.init(&c.handle, r)
	if !c.adopt(r) {
		cancel()
		return nil, stateError("open request", "connection is closed")
	}
	return r, nil
}

func (c *connection) Close() error {
	c.closeTree()
	return nil
}

func (c *connection) addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// hostHeader returns the Host header value, omitting the port when it
// is the default for the scheme.
func (c *connection) hostHeader(secure bool) string {
	if (secure && c.port == DefaultHTTPSPort) || (!secure && c.port == 80) {
		if strings.Contains(c.host, ":") {
			return "[" + c.host + "]"
		}
		return c.host
	}
	return c.addr()
}

// dial opens the network connection for one request, tunnelling
// through the session's proxy if it names one, and performs the TLS
// handshake for secure requests.
func (c *connection) dial(ctx context.Context, secure bool) (net.Conn, error) {
	d := &net.Dialer{Control: controlSocket}
	target := c.addr()

	proxyURL, err := c.session.proxyFor(target, secure)
	if err != nil {
		return nil, err
	}

	var conn net.Conn
	if proxyURL != nil {
		conn, err = dialProxy(ctx, d, proxyURL, target, c.session.transport.TLSConfig)
	} else {
		conn, err = d.DialContext(ctx, "tcp", target)
	}
	if err != nil {
		return nil, err
	}

	if !secure {
		return conn, nil
	}

	cfg := c.session.transport.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg.ServerName = c.host
	cfg.NextProtos = []string{"http/1.1"}
	tc := tls.Client(conn, cfg)
	if err = tc.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tc, nil
}
