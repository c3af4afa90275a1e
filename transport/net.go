// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"crypto/tls"
	"net"
	"strconv"

	"github.com/gogama/httpasync/timeout"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/idna"
)

// Default is the transport used when none is specified.
var Default Transport = &Net{}

// Net is a Transport which speaks HTTP/1.1, over TLS for Secure
// requests, on TCP connections. Its zero value is a valid
// configuration.
//
// Each Request dials its own connection and sends "Connection: close",
// so nothing is shared between requests and closing a Request releases
// every network resource it used.
type Net struct {
	// TLSConfig is cloned for each Secure request. If nil, the default
	// configuration (system roots) is used. ServerName is always set to
	// the connection's host.
	TLSConfig *tls.Config

	// Timeouts sets the I/O deadline for each stage of a request. If
	// nil, timeout.DefaultPolicy is used.
	Timeouts timeout.Policy

	// ProxyConfig is consulted by sessions opened with AutomaticProxy.
	// If nil, the configuration is read from the environment when the
	// session is opened.
	ProxyConfig *httpproxy.Config
}

// Open opens a new Session.
func (t *Net) Open(o SessionOptions) (Session, error) {
	if o.Proxy != NoProxy && o.Proxy != AutomaticProxy {
		return nil, paramError("open", "unknown proxy policy "+o.Proxy.String())
	}
	s := &session{
		transport: t,
		options:   o,
	}
	s.init(nil, s)
	if o.Proxy == AutomaticProxy {
		cfg := t.ProxyConfig
		if cfg == nil {
			cfg = httpproxy.FromEnvironment()
		}
		s.proxy = cfg.ProxyFunc()
	}
	return s, nil
}

func (t *Net) timeouts() timeout.Policy {
	if t.Timeouts == nil {
		return timeout.DefaultPolicy
	}
	return t.Timeouts
}

type session struct {
	handle
	transport *Net
	options   SessionOptions
	proxy     proxyFunc
}

func (s *session) Connect(host string, port int) (Connection, error) {
	if port == 0 {
		port = DefaultHTTPSPort
	}
	if port < 0 || port > 65535 {
		return nil, paramError("connect", "port out of range: "+strconv.Itoa(port))
	}
	ascii, err := normalizeHost(host)
	if err != nil {
		return nil, opError("connect", err)
	}
	c := &connection{
		session: s,
		host:    ascii,
		port:    port,
	}
	c.init(&s.handle, c)
	if !s.adopt(c) {
		return nil, stateError("connect", "session is closed")
	}
	return c, nil
}

func (s *session) Close() error {
	s.closeTree()
	return nil
}

func normalizeHost(host string) (string, error) {
	if host == "" {
		return "", paramError("connect", "empty host").Err
	}
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", paramError("connect", "invalid host "+strconv.Quote(host)+": "+err.Error()).Err
	}
	return ascii, nil
}
