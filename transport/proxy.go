// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

type proxyFunc func(*url.URL) (*url.URL, error)

var proxyPorts = map[string]string{
	"http": "80", "https": "443",
}

// proxyFor returns the proxy to use for target, or nil to connect
// directly.
func (s *session) proxyFor(target string, secure bool) (*url.URL, error) {
	if s.proxy == nil {
		return nil, nil
	}
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return s.proxy(&url.URL{Scheme: scheme, Host: target})
}

// dialProxy opens a tunnel to target through an HTTP or HTTPS proxy
// using the CONNECT method. The returned connection carries the raw
// byte stream to target.
func dialProxy(ctx context.Context, d *net.Dialer, proxy *url.URL, target string, tlsConfig *tls.Config) (net.Conn, error) {
	port, ok := proxyPorts[proxy.Scheme]
	if !ok {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("unsupported proxy scheme %q", proxy.Scheme)}
	}
	if p := proxy.Port(); p != "" {
		port = p
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(proxy.Hostname(), port))
	if err != nil {
		return nil, err
	}

	if proxy.Scheme == "https" {
		cfg := tlsConfig.Clone()
		if cfg == nil {
			cfg = &tls.Config{}
		}
		cfg.ServerName = proxy.Hostname()
		tc := tls.Client(conn, cfg)
		if err = tc.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tc
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	req := "CONNECT " + target + " HTTP/1.1\r\nHost: " + target + "\r\n"
	if proxy.User != nil {
		req += "Proxy-Authorization: " + basicAuth(proxy.User) + "\r\n"
	}
	req += "\r\n"
	if _, err = conn.Write([]byte(req)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: http.MethodConnect})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("proxy CONNECT to %s returned status %d", target, resp.StatusCode)}
	}

	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

// basicAuth returns the Basic credentials for u, unescaped.
func basicAuth(u *url.Userinfo) string {
	password, _ := u.Password()
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(u.Username()+":"+password))
}
