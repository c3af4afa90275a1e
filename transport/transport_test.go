// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/gogama/httpasync/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/bytebufferpool"
)

func TestNotification_String(t *testing.T) {
	assert.Equal(t, "SendComplete", SendComplete.String())
	assert.Equal(t, "HeadersAvailable", HeadersAvailable.String())
	assert.Equal(t, "RequestError", RequestError.String())
	assert.Equal(t, "None", Notification(0).String())
	assert.Equal(t, "SendComplete|HeadersAvailable|RequestError", AllNotifications.String())
	assert.Equal(t, "SendComplete|0x10", (SendComplete | 0x10).String())
}

func TestProxyPolicy_String(t *testing.T) {
	assert.Equal(t, "none", NoProxy.String())
	assert.Equal(t, "auto", AutomaticProxy.String())
	assert.Equal(t, "ProxyPolicy(9)", ProxyPolicy(9).String())
}

type countingCloser struct {
	handle
	closes int
}

func (c *countingCloser) Close() error {
	if c.closeTree() {
		c.closes++
	}
	return nil
}

func TestHandle(t *testing.T) {
	t.Run("close parent closes children once", func(t *testing.T) {
		root := &countingCloser{}
		root.init(nil, root)
		a, b := &countingCloser{}, &countingCloser{}
		a.init(&root.handle, a)
		b.init(&root.handle, b)
		require.True(t, root.adopt(a))
		require.True(t, root.adopt(b))
		leaf := &countingCloser{}
		leaf.init(&a.handle, leaf)
		require.True(t, a.adopt(leaf))

		require.NoError(t, b.Close())
		require.NoError(t, root.Close())
		require.NoError(t, root.Close())

		assert.Equal(t, 1, root.closes)
		assert.Equal(t, 1, a.closes)
		assert.Equal(t, 1, b.closes)
		assert.Equal(t, 1, leaf.closes)
	})
	t.Run("closed parent adopts nothing", func(t *testing.T) {
		root := &countingCloser{}
		root.init(nil, root)
		require.NoError(t, root.Close())
		child := &countingCloser{}
		child.init(&root.handle, child)
		assert.False(t, root.adopt(child))
	})
	t.Run("child detaches", func(t *testing.T) {
		root := &countingCloser{}
		root.init(nil, root)
		child := &countingCloser{}
		child.init(&root.handle, child)
		require.True(t, root.adopt(child))
		require.NoError(t, child.Close())
		assert.Empty(t, root.children)
	})
}

func TestBasicAuth(t *testing.T) {
	testCases := []struct {
		user *url.Userinfo
		want string
	}{
		{url.UserPassword("alice", "secret"), "alice:secret"},
		{url.UserPassword("ops@example.com", "p:ss% word"), "ops@example.com:p:ss% word"},
		{url.User("bob"), "bob:"},
	}
	for _, testCase := range testCases {
		got := basicAuth(testCase.user)
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte(testCase.want)), got, testCase.want)
	}
}

func TestConnection_hostHeader(t *testing.T) {
	testCases := []struct {
		host   string
		port   int
		secure bool
		want   string
	}{
		{"example.com", 443, true, "example.com"},
		{"example.com", 8443, true, "example.com:8443"},
		{"example.com", 443, false, "example.com:443"},
		{"example.com", 80, false, "example.com"},
		{"::1", 443, true, "[::1]"},
		{"::1", 8443, true, "[::1]:8443"},
	}
	for _, testCase := range testCases {
		c := &connection{host: testCase.host, port: testCase.port}
		assert.Equal(t, testCase.want, c.hostHeader(testCase.secure), "%s port %d secure %t", testCase.host, testCase.port, testCase.secure)
	}
}

func TestRequest_render(t *testing.T) {
	s := &session{options: SessionOptions{UserAgent: "realtime-rest-check/1.0"}}
	c := &connection{session: s, host: "api.example.com", port: 443}
	r := &httpRequest{conn: c, method: "POST", path: "/v1/check?x=1", secure: true}

	testCases := []struct {
		name   string
		header string
		body   []byte
		want   string
	}{
		{
			name: "empty",
			want: "POST /v1/check?x=1 HTTP/1.1\r\n" +
				"Host: api.example.com\r\n" +
				"User-Agent: realtime-rest-check/1.0\r\n" +
				"Content-Length: 0\r\n" +
				"Connection: close\r\n\r\n",
		},
		{
			name:   "header block and body",
			header: "Content-Type: application/json\r\nX-Trace: abc",
			body:   []byte(`{"a":1}`),
			want: "POST /v1/check?x=1 HTTP/1.1\r\n" +
				"Content-Type: application/json\r\nX-Trace: abc\r\n" +
				"Host: api.example.com\r\n" +
				"User-Agent: realtime-rest-check/1.0\r\n" +
				"Content-Length: 7\r\n" +
				"Connection: close\r\n\r\n" +
				`{"a":1}`,
		},
		{
			name:   "caller user agent",
			header: "User-Agent: probe/2\r\n",
			want: "POST /v1/check?x=1 HTTP/1.1\r\n" +
				"User-Agent: probe/2\r\n" +
				"Host: api.example.com\r\n" +
				"Content-Length: 0\r\n" +
				"Connection: close\r\n\r\n",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			fields, err := request.ParseHeaderBlock(testCase.header)
			require.NoError(t, err)
			buf := bytebufferpool.Get()
			defer bytebufferpool.Put(buf)

			r.render(buf, testCase.header, fields, testCase.body)

			assert.Equal(t, testCase.want, buf.String())
		})
	}
}
