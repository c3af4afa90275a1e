// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"fmt"
)

// DefaultHTTPSPort is the port a Connection uses when the caller does
// not name one.
const DefaultHTTPSPort = 443

// A Notification identifies a completion event which a Request reports
// through its Callback. Notifications are bit flags so that a set of
// them can be used as a callback mask.
type Notification uint32

const (
	// SendComplete reports that the request line, headers, and body
	// were fully written. The owner should call ReceiveResponse next.
	SendComplete Notification = 1 << iota
	// HeadersAvailable reports that the response status line and
	// headers were read. StatusCode may be called.
	HeadersAvailable
	// RequestError reports an asynchronous failure. The Status carries
	// the cause and its platform error code.
	RequestError

	// AllNotifications is the mask selecting every notification.
	AllNotifications = SendComplete | HeadersAvailable | RequestError
)

// String returns the name of the notification, or a '|' separated list
// of names if n has more than one bit set.
func (n Notification) String() string {
	switch n {
	case SendComplete:
		return "SendComplete"
	case HeadersAvailable:
		return "HeadersAvailable"
	case RequestError:
		return "RequestError"
	case 0:
		return "None"
	}
	var s string
	for _, one := range []Notification{SendComplete, HeadersAvailable, RequestError} {
		if n&one != 0 {
			if s != "" {
				s += "|"
			}
			s += one.String()
		}
	}
	if rest := n &^ AllNotifications; rest != 0 {
		if s != "" {
			s += "|"
		}
		s += fmt.Sprintf("0x%x", uint32(rest))
	}
	return s
}

// A Status is delivered with each notification.
type Status struct {
	// Notification is the event being reported.
	Notification Notification
	// Err is the cause of a RequestError notification, otherwise nil.
	Err error
	// Code is the platform error code of a RequestError notification,
	// otherwise zero.
	Code int
}

// A Callback receives completion events for a Request. It is invoked on
// a goroutine owned by the transport, never on the goroutine that called
// Send or ReceiveResponse.
//
// The context value is the opaque value registered with SetCallback. A
// Callback must not block: it should hand the event off and return.
// Request.Close waits for a running Callback to return.
type Callback func(context uint64, s Status)

// A ProxyPolicy is the fixed proxy behavior of a Session.
type ProxyPolicy int

const (
	// NoProxy connects directly to every host.
	NoProxy ProxyPolicy = iota
	// AutomaticProxy uses the proxy named by the HTTPS_PROXY and
	// NO_PROXY environment variables, tunnelling with CONNECT.
	AutomaticProxy
)

// String returns "none" or "auto".
func (p ProxyPolicy) String() string {
	switch p {
	case NoProxy:
		return "none"
	case AutomaticProxy:
		return "auto"
	default:
		return fmt.Sprintf("ProxyPolicy(%d)", int(p))
	}
}

// Flags modify how a Request is opened.
type Flags uint32

// Secure makes the request use TLS.
const Secure Flags = 1

// SessionOptions configure a Session.
type SessionOptions struct {
	// UserAgent is sent in the User-Agent header of every request
	// unless the caller's header block provides one.
	UserAgent string
	// Proxy is the session's proxy policy.
	Proxy ProxyPolicy
}

// A Transport opens Sessions. Implementations must be safe for
// concurrent use by multiple goroutines.
type Transport interface {
	Open(o SessionOptions) (Session, error)
}

// A Session is the root of the handle hierarchy. Closing it closes every
// Connection (and so every Request) opened under it which is still open.
type Session interface {
	// Connect opens a Connection to host and port under the session.
	// No network traffic happens until a Request under it is sent.
	Connect(host string, port int) (Connection, error)
	// Close closes the session. It is idempotent.
	Close() error
}

// A Connection is bound to one host and port. Closing it closes every
// Request opened under it which is still open.
type Connection interface {
	// OpenRequest opens a Request for method and path.
	OpenRequest(method, path string, flags Flags) (Request, error)
	// Close closes the connection. It is idempotent.
	Close() error
}

// A Request is the unit that is sent and receives a response.
//
// Send and ReceiveResponse never block on the network. Their outcome is
// reported through the Callback installed with SetCallback.
type Request interface {
	// SetCallback installs cb. Only notifications selected by mask are
	// delivered, and context is passed back on every invocation.
	SetCallback(cb Callback, mask Notification, context uint64)
	// Send starts writing the request: the header block verbatim,
	// then the transport's default headers, then body.
	Send(header string, body []byte) error
	// ReceiveResponse starts reading the response headers. It may only
	// be called after SendComplete was delivered.
	ReceiveResponse() error
	// StatusCode returns the numeric response status. It may only be
	// called after HeadersAvailable was delivered.
	StatusCode() (int, error)
	// Close aborts any in-flight I/O, waits for a running Callback to
	// return, and releases the request. It is idempotent. Once Close
	// returns, no further Callback is invoked for the request.
	Close() error
}
