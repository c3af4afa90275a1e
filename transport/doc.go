// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package transport defines the handle-based asynchronous HTTP transport
used by an httpasync Controller, and provides Net, an implementation
that speaks HTTP/1.1 over TCP and TLS.

Handles form a three-level tree: a Session opens Connections, and a
Connection opens Requests. Closing a handle closes its open children.
A Request reports the completion of Send and ReceiveResponse through a
Callback invoked on a transport-owned goroutine, carrying the opaque
context value supplied with SetCallback.

Failures are reported as *Error values whose Code method returns the
platform error code, for example errcode.CannotConnectCode when the
connection is refused.
*/
package transport
