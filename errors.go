// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

import "fmt"

// An ErrorKind says at which point a request attempt failed.
type ErrorKind int

const (
	// HandleCreationFailed means the session, connection, or request
	// could not be opened, or the attempt's parameters were rejected
	// before any handle was opened.
	HandleCreationFailed ErrorKind = iota + 1
	// SendFailed means the non-blocking send, or the non-blocking
	// receive which follows it, was refused synchronously.
	SendFailed
	// TransportError means the transport reported an asynchronous
	// failure for the in-flight request.
	TransportError
)

var errorKindNames = map[ErrorKind]string{
	HandleCreationFailed: "HandleCreationFailed",
	SendFailed:           "SendFailed",
	TransportError:       "TransportError",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// An AttemptError records why a request attempt ended in the Error
// phase. Every failure is scoped to one attempt: a new Start is always
// possible after observing one.
type AttemptError struct {
	// Kind is the point at which the attempt failed.
	Kind ErrorKind
	// Code is the platform error code, as produced by package errcode.
	Code int
	// Err is the underlying cause. It may be nil if the transport only
	// reported a code.
	Err error
}

func (e *AttemptError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("httpasync: %s (code %d)", e.Kind, e.Code)
	}
	return fmt.Sprintf("httpasync: %s (code %d): %v", e.Kind, e.Code, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AttemptError) Unwrap() error {
	return e.Err
}
