// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"fmt"

	"github.com/gogama/httpasync/errcode"
)

// An Error records a failed transport operation. Every error returned
// synchronously from a handle method, and every error carried by a
// RequestError notification, is an *Error.
type Error struct {
	// Op is the operation that failed, for example "connect" or "send".
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("httpasync/transport: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the platform error code of the failure.
func (e *Error) Code() int {
	return errcode.Of(e.Err)
}

// Timeout reports whether the failure was a timeout.
func (e *Error) Timeout() bool {
	return errcode.Categorize(e.Err) == errcode.Timeout
}

func opError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func stateError(op string, reason string) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", errcode.ErrIncorrectHandleState, reason)}
}

func paramError(op string, reason string) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", errcode.ErrInvalidParameter, reason)}
}
