// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

import "time"

// A Snapshot is an immutable copy of the state of a Controller's
// current request attempt.
type Snapshot struct {
	// ID is the attempt's registry id. Zero means no attempt has been
	// started.
	ID uint64

	// Trace is a random token identifying the attempt in logs.
	Trace string

	// Phase is the attempt's phase.
	Phase Phase

	// StatusCode is the numeric response status, or zero if the
	// response headers were not received (or Reset cleared it).
	StatusCode int

	// Err is the cause of the Error phase, or nil.
	Err *AttemptError

	// Session, Connection, and Request report which transport handles
	// the attempt holds.
	Session    bool
	Connection bool
	Request    bool

	// Start is when the attempt was started. End is when it reached
	// HeadersDone, Error, or Canceled, and is zero while it is active.
	Start time.Time
	End   time.Time
}

// HandlesHeld returns the number of transport handles held.
func (s Snapshot) HandlesHeld() int {
	n := 0
	for _, held := range []bool{s.Session, s.Connection, s.Request} {
		if held {
			n++
		}
	}
	return n
}

// Success reports whether the attempt received a 2xx status.
func (s Snapshot) Success() bool {
	return s.StatusCode >= 200 && s.StatusCode < 300
}

// Duration returns the wall clock time the attempt took. If the attempt
// has not ended, the return value is zero.
func (s Snapshot) Duration() time.Duration {
	if s.Start.IsZero() || s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}
