// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"
)

// A Stage identifies one blocking step of a request attempt which the
// transport performs on its own goroutine.
type Stage int

const (
	// Connect covers name resolution, the TCP dial, any proxy tunnel
	// setup, and the TLS handshake.
	Connect Stage = iota
	// Send covers writing the request line, headers, and body.
	Send
	// Receive covers waiting for and reading the response headers.
	Receive

	numStages = int(Receive) + 1
)

var stageNames = []string{
	"Connect",
	"Send",
	"Receive",
}

// String returns the name of the stage.
func (s Stage) String() string {
	return stageNames[int(s)]
}

// A Policy defines a timeout policy which may be plugged into the
// transport to direct how long each stage of a request attempt may
// take before the attempt fails with a timeout error.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to apply to the given stage. A
	// non-positive return value means the stage never times out.
	Timeout(s Stage) time.Duration
}

// DefaultPolicy is the default timeout policy. It allows 60 seconds to
// connect, 30 seconds to send, and 30 seconds to receive the response
// headers.
var DefaultPolicy Policy = Stages(60*time.Second, 30*time.Second, 30*time.Second)

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a timeout policy that uses the same value for every
// stage.
func Fixed(d time.Duration) Policy {
	return Stages(d, d, d)
}

// Stages constructs a timeout policy with a separate timeout for each
// stage.
func Stages(connect, send, receive time.Duration) Policy {
	return policy{connect, send, receive}
}

type policy [numStages]time.Duration

func (p policy) Timeout(s Stage) time.Duration {
	return p[s]
}

// Deadline converts the timeout for stage s under policy p into an
// absolute deadline measured from now. The zero time is returned if the
// stage never times out.
func Deadline(p Policy, s Stage, now time.Time) time.Time {
	d := p.Timeout(s)
	if d <= 0 || d == Infinite.Timeout(s) {
		return time.Time{}
	}

	return now.Add(d)
}
