// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

// A Phase is the observable coarse-grained state of one request attempt
// run by a Controller. Install a Handler for a phase to be told when an
// attempt enters it.
type Phase int

const (
	// Idle is the phase of a Controller which has never started an
	// attempt. No handles are held.
	Idle Phase = iota
	// Sending identifies the phase in which the request line, headers,
	// and body are being written. All three handles are held.
	Sending
	// Waiting identifies the phase in which the request was fully sent
	// and the Controller is waiting for the response headers. All three
	// handles are held.
	Waiting
	// HeadersDone identifies the phase reached when the response status
	// code has been read. The status code is recorded and the handles
	// have already been released.
	HeadersDone
	// Error identifies the phase reached when the attempt failed, either
	// synchronously inside Start or asynchronously in the transport. The
	// cause is recorded as an *AttemptError and the handles have been
	// released.
	Error
	// Canceled identifies the phase reached after Cancel. No handles are
	// held, and events which arrive late for the canceled attempt are
	// dropped.
	Canceled
	// phaseSentinel provides the total number of phases typed as a
	// Phase.
	phaseSentinel

	// numPhases provides the total number of phases as an int.
	numPhases = int(phaseSentinel)
)

var phaseNames = []string{
	"Idle",
	"Sending",
	"Waiting",
	"HeadersDone",
	"Error",
	"Canceled",
}

var phaseLabels = []string{
	"Idle",
	"Sending",
	"Waiting headers",
	"Headers done",
	"Error",
	"Canceled",
}

// Phases returns a slice containing all phases, in the order in which a
// successful attempt would pass through them.
func Phases() []Phase {
	return []Phase{
		Idle,
		Sending,
		Waiting,
		HeadersDone,
		Error,
		Canceled,
	}
}

// Name returns the name of the phase.
func (p Phase) Name() string {
	return phaseNames[int(p)]
}

// Label returns a short human-readable description of the phase for
// display in a monitor.
func (p Phase) Label() string {
	return phaseLabels[int(p)]
}

// String returns the name of the phase.
func (p Phase) String() string {
	return p.Name()
}

// Active reports whether an attempt in phase p is still in flight. A
// Controller rejects Start while its phase is active.
func (p Phase) Active() bool {
	return p == Sending || p == Waiting
}
