// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package monitor

import "github.com/gogama/httpasync"

// An Outcome is how a finished attempt ended.
type Outcome int

const (
	// Succeeded means the response status was 2xx.
	Succeeded Outcome = iota
	// NonSuccess means a response arrived with a status other than 2xx.
	NonSuccess
	// Failed means the attempt ended in the Error phase.
	Failed
	// Canceled means the attempt was canceled before it finished.
	Canceled
	outcomeSentinel

	numOutcomes = int(outcomeSentinel)
)

var outcomeNames = []string{
	"succeeded",
	"non_success",
	"failed",
	"canceled",
}

// Outcomes returns all outcomes.
func Outcomes() []Outcome {
	return []Outcome{Succeeded, NonSuccess, Failed, Canceled}
}

// String returns the outcome's name, which is also its metric label.
func (o Outcome) String() string {
	return outcomeNames[int(o)]
}

// OutcomeOf classifies an attempt entering phase p. The second return
// value is false if p does not finish an attempt, or if s describes no
// attempt at all.
func OutcomeOf(p httpasync.Phase, s httpasync.Snapshot) (Outcome, bool) {
	if s.ID == 0 {
		return 0, false
	}
	switch p {
	case httpasync.HeadersDone:
		if s.Success() {
			return Succeeded, true
		}
		return NonSuccess, true
	case httpasync.Error:
		return Failed, true
	case httpasync.Canceled:
		return Canceled, true
	default:
		return 0, false
	}
}

// finalPhases are the phases which finish an attempt.
var finalPhases = []httpasync.Phase{httpasync.HeadersDone, httpasync.Error, httpasync.Canceled}

// latch remembers the last attempt counted, so that canceling an
// attempt after it finished does not count it twice.
type latch struct {
	last uint64
}

func (l *latch) first(id uint64) bool {
	if id == l.last {
		return false
	}
	l.last = id
	return true
}
