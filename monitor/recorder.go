// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package monitor

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/gogama/httpasync"
)

// Latencies are recorded in whole microseconds.
const (
	latencyUnit      = time.Microsecond
	minLatency       = int64(1)
	maxLatency       = int64(5 * time.Minute / latencyUnit)
	latencyPrecision = 3
)

// A Recorder counts attempt outcomes and records attempt latency in an
// HDR histogram. It is a httpasync.Handler; use Install to attach it to
// the phases which finish an attempt.
//
// Recorder is safe for concurrent use by multiple goroutines.
type Recorder struct {
	mu       sync.Mutex
	hist     *hdrhistogram.Histogram
	outcomes [numOutcomes]int64
	latch    latch
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		hist: hdrhistogram.New(minLatency, maxLatency, latencyPrecision),
	}
}

// Install pushes r onto the handler chains of the phases which finish
// an attempt.
func (r *Recorder) Install(g *httpasync.HandlerGroup) {
	for _, p := range finalPhases {
		g.PushBack(p, r)
	}
}

// Handle records the outcome of a finished attempt. Latency is only
// recorded for attempts which received a response.
func (r *Recorder) Handle(p httpasync.Phase, s httpasync.Snapshot) {
	o, ok := OutcomeOf(p, s)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.latch.first(s.ID) {
		return
	}
	r.outcomes[o]++
	if o == Succeeded || o == NonSuccess {
		if d := s.Duration(); d > 0 {
			_ = r.hist.RecordValue(clamp(int64(d / latencyUnit)))
		}
	}
}

// Summary returns a summary of everything recorded so far.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{Outcomes: r.outcomes}
	for _, n := range r.outcomes {
		s.Attempts += n
	}
	if r.hist.TotalCount() > 0 {
		s.Min = latency(r.hist.Min())
		s.Mean = time.Duration(r.hist.Mean() * float64(latencyUnit))
		s.P50 = latency(r.hist.ValueAtPercentile(50.0))
		s.P90 = latency(r.hist.ValueAtPercentile(90.0))
		s.P99 = latency(r.hist.ValueAtPercentile(99.0))
		s.Max = latency(r.hist.Max())
	}
	return s
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hist.Reset()
	r.outcomes = [numOutcomes]int64{}
}

func latency(v int64) time.Duration {
	return time.Duration(v) * latencyUnit
}

func clamp(v int64) int64 {
	if v < minLatency {
		return minLatency
	}
	if v > maxLatency {
		return maxLatency
	}
	return v
}

// A Summary is a point-in-time summary of a Recorder. Latencies are
// zero until at least one response has been recorded.
type Summary struct {
	Attempts int64
	Outcomes [numOutcomes]int64

	Min  time.Duration
	Mean time.Duration
	P50  time.Duration
	P90  time.Duration
	P99  time.Duration
	Max  time.Duration
}

// Count returns the number of attempts with outcome o.
func (s Summary) Count(o Outcome) int64 {
	return s.Outcomes[o]
}
