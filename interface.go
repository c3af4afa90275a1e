// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpasync

import (
	"bytes"
	"net/http"

	json "github.com/json-iterator/go"

	"github.com/gogama/httpasync/request"
)

// Starter is the interface that wraps the basic StartPlan method.
//
// StartPlan starts an asynchronous attempt to execute a request plan
// and reports whether the attempt is in flight. Controller implements
// the Starter interface, and any other Starter implementation must
// behave substantially the same as Controller.StartPlan.
type Starter interface {
	StartPlan(p *request.Plan) bool
}

// Canceler is the interface that wraps the basic Cancel method.
//
// Cancel aborts the in-flight attempt, if any, and releases every
// resource it holds. It is idempotent.
type Canceler interface {
	Cancel()
}

// Observer is the interface that wraps the basic Snapshot method.
//
// Snapshot returns an immutable copy of the current attempt's state,
// suitable for rendering by a monitor.
type Observer interface {
	Snapshot() Snapshot
}

// Runner is the interface that groups the basic StartPlan, Cancel, and
// Snapshot methods.
type Runner interface {
	Starter
	Canceler
	Observer
}

// StartHeader uses the specified Starter to POST body to host and path,
// with h rendered as the header block.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan and request.BodyBytes, namely:
// string; []byte; io.Reader; and io.ReadCloser.
//
// An error is returned, and no attempt is started, if the plan cannot
// be built. Otherwise the return value of s.StartPlan is returned.
func StartHeader(s Starter, host, path string, h http.Header, body interface{}) (bool, error) {
	p, err := request.NewPlan(host, path, request.HeaderBlock(h), body)
	if err != nil {
		return false, err
	}
	return s.StartPlan(p), nil
}

// StartJSON uses the specified Starter to POST the JSON encoding of v to
// host and path with Content-Type application/json.
func StartJSON(s Starter, host, path string, v interface{}) (bool, error) {
	var buf bytes.Buffer
	stream := json.ConfigDefault.BorrowStream(&buf)
	stream.WriteVal(v)
	err := stream.Flush()
	if err == nil {
		err = stream.Error
	}
	json.ConfigDefault.ReturnStream(stream)
	if err != nil {
		return false, err
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return StartHeader(s, host, path, h, buf.Bytes())
}
