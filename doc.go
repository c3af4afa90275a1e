// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpasync issues one HTTPS POST at a time without blocking the
caller, tracks its progress through a small set of observable phases,
and releases every network resource exactly once however the attempt
ends.

Create a Controller and start an attempt. Start returns immediately.

	c := &httpasync.Controller{}
	defer c.Close()
	ok := c.Start("api.example.com", "/v1/orders",
		"Content-Type: application/json\r\n", []byte(`{"qty":3}`))
	...
	switch c.Phase() {
	case httpasync.HeadersDone:
		fmt.Println("status", c.StatusCode())
	case httpasync.Error:
		fmt.Println("failed with code", c.LastError().Code)
	}

An attempt moves from Sending to Waiting when the request has been
written, and to HeadersDone when the response status line arrives. A
failure at any point moves it to Error, and Cancel moves it to Canceled.
Only one attempt may be active at a time.

For control over how requests reach the network, set a custom
transport. Package transport provides Net, which speaks HTTP/1.1 over
TLS with per-stage timeouts from package timeout:

	c := &httpasync.Controller{
		Transport: &transport.Net{
			Timeouts: timeout.Stages(5*time.Second, 5*time.Second, 10*time.Second),
		},
		Proxy: transport.AutomaticProxy,
	}

To observe transitions, install a handler into the appropriate handler
chain:

	handlers := &httpasync.HandlerGroup{}
	handlers.PushBack(httpasync.Error, httpasync.HandlerFunc(
		func(_ httpasync.Phase, s httpasync.Snapshot) {
			log.Printf("attempt %s failed: %v", s.Trace, s.Err)
		}),
	)
	c := &httpasync.Controller{
		Handlers: handlers,
	}

Package httpasync also provides basic interfaces for the Controller's
methods (Starter, Canceler, Observer, and the combined Runner) and
helpers for building a plan from an http.Header or a JSON value
(StartHeader and StartJSON).
*/
package httpasync
