// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package monitor observes an httpasync Controller through its phase
handlers. A Recorder keeps outcome counts and a latency histogram, a
Metrics exports the same observations to Prometheus, and Render draws a
text view of the current attempt for an interactive console.

	rec := monitor.NewRecorder()
	handlers := &httpasync.HandlerGroup{}
	rec.Install(handlers)
	c := &httpasync.Controller{Handlers: handlers}
	...
	_ = monitor.Render(os.Stdout, c.Snapshot(), rec.Summary())
*/
package monitor
