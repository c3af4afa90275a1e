// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for the I/O deadlines the transport
// sets while a request attempt is in flight. A generic interface for
// timeout policies is provided, Policy, along with policy generating
// functions and built-in policies.
package timeout
