// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build !unix

package transport

import "syscall"

func controlSocket(_, _ string, _ syscall.RawConn) error {
	return nil
}
