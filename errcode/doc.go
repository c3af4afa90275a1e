// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package errcode classifies errors from the network transport into a
// small set of categories, and maps each category onto the numeric
// platform error code reported to callers of the async controller.
//
// The numeric codes follow the WinHTTP numbering (12002 for a timeout,
// 12029 when the server cannot be reached, and so on) so that a
// monitoring UI can display the same values operators already know.
//
// Package errcode depends only on the standard library, so it can be
// imported as a standalone package.
package errcode
