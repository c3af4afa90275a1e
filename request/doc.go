// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core type Plan, which describes the single
outbound HTTPS request an async controller issues, along with helpers
for working with the raw header block a Plan carries.

A Plan is deliberately lower-level than an http.Request. The caller
supplies the target host, the request path, a fully-formed block of
CRLF-terminated header lines, and a pre-buffered body:

	p, err := request.NewPlan("example.com", "/x",
		"Content-Type: application/json\r\n", "{}")
	...

The header block is sent verbatim, ahead of the transport's own default
headers, so it is validated up front with ParseHeaderBlock. A header
block can be built from an http.Header with HeaderBlock:

	block := request.HeaderBlock(http.Header{
		"Content-Type": {"application/json"},
		"Apikey":       {key},
	})

The body may be given as a string, []byte, io.Reader, or io.ReadCloser,
and is converted with BodyBytes.
*/
package request
