// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// DefaultMethod is the method used when a Plan does not name one.
const DefaultMethod = "POST"

const (
	emptyHostMsg = "httpasync/request: empty host"
	badPathMsg   = "httpasync/request: path must begin with '/'"
)

// A Plan contains the logical HTTPS request for execution by an async
// controller.
//
// Unlike an http.Request, the header fields of a Plan are a raw block of
// CRLF-terminated lines which the transport writes verbatim. The
// transport appends its own default headers (Host, User-Agent, and
// Content-Length) after the block, so those must not appear in it.
type Plan struct {
	// Method specifies the HTTP method. An empty string means POST.
	Method string

	// Host is the server host name, without scheme or port.
	Host string

	// Path is the request target, including any query string. It
	// always begins with a slash.
	Path string

	// Header is the raw header block, a sequence of "Name: value\r\n"
	// lines. It may be empty.
	Header string

	// Body is the pre-buffered request body. It is sent verbatim with
	// a matching Content-Length.
	Body []byte
}

// NewPlan returns a new POST Plan given a host, path, header block, and
// optional body.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, io.Reader, or io.ReadCloser. If body is an io.Reader, it is
// read to the end and buffered into a []byte. If body is an
// io.ReadCloser, it is closed after buffering.
func NewPlan(host, path, header string, body interface{}) (*Plan, error) {
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		Method: DefaultMethod,
		Host:   host,
		Path:   path,
		Header: header,
		Body:   b,
	}
	if err = p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the plan can be rendered onto the wire: the
// method is a valid token, the host is non-empty, the path begins with
// a slash, and every header line is well-formed.
func (p *Plan) Validate() error {
	method := p.method()
	if !validMethod(method) {
		return fmt.Errorf("httpasync/request: invalid method %q", method)
	}
	if p.Host == "" {
		return errors.New(emptyHostMsg)
	}
	if !strings.HasPrefix(p.Path, "/") {
		return errors.New(badPathMsg)
	}
	_, err := ParseHeaderBlock(p.Header)
	return err
}

func (p *Plan) method() string {
	if p.Method == "" {
		return DefaultMethod
	}
	return p.Method
}

// RequestMethod returns the plan's method, defaulting to POST.
func (p *Plan) RequestMethod() string {
	return p.method()
}

// ContentLength returns the length of the request body in bytes.
func (p *Plan) ContentLength() int {
	return len(p.Body)
}

// A method is a token, so the header field name grammar applies.
func validMethod(method string) bool {
	return httpguts.ValidHeaderFieldName(method)
}
