// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"fmt"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gogama/httpasync/errcode"
	"golang.org/x/net/http/httpguts"
)

// A Field is one "Name: value" line from a header block.
type Field struct {
	Name  string
	Value string
}

// Reserved headers are written by the transport itself and may not
// appear in a caller-supplied header block.
var reserved = map[string]bool{
	"Host":              true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
}

// ParseHeaderBlock splits a raw block of CRLF-terminated header lines
// into fields, validating each name and value.
//
// An empty block yields no fields. A final line missing its CRLF
// terminator is accepted. Bare LF line endings, lines without a colon,
// invalid names or values, and the reserved headers Host,
// Content-Length, and Transfer-Encoding are rejected with an error
// that wraps errcode.ErrInvalidParameter.
func ParseHeaderBlock(block string) ([]Field, error) {
	if block == "" {
		return nil, nil
	}
	lines := strings.Split(strings.TrimSuffix(block, "\r\n"), "\r\n")
	fields := make([]Field, 0, len(lines))
	for i, line := range lines {
		if strings.ContainsAny(line, "\r\n") {
			return nil, invalidHeader(i, "bare CR or LF")
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, invalidHeader(i, "missing colon")
		}
		name := line[:colon]
		value := textproto.TrimString(line[colon+1:])
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, invalidHeader(i, fmt.Sprintf("invalid name %q", name))
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, invalidHeader(i, fmt.Sprintf("invalid value for %q", name))
		}
		canonical := textproto.CanonicalMIMEHeaderKey(name)
		if reserved[canonical] {
			return nil, invalidHeader(i, fmt.Sprintf("%s is set by the transport", canonical))
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	return fields, nil
}

// HasField reports whether fields contains a field with the given name,
// compared case-insensitively.
func HasField(fields []Field, name string) bool {
	for i := range fields {
		if strings.EqualFold(fields[i].Name, name) {
			return true
		}
	}
	return false
}

// HeaderBlock renders h as a raw header block, one CRLF-terminated line
// per value, with keys in sorted order.
func HeaderBlock(h http.Header) string {
	var b strings.Builder
	_ = h.Write(&b)
	return b.String()
}

func invalidHeader(line int, reason string) error {
	return fmt.Errorf("%w: header line %d: %s", errcode.ErrInvalidParameter, line+1, reason)
}
