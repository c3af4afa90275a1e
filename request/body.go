// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"

	"github.com/valyala/bytebufferpool"
)

// ErrBodyType is returned by BodyBytes for a body of unsupported type.
var ErrBodyType = errors.New("httpasync/request: invalid body type " +
	"(use nil, string, []byte, io.Reader or io.ReadCloser)")

// BodyBytes converts a body parameter to the bytes sent after the
// header block. A nil body has no bytes. A string or []byte is used as
// is. A reader is drained, and closed if it is an io.ReadCloser; a read
// or close error is returned with a nil slice. Any other type yields
// ErrBodyType.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case io.ReadCloser:
		b, err := drain(x)
		if cerr := x.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		return b, nil
	case io.Reader:
		return drain(x)
	default:
		return nil, ErrBodyType
	}
}

// drain reads r to the end through a pooled buffer and returns a copy
// of what was read.
func drain(r io.Reader) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.B...), nil
}
