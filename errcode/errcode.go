// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package errcode

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"
)

// Platform error codes reported for failed request attempts.
const (
	InvalidParameterCode     = 87
	TimeoutCode              = 12002
	InternalCode             = 12004
	NameNotResolvedCode      = 12007
	CancelledCode            = 12017
	IncorrectHandleStateCode = 12019
	CannotConnectCode        = 12029
	ConnectionErrorCode      = 12030
	InvalidResponseCode      = 12152
	SecureFailureCode        = 12175
)

// Sentinel errors for failure conditions that have no natural
// representation in the standard library. The transport wraps these so
// that Categorize can recognize them.
var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrIncorrectHandleState = errors.New("incorrect handle state")
	ErrInvalidResponse      = errors.New("invalid server response")
)

// A Category is the category of a particular transport error, as
// reported by function Categorize.
//
// The category Not means the error did not match any known category.
// Its platform code is the generic internal error code.
type Category int

const (
	// Not indicates an error that matches no other category.
	Not Category = iota
	// Timeout indicates a client-side timeout while resolving,
	// connecting, sending, or waiting for response headers.
	//
	// Function Categorize returns Timeout if the error or any of its
	// wrapped causes has a Timeout() function that reports true.
	Timeout
	// NameNotResolved indicates the server host name could not be
	// resolved.
	NameNotResolved
	// ConnRefused indicates the remote host refused the connection, or
	// the dial otherwise failed. It corresponds to syscall.ECONNREFUSED.
	ConnRefused
	// ConnReset indicates a previously working connection was reset or
	// closed by the peer before the response headers arrived.
	ConnReset
	// Cancelled indicates the operation was cancelled locally, for
	// example because the handle was closed.
	Cancelled
	// Secure indicates a TLS handshake or certificate failure.
	Secure
	// InvalidResponse indicates the server's response could not be
	// parsed as HTTP.
	InvalidResponse
	// InvalidParameter indicates a caller-supplied argument, such as
	// a header line, was rejected.
	InvalidParameter
	// IncorrectHandleState indicates an operation was attempted on a
	// handle that was closed or not in the right state.
	IncorrectHandleState
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"NameNotResolved",
	"ConnRefused",
	"ConnReset",
	"Cancelled",
	"Secure",
	"InvalidResponse",
	"InvalidParameter",
	"IncorrectHandleState",
}

var categoryCodes = []int{
	InternalCode,
	TimeoutCode,
	NameNotResolvedCode,
	CannotConnectCode,
	ConnectionErrorCode,
	CancelledCode,
	SecureFailureCode,
	InvalidResponseCode,
	InvalidParameterCode,
	IncorrectHandleStateCode,
}

// String returns the name of the category.
func (cat Category) String() string {
	return categoryNames[int(cat)]
}

// Code returns the platform error code for the category.
func (cat Category) Code() int {
	return categoryCodes[int(cat)]
}

// Categorize returns the category of the given error. A nil error, and
// an error that matches no category, both produce the return value Not.
//
// In assessing the category, Categorize looks at wrapped cause errors
// contained within err, not just err itself. Timeouts take precedence
// over every other category.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	switch {
	case errors.Is(err, ErrInvalidParameter):
		return InvalidParameter
	case errors.Is(err, ErrIncorrectHandleState):
		return IncorrectHandleState
	case errors.Is(err, ErrInvalidResponse):
		return InvalidResponse
	case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		return Cancelled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NameNotResolved
	}

	if isSecure(err) {
		return Secure
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.EHOSTUNREACH, syscall.ENETUNREACH:
			return ConnRefused
		case syscall.ECONNRESET, syscall.ECONNABORTED, syscall.EPIPE:
			return ConnReset
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ConnReset
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ConnRefused
	}

	return Not
}

// Of returns the platform error code for err, or zero if err is nil.
func Of(err error) int {
	if err == nil {
		return 0
	}

	return Categorize(err).Code()
}

func isSecure(err error) bool {
	var (
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		invalidErr   x509.CertificateInvalidError
		hostnameErr  x509.HostnameError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &hostnameErr)
}

type hasTimeout interface {
	Timeout() bool
}
