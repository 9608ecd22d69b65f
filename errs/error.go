// Package errs defines the error kinds surfaced by the SCEP client (spec
// §7): configuration, I/O, protocol, trust, operation-failure and
// unsupported-operation. It is adapted from the status-coded Error type
// in the certificate authority's errs package, trimmed to a closed kind
// vocabulary instead of HTTP status codes.
package errs

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

// Kind discriminates the error taxonomy of spec §7.
type Kind string

// The six error kinds the client can raise.
const (
	KindConfig      Kind = "configuration"
	KindIO          Kind = "io"
	KindProtocol    Kind = "protocol"
	KindTrust       Kind = "trust"
	KindOperation   Kind = "operation-failure"
	KindUnsupported Kind = "unsupported-operation"
)

// Error is the error type returned by every exported client operation.
type Error struct {
	kind     Kind
	err      error
	failInfo scep.FailInfo
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.err.Error()
}

// Unwrap allows errors.Is / errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.err }

// Kind reports which of the six spec §7 kinds this error is.
func (e *Error) Kind() Kind { return e.kind }

// FailInfo returns the CA-supplied failure reason. It is only meaningful
// when Kind() == KindOperation.
func (e *Error) FailInfo() scep.FailInfo { return e.failInfo }

// Config reports a constructor-time configuration error: missing
// URL/identity/key/callback, non-RSA key, or a URL with query/fragment/
// non-HTTP scheme.
func Config(format string, args ...interface{}) error {
	return &Error{kind: KindConfig, err: errors.Errorf(format, args...)}
}

// IO wraps a transport, DNS, TLS, or socket failure.
func IO(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{kind: KindIO, err: errors.Wrapf(err, format, args...)}
}

// Protocol reports a malformed CMS message, a missing SCEP attribute, a
// mismatched transactionID/recipientNonce, an unsigned response, a bad
// signer, an illegal PENDING state, or a forbidden chain size.
func Protocol(format string, args ...interface{}) error {
	return &Error{kind: KindProtocol, err: errors.Errorf(format, args...)}
}

// ProtocolErr wraps an existing error as a protocol failure.
func ProtocolErr(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{kind: KindProtocol, err: errors.Wrapf(err, format, args...)}
}

// Trust reports that the trust callback rejected a candidate CA
// certificate.
func Trust(format string, args ...interface{}) error {
	return &Error{kind: KindTrust, err: errors.Errorf(format, args...)}
}

// OperationFailure reports that the CA replied with pkiStatus FAILURE; the
// failInfo value is carried verbatim.
func OperationFailure(fi scep.FailInfo) error {
	return &Error{
		kind:     KindOperation,
		err:      fmt.Errorf("certificate authority rejected the request: failInfo=%s", fi),
		failInfo: fi,
	}
}

// Unsupported reports that the caller requested an operation the CA does
// not advertise support for (e.g. rollover without GetNextCACert).
func Unsupported(format string, args ...interface{}) error {
	return &Error{kind: KindUnsupported, err: errors.Errorf(format, args...)}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.kind == kind
}
