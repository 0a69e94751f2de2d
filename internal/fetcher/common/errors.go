// SPDX-License-Identifier: AGPL-3.0-only
package common

import "errors"

var (
	ErrDomainNotAllowed = errors.New("domain not allowed")
	ErrInvalidURL       = errors.New("invalid url")
	ErrTimeout          = errors.New("timeout")
	ErrNoDataFound      = errors.New("no data found")
	ErrPostIDMissing    = errors.New("post id not found")
	ErrNoItemFound      = errors.New("no item found")
	ErrSchemaMismatch   = errors.New("data holds unexpected format")
	ErrAuthorMissing    = errors.New("author not found")
	ErrTransport        = errors.New("transport error")
	ErrTranscodeFailed  = errors.New("transcode failed")

	ErrPostInactive      = errors.New("post exists but is inactive")
	ErrSignerUnavailable = errors.New("signer unavailable")
)

// Transport wraps a network or filesystem failure so callers can match both
// ErrTransport and the underlying cause.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return &transportError{op: op, err: err}
}

type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return e.op + ": " + ErrTransport.Error() + ": " + e.err.Error()
}

func (e *transportError) Unwrap() []error {
	return []error{ErrTransport, e.err}
}
