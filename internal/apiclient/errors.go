package apiclient

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failed call the way the portal reports it.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindUnauthorized
	KindForbidden
	KindInvalid
	KindConflict
	KindNotFound
	KindClient
	KindServer
	KindMalformed
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed"
	case KindRejected:
		return "rejected"
	case KindUnknown:
		return "unknown"
	}
	return "unknown"
}

// Error is returned by every Client call that does not succeed.
type Error struct {
	Kind     Kind
	Status   int
	Message  string
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d): %s", e.Endpoint, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Endpoint, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can test against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrInvalid      = &Error{Kind: KindInvalid}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrClient       = &Error{Kind: KindClient}
	ErrServer       = &Error{Kind: KindServer}
	ErrMalformed    = &Error{Kind: KindMalformed}
	ErrRejected     = &Error{Kind: KindRejected}
)

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the backend-supplied message carried by err, if any.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindInvalid
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}
