package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed operation.
type Kind int

const (
	// KindUnreachableNetwork means the reachability probe reported the
	// network as down; the transport was never contacted.
	KindUnreachableNetwork Kind = iota + 1
	// KindHeaderConstruction means the request's header function failed.
	KindHeaderConstruction
	// KindTransport is a failed exchange. It is the only retryable kind.
	KindTransport
	// KindMissingStatusCode means the transport answered without a status.
	KindMissingStatusCode
	// KindStatus is a response outside the 2xx range.
	KindStatus
	// KindDeserialization means the payload could not be decoded.
	KindDeserialization
	// KindCancelled means the operation was cancelled before it resolved.
	KindCancelled
	// KindInvalidRequest means the request failed validation.
	KindInvalidRequest
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindUnreachableNetwork:
		return "unreachable_network"
	case KindHeaderConstruction:
		return "header_construction"
	case KindTransport:
		return "transport"
	case KindMissingStatusCode:
		return "missing_status_code"
	case KindStatus:
		return "status"
	case KindDeserialization:
		return "deserialization"
	case KindCancelled:
		return "cancelled"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Error is the failure delivered to completions.
type Error struct {
	Kind Kind
	// StatusCode is set for KindStatus.
	StatusCode int
	Message    string
	// Body is the rejected payload for KindStatus.
	Body []byte
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnreachableNetwork = &Error{Kind: KindUnreachableNetwork}
	ErrMissingStatusCode  = &Error{Kind: KindMissingStatusCode}
	ErrCancelled          = &Error{Kind: KindCancelled}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("apiclient: %s (HTTP %d): %s", e.Kind, e.StatusCode, msg)
	case msg != "":
		return fmt.Sprintf("apiclient: %s: %s", e.Kind, msg)
	default:
		return "apiclient: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. A target with a
// status code only matches that status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

func unreachableNetworkError() *Error {
	return &Error{Kind: KindUnreachableNetwork, Message: "network is unreachable"}
}

func headerConstructionError(err error) *Error {
	return &Error{Kind: KindHeaderConstruction, Err: err}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func missingStatusCodeError() *Error {
	return &Error{Kind: KindMissingStatusCode, Message: "response has no status code"}
}

func statusError(code int, message string, body []byte) *Error {
	if message == "" {
		message = StatusMessage(code)
	}
	return &Error{Kind: KindStatus, StatusCode: code, Message: message, Body: body}
}

func deserializationError(err error) *Error {
	return &Error{Kind: KindDeserialization, Err: err}
}

func cancelledError(cause error) *Error {
	return &Error{Kind: KindCancelled, Message: "operation cancelled", Err: cause}
}

func invalidRequestError(err error) *Error {
	return &Error{Kind: KindInvalidRequest, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}

// IsTransport reports whether err is a failed exchange.
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// StatusCode returns the HTTP status carried by a status error, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindStatus {
		return e.StatusCode
	}
	return 0
}

// StatusMessage returns the default message for a rejected status.
func StatusMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "Bad request."
	case http.StatusUnauthorized:
		return "Authorization failed."
	case http.StatusForbidden:
		return "Forbidden."
	case http.StatusNotFound:
		return "Request not found."
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return "Service temporarily unavailable."
	default:
		return fmt.Sprintf("Error statusCode = %d.", code)
	}
}
