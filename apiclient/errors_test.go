package apiclient

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", cancelledError(errors.New("ctx done")))
	if !errors.Is(err, ErrCancelled) {
		t.Error("expected cancelled error to match ErrCancelled")
	}
	if errors.Is(err, ErrUnreachableNetwork) {
		t.Error("expected kinds not to cross-match")
	}

	status := statusError(404, "", nil)
	if !errors.Is(status, &Error{Kind: KindStatus}) {
		t.Error("expected any status target to match")
	}
	if !errors.Is(status, &Error{Kind: KindStatus, StatusCode: 404}) {
		t.Error("expected matching status to match")
	}
	if errors.Is(status, &Error{Kind: KindStatus, StatusCode: 500}) {
		t.Error("expected different status not to match")
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{statusError(404, "", nil), "apiclient: status (HTTP 404): Request not found."},
		{transportError(errors.New("dial tcp: refused")), "apiclient: transport: dial tcp: refused"},
		{missingStatusCodeError(), "apiclient: missing_status_code: response has no status code"},
		{&Error{Kind: KindCancelled}, "apiclient: cancelled"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestHelpers(t *testing.T) {
	if StatusCode(statusError(503, "", nil)) != 503 {
		t.Error("expected status code 503")
	}
	if StatusCode(transportError(errors.New("x"))) != 0 {
		t.Error("expected no status for transport error")
	}
	if !IsTransport(fmt.Errorf("ctx: %w", transportError(errors.New("x")))) {
		t.Error("expected wrapped transport error to be detected")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("expected zero kind for foreign errors")
	}
}

func TestStatusMessage(t *testing.T) {
	tests := map[int]string{
		400: "Bad request.",
		401: "Authorization failed.",
		403: "Forbidden.",
		404: "Request not found.",
		500: "Service temporarily unavailable.",
		503: "Service temporarily unavailable.",
		418: "Error statusCode = 418.",
	}
	for code, want := range tests {
		if got := StatusMessage(code); got != want {
			t.Errorf("StatusMessage(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestKind_String(t *testing.T) {
	if KindUnreachableNetwork.String() != "unreachable_network" || Kind(99).String() != "unknown" {
		t.Error("unexpected kind names")
	}
}
