package apiclient

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGate(t *testing.T) {
	payload, err := Gate(&Envelope{StatusCode: 200}, nil)
	if err != nil || string(payload) != "true" {
		t.Fatalf("expected ack payload, got %q %v", payload, err)
	}

	payload, err = Gate(&Envelope{StatusCode: 200, Body: []byte("{}")}, nil)
	if err != nil || string(payload) != "{}" {
		t.Fatalf("expected body, got %q %v", payload, err)
	}

	if _, err := Gate(nil, nil); !errors.Is(err, ErrMissingStatusCode) {
		t.Errorf("expected missing status for nil envelope, got %v", err)
	}
	if _, err := Gate(&Envelope{Body: []byte("{}")}, nil); !errors.Is(err, ErrMissingStatusCode) {
		t.Errorf("expected missing status, got %v", err)
	}

	_, err = Gate(&Envelope{StatusCode: 401, Body: []byte("denied")}, nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != 401 || apiErr.Message != "Authorization failed." || string(apiErr.Body) != "denied" {
		t.Errorf("unexpected status error %+v", apiErr)
	}
}

func TestGate_ErrorKeyPath(t *testing.T) {
	long := strings.Repeat("é", 250)
	tests := []struct {
		name    string
		body    string
		keyPath []string
		want    string
	}{
		{"string", `{"error":{"message":"quota exceeded"}}`, []string{"error", "message"}, "quota exceeded"},
		{"first of array", `{"errors":["first","second"]}`, []string{"errors"}, "first"},
		{"empty array falls back", `{"errors":[]}`, []string{"errors"}, "Bad request."},
		{"missing key falls back", `{"detail":"x"}`, []string{"errors"}, "Bad request."},
		{"non-json falls back", `<html>`, []string{"errors"}, "Bad request."},
		{"truncated", `{"errors":["` + long + `"]}`, []string{"errors"}, strings.Repeat("é", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Gate(&Envelope{StatusCode: 400, Body: []byte(tt.body)}, tt.keyPath)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, apiErr.Message)
			}
			if n := utf8.RuneCountInString(apiErr.Message); n > maxErrorMessageRunes {
				t.Errorf("message has %d runes", n)
			}
		})
	}
}
