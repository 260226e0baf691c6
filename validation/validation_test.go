package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/courier/errors"
)

type retrySection struct {
	Attempts int `mapstructure:"attempts" validate:"gte=0"`
}

type sampleConfig struct {
	BaseURL string       `mapstructure:"base_url" validate:"required,url"`
	Workers int          `mapstructure:"workers" validate:"min=1"`
	Mode    string       `yaml:"mode" validate:"omitempty,oneof=fast safe"`
	Retry   retrySection `mapstructure:"retry"`
}

func TestValidate_Valid(t *testing.T) {
	cfg := sampleConfig{BaseURL: "https://httpbin.org", Workers: 2, Mode: "fast"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ReportsConfigKeys(t *testing.T) {
	cfg := sampleConfig{Workers: 0, Mode: "turbo", Retry: retrySection{Attempts: -1}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}

	fields, _ := appErr.Details["fields"].([]FieldError)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Message
	}
	want := map[string]string{
		"base_url":       "is required",
		"workers":        "must be at least 1",
		"mode":           "must be one of: fast safe",
		"retry.attempts": "must be greater than or equal to 0",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("field %s: expected %q, got %q", field, msg, got[field])
		}
	}
}

func TestValidator_Collects(t *testing.T) {
	v := New().
		Required("method", "  ").
		OneOf("method", "TRACE", []string{"GET", "POST"}).
		Min("workers", 0, 1).
		AbsoluteURL("base_url", "/relative").
		Custom(false, "multipart", "requires POST, PUT or PATCH")

	if len(v.Errors()) != 5 {
		t.Fatalf("expected 5 errors, got %d: %v", len(v.Errors()), v.Errors())
	}
	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "multipart: requires POST, PUT or PATCH") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestValidator_NoErrors(t *testing.T) {
	v := New().
		Required("method", "GET").
		OneOf("method", "GET", []string{"GET"}).
		AbsoluteURL("base_url", "https://example.com/api").
		AbsoluteURL("optional", "")
	if v.HasErrors() {
		t.Fatalf("unexpected errors: %v", v.Errors())
	}
	if err := v.Err(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"BaseURL":     "base_u_r_l",
		"Workers":     "workers",
		"retryPolicy": "retry_policy",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
