package logger

import (
	"time"
)

// Field keys shared by the client, the transport and the CLI.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldOperation  = "operation"
	FieldMethod     = "method"
	FieldURL        = "url"
	FieldHost       = "host"
	FieldStatusCode = "status_code"
	FieldAttempt    = "attempt"
	FieldKind       = "kind"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldBackoff    = "backoff_ms"
	FieldTraceID    = "trace_id"
)

// Fields builds a field map from alternating key-value pairs. Non-string keys
// and a trailing key without a value are skipped.
//
//	log.Info("request done", logger.Fields("status_code", 200, "attempt", 1))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
