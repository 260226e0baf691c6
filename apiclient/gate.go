package apiclient

import (
	"github.com/kbukum/courier/deserialize"
)

const maxErrorMessageRunes = 200

// AckPayload stands in for the empty body of a successful response.
func AckPayload() []byte {
	return []byte("true")
}

// Gate admits the payload of a 2xx envelope and rejects everything else
// before any decoding of the response type is attempted.
//
// A rejected status becomes a status error. When errorKeyPath is set the
// message is read from the JSON body at that path, either a string or the
// first string of an array.
func Gate(env *Envelope, errorKeyPath []string) ([]byte, error) {
	if env == nil || env.StatusCode == 0 {
		return nil, missingStatusCodeError()
	}
	if env.StatusCode < 200 || env.StatusCode >= 300 {
		return nil, statusError(env.StatusCode, errorMessage(env.Body, errorKeyPath), env.Body)
	}
	if len(env.Body) == 0 {
		return AckPayload(), nil
	}
	return env.Body, nil
}

func errorMessage(body []byte, keyPath []string) string {
	if len(keyPath) == 0 || len(body) == 0 {
		return ""
	}
	v, err := deserialize.JSON[any](keyPath...).Deserialize(body)
	if err != nil {
		return ""
	}
	var msg string
	switch t := v.(type) {
	case string:
		msg = t
	case []any:
		if len(t) > 0 {
			msg, _ = t[0].(string)
		}
	}
	return truncate(msg, maxErrorMessageRunes)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
