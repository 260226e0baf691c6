package deserialize

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

var jsonNull = []byte("null")

// JSON decodes the value found at keyPath. An empty keyPath decodes the whole
// payload. Every key must resolve through nested objects.
func JSON[T any](keyPath ...string) Deserializer[T] {
	return Func[T](func(data []byte) (T, error) {
		var v T
		raw, found, err := resolveJSON(data, keyPath)
		if err != nil {
			return v, newError[T](FormatJSON, keyPath, err)
		}
		if !found {
			return v, newError[T](FormatJSON, keyPath, fmt.Errorf("key path not found"))
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, newError[T](FormatJSON, keyPath, err)
		}
		return v, nil
	})
}

// JSONCollection decodes the array found at keyPath. A missing key or a null
// value yields an empty slice. Any element that fails to decode fails the
// whole collection.
func JSONCollection[T any](keyPath ...string) Deserializer[[]T] {
	return Func[[]T](func(data []byte) ([]T, error) {
		raw, found, err := resolveJSON(data, keyPath)
		if err != nil {
			return nil, newError[[]T](FormatJSON, keyPath, err)
		}
		if !found || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			return []T{}, nil
		}

		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, newError[[]T](FormatJSON, keyPath, fmt.Errorf("value is not an array: %w", err))
		}
		out := make([]T, 0, len(elems))
		for i, elem := range elems {
			var v T
			if err := json.Unmarshal(elem, &v); err != nil {
				return nil, newError[[]T](FormatJSON, keyPath, fmt.Errorf("element %d: %w", i, err))
			}
			out = append(out, v)
		}
		return out, nil
	})
}

// resolveJSON walks keyPath through nested objects. found is false when a key
// is missing; err is set when the payload or an intermediate value is not an
// object.
func resolveJSON(data []byte, keyPath []string) (raw json.RawMessage, found bool, err error) {
	raw = data
	for i, key := range keyPath {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false, fmt.Errorf("value before %q is not an object: %w", keyPath[i], err)
		}
		if obj == nil {
			return nil, false, fmt.Errorf("value before %q is null", keyPath[i])
		}
		next, ok := obj[key]
		if !ok {
			return nil, false, nil
		}
		raw = next
	}
	return raw, true, nil
}
