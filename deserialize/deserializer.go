package deserialize

import (
	"fmt"
	"reflect"
	"strings"
)

// Deserializer decodes a payload into T.
type Deserializer[T any] interface {
	Deserialize(data []byte) (T, error)
}

// Func adapts a plain function to Deserializer.
type Func[T any] func(data []byte) (T, error)

// Deserialize calls f.
func (f Func[T]) Deserialize(data []byte) (T, error) {
	return f(data)
}

// Format names the payload encoding a Deserializer expects.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// Error reports a payload that could not be decoded into Target.
type Error struct {
	Format  Format
	Target  string
	KeyPath []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "deserialize %s into %s", e.Format, e.Target)
	if len(e.KeyPath) > 0 {
		fmt.Fprintf(&b, " at %q", strings.Join(e.KeyPath, "."))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError[T any](format Format, keyPath []string, err error) *Error {
	return &Error{
		Format:  format,
		Target:  typeName[T](),
		KeyPath: keyPath,
		Err:     err,
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Empty ignores the payload. Use it for endpoints whose body carries nothing
// of interest, including the acknowledgement substituted for empty bodies.
func Empty() Deserializer[struct{}] {
	return Func[struct{}](func([]byte) (struct{}, error) {
		return struct{}{}, nil
	})
}

// Raw returns the payload bytes unchanged.
func Raw() Deserializer[[]byte] {
	return Func[[]byte](func(data []byte) ([]byte, error) {
		return data, nil
	})
}
