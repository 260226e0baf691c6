package deserialize

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"

	"golang.org/x/net/html/charset"
)

// XML decodes the first element found at keyPath. The keyPath lists element
// names starting from the document root; an empty keyPath decodes the root.
func XML[T any](keyPath ...string) Deserializer[T] {
	return Func[T](func(data []byte) (T, error) {
		var v T
		found := false
		err := walkXML(data, atPath(keyPath, 1), func(d *xml.Decoder, start *xml.StartElement) (bool, error) {
			found = true
			return false, d.DecodeElement(&v, start)
		})
		if err != nil {
			return v, newError[T](FormatXML, keyPath, err)
		}
		if !found {
			return v, newError[T](FormatXML, keyPath, fmt.Errorf("element not found"))
		}
		return v, nil
	})
}

// XMLCollection decodes every element found at keyPath. An empty keyPath
// selects the children of the root element. No match yields an empty slice;
// any element that fails to decode fails the whole collection.
func XMLCollection[T any](keyPath ...string) Deserializer[[]T] {
	return Func[[]T](func(data []byte) ([]T, error) {
		out := []T{}
		err := walkXML(data, atPath(keyPath, 2), func(d *xml.Decoder, start *xml.StartElement) (bool, error) {
			var v T
			if err := d.DecodeElement(&v, start); err != nil {
				return false, fmt.Errorf("element %d: %w", len(out), err)
			}
			out = append(out, v)
			return true, nil
		})
		if err != nil {
			return nil, newError[[]T](FormatXML, keyPath, err)
		}
		return out, nil
	})
}

// atPath matches elements whose ancestry equals keyPath, or any element at
// depth emptyDepth when keyPath is empty.
func atPath(keyPath []string, emptyDepth int) func([]string) bool {
	if len(keyPath) == 0 {
		return func(path []string) bool { return len(path) == emptyDepth }
	}
	return func(path []string) bool { return slices.Equal(path, keyPath) }
}

// walkXML streams the document and hands every matching start element to
// visit, which consumes it and reports whether the walk continues.
func walkXML(data []byte, match func(path []string) bool, visit func(*xml.Decoder, *xml.StartElement) (bool, error)) error {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	var stack []string
	sawRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			if !sawRoot {
				return fmt.Errorf("document has no root element")
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			path := append(stack, t.Name.Local)
			if match(path) {
				more, err := visit(d, &t)
				if err != nil || !more {
					return err
				}
				continue
			}
			stack = path
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}
