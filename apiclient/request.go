package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/kbukum/courier/deserialize"
	"github.com/kbukum/courier/validation"
)

// HeaderFunc builds the headers for one attempt. It runs again on every
// retry, so credentials refreshed between attempts are picked up.
type HeaderFunc func() (map[string]string, error)

// Encoding selects how parameters travel to the server.
type Encoding int

const (
	// EncodingQuery puts parameters in the URL query.
	EncodingQuery Encoding = iota
	// EncodingJSON sends parameters as a JSON object body.
	EncodingJSON
	// EncodingMultipart uploads the request's files as multipart/form-data.
	EncodingMultipart
)

func (e Encoding) String() string {
	switch e {
	case EncodingQuery:
		return "query"
	case EncodingJSON:
		return "json"
	case EncodingMultipart:
		return "multipart"
	default:
		return "unknown"
	}
}

var (
	knownMethods = []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	bodyMethods  = []string{http.MethodPost, http.MethodPut, http.MethodPatch}
	queryMethods = []string{http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions}
)

// Request describes one API call. It is treated as immutable once handed
// to the client.
type Request struct {
	// Path is joined to the client's base URL.
	Path string
	// FullPath replaces the base URL and Path when non-empty.
	FullPath string
	// Method defaults to GET.
	Method     string
	Parameters map[string]any
	Headers    HeaderFunc
	// Multipart maps form field names to local file paths. It excludes
	// Parameters and needs POST, PUT or PATCH.
	Multipart map[string]string
	// ErrorKeyPath locates the server's message in a rejected JSON body.
	ErrorKeyPath []string
}

// HTTPMethod returns the upper-cased method, GET when unset.
func (r Request) HTTPMethod() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Validate checks the request before any transport contact.
func (r Request) Validate() error {
	method := r.HTTPMethod()
	return validation.New().
		OneOf("method", method, knownMethods).
		AbsoluteURL("full_path", r.FullPath).
		Custom(len(r.Multipart) == 0 || len(r.Parameters) == 0,
			"multipart", "cannot be combined with parameters").
		Custom(len(r.Multipart) == 0 || slices.Contains(bodyMethods, method),
			"multipart", fmt.Sprintf("requires POST, PUT or PATCH, got %s", method)).
		Err()
}

// ResolvePath returns FullPath when set, otherwise base joined with Path.
func (r Request) ResolvePath(base *url.URL) string {
	if r.FullPath != "" {
		return r.FullPath
	}
	if base == nil {
		return r.Path
	}
	root := base.String()
	if r.Path == "" {
		return root
	}
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(r.Path, "/")
}

// BuildHeaders runs the header function. A failure is a header construction
// error.
func (r Request) BuildHeaders() (map[string]string, error) {
	if r.Headers == nil {
		return map[string]string{}, nil
	}
	h, err := r.Headers()
	if err != nil {
		return nil, headerConstructionError(err)
	}
	if h == nil {
		h = map[string]string{}
	}
	return h, nil
}

// Encoding picks multipart when files are attached, the query string for
// read-only methods and a JSON body otherwise.
func (r Request) Encoding() Encoding {
	switch {
	case len(r.Multipart) > 0:
		return EncodingMultipart
	case slices.Contains(queryMethods, r.HTTPMethod()):
		return EncodingQuery
	default:
		return EncodingJSON
	}
}

// DeserializableRequest pairs a request with the decoder for its response.
type DeserializableRequest[T any] interface {
	APIRequest() Request
	Deserializer() deserialize.Deserializer[T]
}

// Typed is the stock DeserializableRequest.
type Typed[T any] struct {
	Request Request
	Decoder deserialize.Deserializer[T]
}

// NewTyped pairs req with d.
func NewTyped[T any](req Request, d deserialize.Deserializer[T]) Typed[T] {
	return Typed[T]{Request: req, Decoder: d}
}

func (t Typed[T]) APIRequest() Request                       { return t.Request }
func (t Typed[T]) Deserializer() deserialize.Deserializer[T] { return t.Decoder }
