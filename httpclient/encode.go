package httpclient

import (
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"

	json "github.com/goccy/go-json"

	"github.com/kbukum/courier/apiclient"
)

const (
	contentTypeJSON = "application/json"
)

// payload is an encoded request body.
type payload struct {
	data        []byte
	contentType string
}

// encodeExchange applies ex's parameters to u and returns the body, if any.
func encodeExchange(ex *apiclient.Exchange, u *url.URL) (*payload, error) {
	switch ex.Encoding {
	case apiclient.EncodingQuery:
		if len(ex.Parameters) == 0 {
			return nil, nil
		}
		q := u.Query()
		addQuery(q, "", ex.Parameters)
		u.RawQuery = q.Encode()
		return nil, nil
	case apiclient.EncodingJSON:
		if len(ex.Parameters) == 0 {
			return nil, nil
		}
		data, err := json.Marshal(ex.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode json parameters: %w", err)
		}
		return &payload{data: data, contentType: contentTypeJSON}, nil
	case apiclient.EncodingMultipart:
		body, err := multipartFromFiles(ex.Multipart)
		if err != nil {
			return nil, err
		}
		data, contentType, err := body.encode()
		if err != nil {
			return nil, fmt.Errorf("encode multipart body: %w", err)
		}
		return &payload{data: data, contentType: contentType}, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %s", ex.Encoding)
	}
}

// addQuery flattens params into q. Slices repeat the key and nested maps use
// bracketed keys, e.g. filter[name]=x.
func addQuery(q url.Values, prefix string, params map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(params)) {
		key := k
		if prefix != "" {
			key = prefix + "[" + k + "]"
		}
		addQueryValue(q, key, params[k])
	}
}

func addQueryValue(q url.Values, key string, v any) {
	switch val := v.(type) {
	case nil:
		q.Add(key, "")
	case map[string]any:
		addQuery(q, key, val)
	case []any:
		for _, item := range val {
			addQueryValue(q, key, item)
		}
	case []string:
		for _, item := range val {
			q.Add(key, item)
		}
	case []int:
		for _, item := range val {
			q.Add(key, fmt.Sprint(item))
		}
	default:
		q.Add(key, fmt.Sprint(val))
	}
}

// progressReader reports the bytes read so far after every read.
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
