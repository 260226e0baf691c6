package commands

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/kbukum/courier/apiclient"
	"github.com/kbukum/courier/deserialize"
)

const (
	formatJSON = "json"
	formatXML  = "xml"
	formatRaw  = "raw"
)

// xmlNode keeps an element verbatim so it can be printed back.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

// fetch executes req with the deserializer the output format calls for and
// writes the result to w.
func fetch(ctx context.Context, c *apiclient.Client, req apiclient.Request, retries int, opts *requestOptions, progress apiclient.ProgressFunc, w io.Writer) error {
	keyPath := splitKeyPath(opts.keyPath)

	switch opts.output {
	case formatRaw:
		data, err := apiclient.Do(ctx, c, req, retries, deserialize.Raw(), progress)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case formatXML:
		if opts.collection {
			nodes, err := apiclient.Do(ctx, c, req, retries, deserialize.XMLCollection[xmlNode](keyPath...), progress)
			if err != nil {
				return err
			}
			return writeXML(w, nodes...)
		}
		node, err := apiclient.Do(ctx, c, req, retries, deserialize.XML[xmlNode](keyPath...), progress)
		if err != nil {
			return err
		}
		return writeXML(w, node)

	case formatJSON:
		if opts.collection {
			items, err := apiclient.DoRequest(ctx, c,
				apiclient.NewTyped(req, deserialize.JSONCollection[any](keyPath...)), retries, progress)
			if err != nil {
				return err
			}
			return writeJSON(w, items)
		}
		v, err := apiclient.DoRequest(ctx, c,
			apiclient.NewTyped(req, deserialize.JSON[any](keyPath...)), retries, progress)
		if err != nil {
			return err
		}
		return writeJSON(w, v)
	}
	return fmt.Errorf("unknown output format %q (want json, xml or raw)", opts.output)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeXML(w io.Writer, nodes ...xmlNode) error {
	for _, n := range nodes {
		data, err := xml.Marshal(n)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// splitKeyPath accepts "a.b.c" or "a,b,c".
func splitKeyPath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
}

// parsePairs parses key=value flags. Later keys win.
func parsePairs(flag string, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --%s %q: want key=value", flag, p)
		}
		out[k] = v
	}
	return out, nil
}

// parseParams parses key=value flags. A repeated key becomes a list.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", p)
		}
		switch prev := out[k].(type) {
		case nil:
			out[k] = v
		case string:
			out[k] = []any{prev, v}
		case []any:
			out[k] = append(prev, v)
		}
	}
	return out, nil
}
