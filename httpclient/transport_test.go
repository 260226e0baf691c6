package httpclient

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/courier/apiclient"
	"github.com/kbukum/courier/resilience"
	"github.com/kbukum/courier/security"
	"github.com/kbukum/courier/security/tlstest"
)

func newTestTransport(t *testing.T, cfg Config) *Transport {
	t.Helper()
	tr, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	return tr
}

func get(u string) *apiclient.Exchange {
	return &apiclient.Exchange{URL: u, Method: http.MethodGet}
}

func TestTransport_QueryEncoding(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{})
	ex := get(srv.URL + "/get?keep=1")
	ex.Parameters = map[string]any{
		"name":   "brad",
		"ids":    []any{1, 2},
		"tags":   []string{"a", "b"},
		"filter": map[string]any{"age": 30},
		"empty":  nil,
	}
	env, err := tr.Perform(context.Background(), ex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", env.StatusCode)
	}

	want := url.Values{
		"keep":        {"1"},
		"name":        {"brad"},
		"ids":         {"1", "2"},
		"tags":        {"a", "b"},
		"filter[age]": {"30"},
		"empty":       {""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestTransport_JSONEncodingAndHeaders(t *testing.T) {
	var (
		body    map[string]any
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("X-Reply", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{
		Headers: map[string]string{"X-Team": "core", "Accept": "text/plain"},
		Auth:    BearerAuth("configured"),
	})
	env, err := tr.Perform(context.Background(), &apiclient.Exchange{
		URL:        srv.URL + "/post",
		Method:     http.MethodPost,
		Encoding:   apiclient.EncodingJSON,
		Parameters: map[string]any{"name": "brad", "age": 30},
		Headers:    map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.StatusCode != http.StatusCreated || string(env.Body) != `{"ok":true}` {
		t.Errorf("unexpected envelope: %d %s", env.StatusCode, env.Body)
	}
	if env.Headers["X-Reply"] != "yes" {
		t.Errorf("expected response headers, got %v", env.Headers)
	}
	if diff := cmp.Diff(map[string]any{"name": "brad", "age": float64(30)}, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
	if ct := headers.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if headers.Get("Accept") != "application/json" || headers.Get("X-Team") != "core" {
		t.Errorf("unexpected headers: %v", headers)
	}
	if headers.Get("Authorization") != "Bearer configured" {
		t.Errorf("Authorization = %q", headers.Get("Authorization"))
	}
	if ua := headers.Get("User-Agent"); !strings.HasPrefix(ua, "courier/") {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestTransport_ErrorStatusIsAnEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"missing"}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute}})
	for range 3 {
		env, err := tr.Perform(context.Background(), get(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", env.StatusCode)
		}
	}
	if !tr.IsAvailable(context.Background()) {
		t.Error("status responses must not open the breaker")
	}
}

func TestTransport_MultipartUploadReportsProgress(t *testing.T) {
	var (
		mu       sync.Mutex
		received = map[string]string{}
		types    = map[string]string{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		mu.Lock()
		defer mu.Unlock()
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(part)
			received[part.FormName()] = part.FileName() + ":" + string(data)
			types[part.FormName()] = part.Header.Get("Content-Type")
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	blob := filepath.Join(dir, "blob")
	if err := os.WriteFile(notes, []byte("hello"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(blob, []byte("raw"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var (
		pmu   sync.Mutex
		sent  []int64
		total int64
	)
	tr := newTestTransport(t, Config{})
	env, err := tr.Perform(context.Background(), &apiclient.Exchange{
		URL:       srv.URL + "/post",
		Method:    http.MethodPost,
		Encoding:  apiclient.EncodingMultipart,
		Multipart: map[string]string{"notes": notes, "blob": blob},
		Progress: func(s, tot int64) {
			pmu.Lock()
			defer pmu.Unlock()
			sent = append(sent, s)
			total = tot
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", env.StatusCode, env.Body)
	}

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(map[string]string{"notes": "notes.txt:hello", "blob": "blob:raw"}, received); diff != "" {
		t.Errorf("parts mismatch (-want +got):\n%s", diff)
	}
	if ct := types["notes"]; !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("notes content type = %q", ct)
	}
	pmu.Lock()
	defer pmu.Unlock()
	if len(sent) == 0 {
		t.Fatal("expected progress reports")
	}
	for i := 1; i < len(sent); i++ {
		if sent[i] < sent[i-1] {
			t.Fatalf("progress went backwards: %v", sent)
		}
	}
	if last := sent[len(sent)-1]; last != total {
		t.Errorf("expected final report %d of %d", last, total)
	}
}

func TestTransport_MissingUploadFile(t *testing.T) {
	tr := newTestTransport(t, Config{})
	_, err := tr.Perform(context.Background(), &apiclient.Exchange{
		URL:       "http://127.0.0.1:1/post",
		Method:    http.MethodPost,
		Encoding:  apiclient.EncodingMultipart,
		Multipart: map[string]string{"file": filepath.Join(t.TempDir(), "nope")},
	})
	if !hasCode(err, ErrCodeEncoding) {
		t.Fatalf("expected encoding error, got %v", err)
	}
}

func TestTransport_CancelAll(t *testing.T) {
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/delay" {
			started <- struct{}{}
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{})
	errCh := make(chan error, 1)
	go func() {
		_, err := tr.Perform(context.Background(), get(srv.URL+"/delay"))
		errCh <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("exchange never reached the server")
	}
	tr.CancelAll()

	select {
	case err := <-errCh:
		if !hasCode(err, ErrCodeCancelled) {
			t.Fatalf("expected cancelled error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("CancelAll did not abort the exchange")
	}

	env, err := tr.Perform(context.Background(), get(srv.URL+"/get"))
	if err != nil {
		t.Fatalf("transport unusable after CancelAll: %v", err)
	}
	if string(env.Body) != "ok" {
		t.Errorf("unexpected body %q", env.Body)
	}
}

func TestTransport_Close(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tr := newTestTransport(t, Config{})
	if err := tr.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.CancelAll()
	if _, err := tr.Perform(context.Background(), get(srv.URL)); !hasCode(err, ErrCodeCancelled) {
		t.Fatalf("expected cancelled error after Close, got %v", err)
	}
}

func TestTransport_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Timeout: 50 * time.Millisecond})
	_, err := tr.Perform(context.Background(), get(srv.URL))
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("expected timeouts to be retryable")
	}
}

func TestTransport_CircuitBreakerOpensOnConnectionFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	cb := DefaultCircuitBreakerConfig("")
	cb.MaxFailures = 2
	tr := newTestTransport(t, Config{Name: "dead", CircuitBreaker: cb})

	for i := range 2 {
		_, err := tr.Perform(context.Background(), get(deadURL))
		if !IsConnection(err) {
			t.Fatalf("attempt %d: expected connection error, got %v", i, err)
		}
	}
	_, err := tr.Perform(context.Background(), get(deadURL))
	if !IsCircuitOpen(err) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.URL != deadURL || e.Method != http.MethodGet {
		t.Errorf("expected exchange details on the error, got %+v", e)
	}
	if tr.IsAvailable(context.Background()) {
		t.Error("expected transport to be unavailable while open")
	}
}

func TestTransport_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tr := newTestTransport(t, Config{RateLimiter: &resilience.RateLimiterConfig{Rate: 0.1, Burst: 1}})
	if _, err := tr.Perform(context.Background(), get(srv.URL)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tr.Perform(ctx, get(srv.URL))
	if !hasCode(err, ErrCodeRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestTransport_Cookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cookies/set" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		c, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(c.Value))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Cookies: true})
	if _, err := tr.Perform(context.Background(), get(srv.URL+"/cookies/set")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env, err := tr.Perform(context.Background(), get(srv.URL+"/cookies"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != http.StatusOK || string(env.Body) != "abc" {
		t.Errorf("expected cookie echo, got %d %q", env.StatusCode, env.Body)
	}
}

func TestTransport_TLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := tlstest.NewServer(t, certs, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))

	untrusted := newTestTransport(t, Config{})
	if _, err := untrusted.Perform(context.Background(), get(srv.URL)); !IsConnection(err) {
		t.Fatalf("expected certificate failure, got %v", err)
	}

	trusted := newTestTransport(t, Config{TLS: &security.TLSConfig{CAFile: certs.CAFile}})
	env, err := trusted.Perform(context.Background(), get(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(env.Body) != "secure" {
		t.Errorf("unexpected body %q", env.Body)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Auth: &AuthConfig{Type: AuthBasic}}); err == nil {
		t.Fatal("expected error for basic auth without username")
	}
	if _, err := New(Config{TLS: &security.TLSConfig{CAFile: filepath.Join(t.TempDir(), "missing.pem")}}); err == nil {
		t.Fatal("expected error for missing CA file")
	}
}
