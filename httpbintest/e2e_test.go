package httpbintest_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/courier/apiclient"
	"github.com/kbukum/courier/deserialize"
	"github.com/kbukum/courier/httpbintest"
	"github.com/kbukum/courier/httpclient"
	"github.com/kbukum/courier/resilience"
	"github.com/kbukum/courier/testutil"
)

func message(err error) string {
	var e *apiclient.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

func newClient(t *testing.T, baseURL string, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()
	tr, err := httpclient.New(httpclient.Config{Name: "httpbin", Cookies: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts = append([]apiclient.Option{
		apiclient.WithRetryBackoff(resilience.RetryConfig{InitialBackoff: time.Millisecond, BackoffFactor: 1}),
	}, opts...)
	c, err := apiclient.New(baseURL, tr, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		_ = tr.Close(context.Background())
	})
	return c
}

func TestGet_URLField(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL+"/")

	got, err := apiclient.Do(context.Background(), c, apiclient.Request{Path: "get"}, 0,
		deserialize.JSON[string]("url"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := srv.URL + "/get"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestGet_QueryParameters(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	got, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:       "/get",
		Parameters: map[string]any{"name": "brad", "ids": []any{1, 2}},
	}, 0, deserialize.JSON[map[string]any]("args"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"name": "brad", "ids": []any{"1", "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestPost_JSONBody(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	got, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:       "/post",
		Method:     http.MethodPost,
		Parameters: map[string]any{"first": "brad"},
	}, 0, deserialize.JSON[string]("json", "first"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "brad" {
		t.Errorf("json.first = %q", got)
	}
}

func TestBearer(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	token, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:    "/bearer",
		Headers: apiclient.BearerHeaders(apiclient.StaticToken("opaque-token")),
	}, 0, deserialize.JSON[string]("token"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "opaque-token" {
		t.Errorf("token = %q", token)
	}

	_, err = apiclient.Do(context.Background(), c, apiclient.Request{
		Path:         "/bearer",
		ErrorKeyPath: []string{"error", "message"},
	}, 0, deserialize.Empty(), nil)
	if apiclient.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if msg := message(err); msg != "Unauthorized" {
		t.Errorf("message = %q", msg)
	}
}

func TestStatus_ErrorMessageFromBody(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	_, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:         "/status/404",
		ErrorKeyPath: []string{"error", "message"},
	}, 2, deserialize.Empty(), nil)
	if apiclient.KindOf(err) != apiclient.KindStatus {
		t.Fatalf("expected status error, got %v", err)
	}
	if apiclient.StatusCode(err) != http.StatusNotFound || message(err) != "Not Found" {
		t.Errorf("unexpected error: %v", err)
	}
	if hits := srv.Hits("/status/404"); hits != 1 {
		t.Errorf("status errors must not be retried, got %d hits", hits)
	}
}

func TestStatus_EmptySuccessIsAcknowledged(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	ok, err := apiclient.Do(context.Background(), c, apiclient.Request{Path: "/status/204"}, 0,
		deserialize.JSON[bool](), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected the ack payload to decode as true")
	}
}

func TestRecoveredPanic(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	_, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:         "/panic",
		ErrorKeyPath: []string{"error", "message"},
	}, 0, deserialize.Raw(), nil)
	if apiclient.StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if msg := message(err); msg != "Internal server error" {
		t.Errorf("message = %q", msg)
	}
}

type user struct {
	Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Email string `json:"email"`
}

func TestUsers_Collection(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	users, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:       "/users",
		Parameters: map[string]any{"results": 3},
	}, 0, deserialize.JSONCollection[user]("results"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Name.First)
	}
	if diff := cmp.Diff([]string{"brad", "jennie", "marcus"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	missing, err := apiclient.Do(context.Background(), c, apiclient.Request{Path: "/users"}, 0,
		deserialize.JSONCollection[user]("data"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing == nil || len(missing) != 0 {
		t.Errorf("expected an empty collection, got %v", missing)
	}
}

type slide struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title"`
}

func TestXML_Slides(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	slides, err := apiclient.Do(context.Background(), c, apiclient.Request{Path: "/xml"}, 0,
		deserialize.XMLCollection[slide]("slideshow", "slide"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []slide{
		{Type: "all", Title: "Wake up to WonderWidgets!"},
		{Type: "all", Title: "Overview"},
	}
	if diff := cmp.Diff(want, slides); diff != "" {
		t.Errorf("slides mismatch (-want +got):\n%s", diff)
	}
}

func TestCookies(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	got, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:       "/cookies/set",
		Parameters: map[string]any{"session": "abc"},
	}, 0, deserialize.JSON[map[string]string]("cookies"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["session"] != "abc" {
		t.Errorf("cookies = %v", got)
	}
}

func TestMultipartUpload(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello, courier"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var (
		mu        sync.Mutex
		fractions []float64
	)
	files, err := apiclient.Do(context.Background(), c, apiclient.Request{
		Path:      "/post",
		Method:    http.MethodPost,
		Multipart: map[string]string{"file": path},
	}, 0, deserialize.JSON[map[string]string]("files"), func(f float64) {
		mu.Lock()
		defer mu.Unlock()
		fractions = append(fractions, f)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files["file"] != "hello, courier" {
		t.Errorf("files = %v", files)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fractions) < 2 || fractions[0] != 0 || fractions[len(fractions)-1] != 1 {
		t.Fatalf("unexpected progress: %v", fractions)
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Fatalf("progress went backwards: %v", fractions)
		}
	}
}

func TestRetries_UnreachableHost(t *testing.T) {
	srv := httpbintest.New(t)
	dead := srv.URL
	srv.Close()
	c := newClient(t, dead)

	done := make(chan error, 1)
	op := apiclient.Execute(context.Background(), c, apiclient.Request{Path: "/get"}, 2,
		deserialize.Raw(), nil, func(_ []byte, err error) { done <- err })

	err := testutil.Receive(t, "completion", done)
	if !apiclient.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !httpclient.IsConnection(err) {
		t.Errorf("expected the connection failure as the cause, got %v", err)
	}
	if got := op.Attempts(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestCancelAllRequests(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	done := make(chan error, 1)
	apiclient.Execute(context.Background(), c, apiclient.Request{Path: "/delay/5"}, 0,
		deserialize.Raw(), nil, func(_ []byte, err error) { done <- err })

	testutil.Eventually(t, "request to reach the server", func() bool { return srv.Hits("/delay/5") > 0 })
	c.CancelAllRequests()

	if err := testutil.Receive(t, "cancelled completion", done); !apiclient.IsCancelled(err) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if n := c.Outstanding(); n != 0 {
		t.Errorf("outstanding = %d, want 0", n)
	}
}

func TestDo_ContextDeadline(t *testing.T) {
	srv := httpbintest.New(t)
	c := newClient(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := apiclient.Do(ctx, c, apiclient.Request{Path: "/delay/5"}, 0, deserialize.Raw(), nil)
	if !apiclient.IsCancelled(err) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}
