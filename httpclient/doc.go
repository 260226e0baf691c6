// Package httpclient is the net/http transport behind apiclient.
//
// A Transport turns an apiclient.Exchange into one HTTP round trip. Query,
// JSON and multipart encodings are supported, and multipart uploads report
// byte progress. Every response is handed back whatever its status; only
// network level failures are errors. An optional rate limiter and circuit
// breaker from the resilience package guard each exchange.
//
//	t, err := httpclient.New(httpclient.Config{
//	    Timeout:        10 * time.Second,
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("httpbin"),
//	})
//	if err != nil {
//	    return err
//	}
//	client, err := apiclient.New("https://httpbin.org", t)
//
// CancelAll aborts every exchange in flight and leaves the transport usable.
package httpclient
