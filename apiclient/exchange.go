package apiclient

import "context"

// Envelope is a transport response. A zero StatusCode means the transport
// did not report one.
type Envelope struct {
	Body       []byte
	StatusCode int
	Headers    map[string]string
}

// Exchange is everything the transport needs for one round trip.
type Exchange struct {
	URL        string
	Method     string
	Parameters map[string]any
	Encoding   Encoding
	// Multipart maps form field names to local file paths.
	Multipart map[string]string
	Headers   map[string]string
	// Progress, when set, receives upload byte counts. total is -1 when
	// unknown.
	Progress func(sent, total int64)
}

// Transport performs exactly one exchange. Cancelling ctx aborts it.
//
// Every response that carries a status is returned as an Envelope, whatever
// the status; only failures to complete the round trip are errors.
type Transport interface {
	Perform(ctx context.Context, ex *Exchange) (*Envelope, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ex *Exchange) (*Envelope, error)

func (f TransportFunc) Perform(ctx context.Context, ex *Exchange) (*Envelope, error) {
	return f(ctx, ex)
}

// Canceller is implemented by transports that can abort every exchange they
// have in flight.
type Canceller interface {
	CancelAll()
}

// Reachability reports whether the network is usable. known is false while
// the state has not been determined; an unknown state never blocks requests.
type Reachability interface {
	Reachable() (reachable, known bool)
}
