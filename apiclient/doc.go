// Package apiclient executes typed API requests over a pluggable Transport.
//
// Each exchange is exposed as a cold, demand-driven Publisher that emits at
// most one Envelope and then completes. Execute composes the pieces:
//
//	reachability check -> request validation -> exchange publisher
//	  -> Retry (transport failures only) -> Gate (status) -> Deserializer
//	  -> completion, delivered once on the client's executor
//
// Cancellation always wins: once an Operation is cancelled, through its
// handle, its context or CancelAllRequests, the completion receives
// ErrCancelled and any result still in flight is dropped.
//
//	c, err := apiclient.New("https://httpbin.org/", transport)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	type getResponse struct {
//	    URL string `json:"url"`
//	}
//	resp, err := apiclient.Do(ctx, c, apiclient.Request{Path: "get"}, 2,
//	    deserialize.JSON[getResponse](), nil)
//
// The httpclient package provides the net/http Transport.
package apiclient
