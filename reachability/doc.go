// Package reachability tracks whether an API host can be reached.
//
// A Service is an explicit instance with a Start/Stop lifecycle. It does not
// poll: whatever monitors the network calls Report, and the apiclient
// consults Reachable before each request.
//
//	svc, _ := reachability.ForURL("https://httpbin.org/",
//	    reachability.OnChange(func(c reachability.Change) { ... }))
//	_ = svc.Start(ctx)
//	client, _ := apiclient.New(base, transport, apiclient.WithReachability(svc))
package reachability
