// Package resilience provides the fault-tolerance building blocks used by the
// request engine and its HTTP transport.
//
//   - Retry re-runs an operation a bounded number of times, with an optional
//     exponential backoff, and stops as soon as the context is done.
//   - Bulkhead bounds how many calls run at once; Go dispatches work onto a
//     goroutine once a slot is free.
//   - CircuitBreaker fails fast after consecutive failures.
//   - RateLimiter paces calls with a token bucket.
//
// Example, a transport call guarded by a breaker and a limiter:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("http"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 50})
//
//	err := rl.ExecuteWait(ctx, func() error {
//	    return cb.Execute(func() error {
//	        resp, err = httpClient.Do(req)
//	        return err
//	    })
//	})
package resilience
