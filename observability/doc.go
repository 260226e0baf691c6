// Package observability wires OpenTelemetry tracing and metrics for the
// request engine.
//
//	tp, err := observability.InitTracer(ctx, cfg.Tracing, log)
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter())
//	client, err := apiclient.New(base, transport,
//	    apiclient.WithTracing(true),
//	    apiclient.WithMetrics(metrics),
//	)
package observability
