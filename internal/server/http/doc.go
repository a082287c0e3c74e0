// Package httpserver provides the admin REST gateway for segstore: segment
// listings with CEL filters, ranged raw segment reads, topic metadata and the
// Prometheus /metrics endpoint.
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
