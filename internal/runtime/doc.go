// Package runtime wires configuration, the object storage backend, metrics
// and the archive facade into a single segstore instance. It exposes
// Open/Close, a health check and accessors used by the servers.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(ctx)
//	topic, _ := rt.Archive().Topic("orders")
//	idx, _ := topic.Segments(ctx)
package runtime
