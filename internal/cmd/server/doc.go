// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the segstore runtime and its HTTP server, handling lifecycle and shutdown.
//
// Example:
//
//	cfg, _ := config.Load("/etc/segstore.yaml")
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg, HTTPAddr: ":8080"})
package serverrun
