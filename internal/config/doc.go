// Package config provides loading, environment overlay and validation for
// segstore configuration. It exposes a Default() baseline that runs against a
// local Pebble bucket.
//
// Example:
//
//	cfg, err := config.Load("/etc/segstore.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg})
//	defer rt.Close()
package config
