package log

import (
	"fmt"
	"strings"
)

// Config is the declarative logger configuration.
type Config struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string `json:"level" yaml:"level"`
	// Format is text or json. Default text.
	Format string `json:"format" yaml:"format"`
	// Outputs lists "console", "null" or file paths. Default console.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	// Redact lists field keys whose values are replaced with [REDACTED].
	Redact []string `json:"redact,omitempty" yaml:"redact,omitempty"`
	// SampleInitial and SampleThereafter enable per-message sampling.
	SampleInitial    int `json:"sampleInitial,omitempty" yaml:"sampleInitial,omitempty"`
	SampleThereafter int `json:"sampleThereafter,omitempty" yaml:"sampleThereafter,omitempty"`
	// ShowCaller adds the caller location to each entry.
	ShowCaller bool `json:"showCaller,omitempty" yaml:"showCaller,omitempty"`
}

// ParseLevel maps a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	}
	return InfoLevel, fmt.Errorf("log: unknown level %q", s)
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := []LoggerOption{WithLevel(level)}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{ShowCaller: cfg.ShowCaller}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{ShowCaller: cfg.ShowCaller}))
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	for _, o := range cfg.Outputs {
		switch o {
		case "", "console", "stderr":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "null", "none":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			fo, err := NewFileOutput(o)
			if err != nil {
				return nil, fmt.Errorf("log: output %q: %w", o, err)
			}
			opts = append(opts, WithOutput(fo))
		}
	}
	if len(cfg.Redact) > 0 {
		opts = append(opts, WithRedaction(cfg.Redact...))
	}
	if cfg.SampleThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	}
	return NewLogger(opts...), nil
}
