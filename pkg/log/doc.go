// Package log is segstore's structured logging facade.
//
// Components receive a Logger and derive scoped loggers from it:
//
//	l := log.NewLogger(log.WithLevel(log.InfoLevel), log.WithFormatter(&log.TextFormatter{}))
//	l = l.WithComponent("archive")
//	l.Info("sealed segment", log.Key(key), log.Int64("bytes", n))
//
// Entries go through a log/slog handler that applies redaction and sampling
// before handing them to the configured Formatter and Outputs. ApplyConfig
// builds a logger from the "log" section of the config file.
//
// Request scoped fields travel in the context: NewContext stores them and
// Logger.WithContext adds them to a derived logger. The HTTP server uses this
// to stamp request ids on archive log lines.
//
// Pebble and other libraries that log through the standard library can be
// pointed at a Logger with RedirectStdLog.
package log
