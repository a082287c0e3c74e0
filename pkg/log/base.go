package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// clone returns a copy of l whose slog handler carries attrs on top of the
// attributes l already has.
func (l *BaseLogger) clone(attrs []slog.Attr) *BaseLogger {
	nl := *l
	nl.attrs = append(append([]slog.Attr(nil), l.attrs...), attrs...)
	nl.fields = Fields{}
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	for _, a := range attrs {
		nl.fields[a.Key] = a.Value.Any()
	}
	nl.rebuild()
	return &nl
}

// rebuild recreates the slog logger so the handler observes this BaseLogger.
func (l *BaseLogger) rebuild() {
	h := newBridgeHandler(l).withRedactions(l.redact).withSampler(l.sampleInitial, l.sampleThereafter)
	var sh slog.Handler = h
	if len(l.attrs) > 0 {
		sh = h.WithAttrs(l.attrs)
	}
	l.slogLogger = slog.New(sh)
}

func (l *BaseLogger) log(level Level, msg string, attrs []slog.Attr) {
	ctx := context.Background()
	sl := toSlogLevel(level)
	if !l.slogLogger.Enabled(ctx, sl) {
		return
	}
	var pcs [1]uintptr
	// skip runtime.Callers, log, and the exported method
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), sl, msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.slogLogger.Handler().Handle(ctx, r)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, attrsFromFieldSlice(fields))
}

func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, attrsFromFieldSlice(fields))
}

func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, attrsFromFieldSlice(fields))
}

func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, attrsFromFieldSlice(fields))
}

// Fatal logs at error severity and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, attrsFromFieldSlice(fields))
	l.close()
	os.Exit(1)
}

// Debugf logs msg with key/value pairs (k1, v1, k2, v2, ...).
func (l *BaseLogger) Debugf(msg string, args ...interface{}) {
	l.log(DebugLevel, msg, argsToAttrs(args))
}

func (l *BaseLogger) Infof(msg string, args ...interface{}) {
	l.log(InfoLevel, msg, argsToAttrs(args))
}

func (l *BaseLogger) Warnf(msg string, args ...interface{}) {
	l.log(WarnLevel, msg, argsToAttrs(args))
}

func (l *BaseLogger) Errorf(msg string, args ...interface{}) {
	l.log(ErrorLevel, msg, argsToAttrs(args))
}

func (l *BaseLogger) Fatalf(msg string, args ...interface{}) {
	l.log(FatalLevel, msg, argsToAttrs(args))
	l.close()
	os.Exit(1)
}

func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.clone([]slog.Attr{slog.Any(key, value)})
}

func (l *BaseLogger) WithFields(fields Fields) Logger {
	return l.clone(attrsFromMap(fields))
}

func (l *BaseLogger) WithError(err error) Logger {
	f := Err(err)
	return l.clone([]slog.Attr{slog.Any(f.Key, f.Value)})
}

func (l *BaseLogger) With(fields ...Field) Logger {
	return l.clone(attrsFromFieldSlice(fields))
}

// WithContext copies the well-known request keys found in ctx onto the logger.
func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	fields := ContextExtractor(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields)
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

// SetLevel changes the minimum level of this logger. Loggers derived before
// the call keep their own level.
func (l *BaseLogger) SetLevel(level Level) { l.level = level }

func (l *BaseLogger) GetLevel() Level { return l.level }

func (l *BaseLogger) close() {
	for _, out := range l.outputs {
		_ = out.Close()
	}
}

// String implements fmt.Stringer for debugging.
func (l *BaseLogger) String() string {
	return fmt.Sprintf("log.BaseLogger{level=%s outputs=%d}", l.level, len(l.outputs))
}
