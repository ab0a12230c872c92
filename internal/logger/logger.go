// Package logger provides a context-aware structured logger backed by zap.
package logger

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum level a logger writes.
type Level int8

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// TraceIDFn extracts a trace id from a context. An empty result omits the field.
type TraceIDFn func(ctx context.Context) string

// LoggerInterface is the logging contract accepted by every component.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// The c variants skip caller frames so helpers can report their caller.
	Debugc(ctx context.Context, caller int, msg string, args ...any)
	Infoc(ctx context.Context, caller int, msg string, args ...any)
	Warnc(ctx context.Context, caller int, msg string, args ...any)
	Errorc(ctx context.Context, caller int, msg string, args ...any)
}

var _ LoggerInterface = (*Logger)(nil)

// Logger writes JSON log lines through zap.
type Logger struct {
	base    *zap.Logger
	traceID TraceIDFn
}

// New creates a logger writing to w at the given minimum level.
// When traceIDFn is nil the id of the active otel span is used.
func New(w io.Writer, level Level, serviceName string, traceIDFn TraceIDFn) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level.zap()),
	)

	if traceIDFn == nil {
		traceIDFn = spanTraceID
	}

	return &Logger{
		base:    zap.New(core, zap.AddCaller()).With(zap.String("service", serviceName)),
		traceID: traceIDFn,
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{base: zap.NewNop(), traceID: spanTraceID}
}

func spanTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 1, zapcore.DebugLevel, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 1, zapcore.InfoLevel, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 1, zapcore.WarnLevel, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, 1, zapcore.ErrorLevel, msg, args)
}

func (l *Logger) Debugc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller+1, zapcore.DebugLevel, msg, args)
}

func (l *Logger) Infoc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller+1, zapcore.InfoLevel, msg, args)
}

func (l *Logger) Warnc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller+1, zapcore.WarnLevel, msg, args)
}

func (l *Logger) Errorc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, caller+1, zapcore.ErrorLevel, msg, args)
}

func (l *Logger) write(ctx context.Context, skip int, lvl zapcore.Level, msg string, args []any) {
	log := l.base.WithOptions(zap.AddCallerSkip(skip))
	ce := log.Check(lvl, msg)
	if ce == nil {
		return
	}

	fields := toFields(args)
	if ctx != nil {
		if id := l.traceID(ctx); id != "" {
			fields = append(fields, zap.String("trace_id", id))
		}
	}
	ce.Write(fields...)
}

// toFields converts alternating key/value pairs into zap fields.
// A dangling key is logged under "!BADKEY".
func toFields(args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i++ {
		if f, ok := args[i].(zap.Field); ok {
			fields = append(fields, f)
			continue
		}
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			fields = append(fields, zap.Any("!BADKEY", args[i]))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
		i++
	}
	return fields
}
