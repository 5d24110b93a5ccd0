package logger

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds both the raw zap.Logger and its sugared counterpart.
type Logger struct {
	*zap.Logger
	*zap.SugaredLogger
}

// New creates a JSON logger writing to stderr. Stdout is left to the
// rendered report so it can be piped.
// Accepted levels (case-insensitive): "debug", "info", "warn", "error".
func New(level string) (*Logger, error) {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(level string, w io.Writer) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zapLevel,
	)

	zapLogger := zap.New(core, zap.AddCaller())
	return &Logger{
		Logger:        zapLogger,
		SugaredLogger: zapLogger.Sugar(),
	}, nil
}

// FromContext extracts a *zap.Logger stored in ctx, or the fallback.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// WithContext returns a new context that carries the supplied logger.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

type loggerKey struct{}

// WithRunID tags every entry of one comparison run with a fresh id.
// The id is returned so callers can surface it.
func WithRunID(l *zap.Logger) (*zap.Logger, string) {
	id := uuid.NewString()
	return l.With(zap.String("run_id", id)), id
}

// Flush forces any buffered log entries to be written.
func Flush(l *zap.Logger) {
	// Sync on a console fd returns EINVAL on some platforms; nothing to do about it.
	_ = l.Sync()
}
