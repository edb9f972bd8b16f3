package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapOptions configures the zap backed logger.
type ZapOptions struct {
	Level       string
	Encoding    string
	Development bool
}

type zapLogger struct {
	base *zap.Logger
}

// NewZapLogger builds a Logger backed by zap.
func NewZapLogger(opts ZapOptions) (Logger, func() error, error) {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return nil, nil, fmt.Errorf("parse log level %q: %w", raw, err)
		}
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	if enc := strings.TrimSpace(opts.Encoding); enc != "" {
		cfg.Encoding = enc
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}
	return WrapZap(base), base.Sync, nil
}

// WrapZap adapts an existing zap logger.
func WrapZap(base *zap.Logger) Logger {
	if base == nil {
		return noopLogger{}
	}
	return zapLogger{base: base}
}

func (l zapLogger) Debug(msg string, fields ...Field) { l.base.Debug(msg, toZap(fields)...) }
func (l zapLogger) Info(msg string, fields ...Field)  { l.base.Info(msg, toZap(fields)...) }
func (l zapLogger) Warn(msg string, fields ...Field)  { l.base.Warn(msg, toZap(fields)...) }
func (l zapLogger) Error(msg string, fields ...Field) { l.base.Error(msg, toZap(fields)...) }

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		case fmt.Stringer:
			out = append(out, zap.Stringer(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
