package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry so server and worker logs can be joined.
const ServiceName = "devboard"

// Options configures a process logger.
type Options struct {
	// Component names the binary, e.g. "server" or "worker".
	Component string
	Version   string
	Debug     bool
	// Console switches to the human readable development encoder.
	Console bool
}

// New builds the process logger. Production output is JSON with ISO8601
// timestamps and stack traces from error level up.
func New(opts Options) (*zap.Logger, error) {
	var config zap.Config
	if opts.Console {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.Encoding = "json"
		config.EncoderConfig = encoderConfig()
		config.DisableStacktrace = false
	}

	config.Level = zap.NewAtomicLevelAt(levelFor(opts.Debug))
	config.InitialFields = initialFields(opts)

	return config.Build()
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func initialFields(opts Options) map[string]any {
	fields := map[string]any{"service": ServiceName}
	if opts.Component != "" {
		fields["component"] = opts.Component
	}
	if opts.Version != "" {
		fields["version"] = opts.Version
	}
	return fields
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// Sync flushes buffered entries. Safe to call with a nil logger.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}
