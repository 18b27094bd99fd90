// Package logging contains the structured loggers used by the simulator, its sensors and transports.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging interface handed to every sensor, transport and manager.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a child logger whose name is "<parent>.<subname>".
	Sublogger(subname string) Logger
	Desugar() *zap.Logger
	Sync() error
}

type impl struct {
	*zap.SugaredLogger
}

func (imp *impl) Sublogger(subname string) Logger {
	return &impl{imp.SugaredLogger.Named(subname)}
}

// FromZapCompatible wraps an existing sugared zap logger.
func FromZapCompatible(logger *zap.SugaredLogger) Logger {
	return &impl{logger}
}

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("startup")
)

// ReplaceGlobal replaces the global logger.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels.
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding:          "console",
		EncoderConfig:     newEncoderConfig(zapcore.CapitalColorLevelEncoder),
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func newEncoderConfig(levelEncoder zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return &impl{zap.Must(NewLoggerConfig().Build()).Sugar().Named(name)}
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	config := NewLoggerConfig()
	config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return &impl{zap.Must(config.Build()).Sugar().Named(name)}
}

// FileConfig describes a rotating log file written next to the stdout output.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
}

// NewFileLogger returns a logger that writes to stdout and to a size-rotated file.
func NewFileLogger(name string, conf FileConfig) Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if conf.Debug {
		level.SetLevel(zap.DebugLevel)
	}
	maxSize := conf.MaxSizeMB
	if maxSize == 0 {
		maxSize = 100
	}
	rotator := &lumberjack.Logger{
		Filename:   conf.Path,
		MaxSize:    maxSize,
		MaxBackups: conf.MaxBackups,
	}

	stdoutCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(newEncoderConfig(zapcore.CapitalColorLevelEncoder)),
		zapcore.Lock(os.Stdout),
		level,
	)
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig(zapcore.CapitalLevelEncoder)),
		zapcore.AddSync(rotator),
		level,
	)
	logger := zap.New(zapcore.NewTee(stdoutCore, fileCore), zap.AddCaller())
	return &impl{logger.Sugar().Named(name)}
}
