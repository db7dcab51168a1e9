// Package logger wraps zap with the process-wide configuration used by every component.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Config describes where and how verbosely the service logs
	Config struct {
		LogFile   string // Optional file mirrored next to stdout
		LogLevel  string // debug, info, warn, error
		AppName   string // Added to every entry as "app"
		AddCaller bool
	}

	// Logger is the logger handed to components through their Init constructors
	Logger struct {
		*zap.Logger
	}
)

var (
	global *Logger
	mu     sync.RWMutex
)

// Init builds the process logger from cfg. It can be called again to reconfigure.
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.NewMultiWriteSyncer(sinks...),
		level,
	)

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	zl := zap.New(core, opts...)
	if cfg.AppName != "" {
		zl = zl.With(zap.String("app", cfg.AppName))
	}

	mu.Lock()
	global = &Logger{Logger: zl}
	mu.Unlock()

	return nil
}

// Get returns the process logger, or a no-op logger when Init was never called
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return &Logger{Logger: zap.NewNop()}
	}
	return global
}

// Sync flushes buffered entries of the process logger
func Sync() error {
	return Get().Logger.Sync()
}

// NewNop returns a logger that discards everything, handy in tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}
