// Package logger provides leveled logging for docchat.
// Console output is terse ("[INFO] message") and only shows debug and info
// messages in verbose mode. Init adds a rotated JSON log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu       sync.RWMutex
	verbose  bool
	output   io.Writer = os.Stderr
	fileCore zapcore.Core
	rotator  *lumberjack.Logger
	base     = build()
)

// build assembles the zap logger from the current state (caller must hold mu).
func build() *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "message",
		EncodeLevel:      bracketLevelEncoder,
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
	}
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(output)),
		level,
	)

	core := console
	if fileCore != nil {
		core = zapcore.NewTee(console, fileCore)
	}
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func bracketLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Init adds a JSON log file at path, rotated at 10MB. Info and above are
// written regardless of verbose mode. An empty path disables the file.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if rotator != nil {
		_ = rotator.Close()
		rotator, fileCore = nil, nil
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		rotator = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		fileCore = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), zap.InfoLevel)
	}
	base = build()
	return nil
}

// Sync flushes buffered log entries and closes the log file. Console sync
// errors are ignored; stderr cannot be synced on every platform.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()

	_ = base.Sync()
	if rotator != nil {
		return rotator.Close()
	}
	return nil
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the console writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build()
}

// Debug logs a message, shown on the console only in verbose mode.
func Debug(format string, args ...any) {
	current().Debug(fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func Info(format string, args ...any) {
	current().Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	current().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error.
func Error(format string, args ...any) {
	current().Error(fmt.Sprintf(format, args...))
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
