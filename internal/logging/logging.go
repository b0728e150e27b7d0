// Package logging builds the process-wide zap logger. Console output stays
// terse at info level; --verbose drops to debug. When a log directory is
// given, a full debug stream additionally lands in a JSON file there, so a
// failed run can be diagnosed after the fact without rerunning verbose.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Verbose lowers the console level to debug.
	Verbose bool
	// Dir, when non-empty, receives a debug-level JSON log file per run.
	Dir string
}

// New builds the logger. The returned close function flushes buffers and is
// safe to call on exit.
func New(opts Options) (*zap.Logger, func(), error) {
	consoleLevel := zapcore.InfoLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			consoleLevel,
		),
	}

	var closers []func()
	if opts.Dir != "" {
		f, err := openLogFile(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(f),
			zapcore.DebugLevel,
		))
		closers = append(closers, func() { _ = f.Close() })
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeFn := func() {
		_ = logger.Sync()
		for _, c := range closers {
			c()
		}
	}
	return logger, closeFn, nil
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("debate-%s.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
