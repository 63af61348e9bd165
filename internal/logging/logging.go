// Package logging builds the run logger: console output by default,
// redirected to a log file when one is configured.
package logging

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configure the run logger.
type Options struct {
	// LogFile redirects output to a file instead of stdout.
	LogFile string
	// NewLog truncates an existing log file instead of appending.
	NewLog bool
	// Verbose lowers the level to Debug.
	Verbose bool
}

// New builds a sugared console logger. The returned close function flushes
// buffers and closes the log file when one was opened.
func New(opts Options) (*zap.SugaredLogger, func(), error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	sink := zapcore.AddSync(os.Stdout)
	closeFile := func() {}
	if opts.LogFile != "" {
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if opts.NewLog {
			flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		}
		file, err := os.OpenFile(opts.LogFile, flags, 0o644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "unable to open log file %s", opts.LogFile)
		}
		sink = zapcore.AddSync(file)
		closeFile = func() { _ = file.Close() }
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level))
	closer := func() {
		_ = logger.Sync()
		closeFile()
	}
	return logger.Sugar(), closer, nil
}
