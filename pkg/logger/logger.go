// Package logger provides opinionated logging capabilities for scholar.
//
// Logs go to stderr so command output on stdout stays pipeable.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

func NewLogger(debug bool) *zap.Logger {
	return NewLoggerWithWriters(debug, os.Stderr)
}

// NewLoggerWithWriters builds a console logger that fans out to every
// writer. Levels are coloured only when all writers are terminals.
func NewLoggerWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	if len(writers) == 0 {
		writers = []io.Writer{os.Stderr}
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	color := true
	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, w := range writers {
		if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
			color = false
		}
		syncers = append(syncers, zapcore.AddSync(w))
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.NewMultiWriteSyncer(syncers...),
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
