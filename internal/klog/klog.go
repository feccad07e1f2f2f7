// Package klog wraps logrus with the level/field conventions the kernel's
// subsystems log through, mirroring the Emitter split runsc/cli builds
// around its own pkg/log at startup (a configurable writer plus a
// level selected from the command line).
package klog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the kernel-wide logging handle. Every subsystem is handed one
// rather than reaching for a package-level logger, so tests can inject a
// buffer and assert on emitted lines.
type Logger struct {
	entry *logrus.Entry
}

// Format selects the on-disk/console rendering of log lines.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New builds a Logger writing to w at the given level and format, the same
// three knobs runsc/cli's newEmitter exposes.
func New(w io.Writer, level logrus.Level, format Format) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	switch format {
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// Default returns a text-format logger at Info level writing to stderr,
// suitable for tests and as the zero-config fallback.
func Default() *Logger {
	return New(os.Stderr, logrus.InfoLevel, FormatText)
}

// With returns a Logger with an additional structured field attached to
// every subsequent line, for tagging (task id, signal number, trap
// number) the way the kernel's subsystems annotate their log lines.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
