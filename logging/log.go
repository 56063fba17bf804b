// Package logging provides the leveled, structured logger used across the
// consensus core. It wraps logrus the same way a node's logging layer
// usually does: one process-wide base logger for package-level helpers, and
// a Logger interface everything else depends on so tests can substitute a
// no-op or buffering implementation.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus' severity levels so callers never import logrus
// directly.
type Level uint32

// Severity levels, ordered least to most verbose.
const (
	Fatal Level = iota
	Error
	Warn
	Info
	Debug
)

func toLogrus(l Level) logrus.Level {
	switch l {
	case Fatal:
		return logrus.FatalLevel
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	case Info:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// Fields is a set of structured key/value pairs attached to a log line.
type Fields = logrus.Fields

// Logger is the interface every component logs through.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	// With returns a derived Logger that attaches fields to every entry.
	With(fields Fields) Logger

	SetLevel(Level)
	SetOutput(io.Writer)

	// SetExitFunc overrides what Fatal/Fatalf call after logging, in place
	// of the default os.Exit(1). Tests exercising a fatal invariant path
	// substitute a non-exiting function here, since a real exit would tear
	// down the test binary before its own assertions run.
	SetExitFunc(func(int))
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a standalone Logger, independent of the package base
// logger. Output defaults to stderr at Warn level, a conservative default
// for a node that hasn't yet parsed its own configuration.
func NewLogger() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(args ...interface{})            { l.entry.Debug(args...) }
func (l *logrusLogger) Debugf(f string, args ...interface{}) { l.entry.Debugf(f, args...) }
func (l *logrusLogger) Info(args ...interface{})             { l.entry.Info(args...) }
func (l *logrusLogger) Infof(f string, args ...interface{})  { l.entry.Infof(f, args...) }
func (l *logrusLogger) Warn(args ...interface{})             { l.entry.Warn(args...) }
func (l *logrusLogger) Warnf(f string, args ...interface{})  { l.entry.Warnf(f, args...) }
func (l *logrusLogger) Error(args ...interface{})            { l.entry.Error(args...) }
func (l *logrusLogger) Errorf(f string, args ...interface{}) { l.entry.Errorf(f, args...) }

// Fatal logs at Fatal level then terminates the process, aborting after
// flushing logs.
func (l *logrusLogger) Fatal(args ...interface{})            { l.entry.Fatal(args...) }
func (l *logrusLogger) Fatalf(f string, args ...interface{}) { l.entry.Fatalf(f, args...) }

func (l *logrusLogger) With(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(fields)}
}

func (l *logrusLogger) SetLevel(lvl Level) { l.entry.Logger.SetLevel(toLogrus(lvl)) }
func (l *logrusLogger) SetOutput(w io.Writer) { l.entry.Logger.SetOutput(w) }

func (l *logrusLogger) SetExitFunc(f func(int)) { l.entry.Logger.ExitFunc = f }

// RegisterExitHandler installs a handler logrus runs, process-wide,
// immediately before a Fatal call exits — the way to attach shutdown
// cleanup to a fatal log line without altering the exit itself.
func RegisterExitHandler(handler func()) {
	logrus.RegisterExitHandler(handler)
}

var (
	baseLogger Logger
	once       sync.Once
)

func initBase() {
	once.Do(func() {
		baseLogger = NewLogger()
	})
}

func init() {
	initBase()
}

// Base returns the package-level logger used by code that has no Logger of
// its own threaded in yet (constructors, init-time diagnostics).
func Base() Logger {
	return baseLogger
}
