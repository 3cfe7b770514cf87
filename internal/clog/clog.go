// Package clog is the kernel's own minimal leveled logger: a thin wrapper
// over the standard library's log.Logger, used by cmd/firmc to print the
// verifier's diagnostics and by firm's panic hook. No pack repo carries a logging dependency
// of its own (the teacher and every other retrieved repo just call the
// stdlib "log" package directly from main, per their examples/ programs),
// so this stays on stdlib rather than reaching for an ecosystem library
// nothing in the corpus actually uses.
package clog

import (
	"io"
	"log"
	"os"
)

// Level orders the kernel's diagnostic severities, from informational
// pass output up to the unrecoverable contract violations §7 panics on.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelFatal:
		return "FATAL"
	default:
		return "?"
	}
}

// Logger is a leveled wrapper around one *log.Logger; the zero value logs
// to os.Stderr with the stdlib's default flags.
type Logger struct {
	out *log.Logger
}

// New builds a Logger writing to w, prefixed per Level.
func New(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags)}
}

// Default returns a Logger over os.Stderr, used wherever a caller hasn't
// threaded one through explicitly (firm and cmd/firmc each hold one as a
// package-level logger).
func Default() *Logger { return New(os.Stderr) }

// Info logs an informational line, e.g. a pass's own progress notes.
func (l *Logger) Info(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

// Warn logs a diagnostic that doesn't abort the pipeline — cmd/firmc prints
// each verifier diagnostic (§6) through this. The verify package itself
// does not log; it returns its findings as a Report.
func (l *Logger) Warn(format string, args ...interface{}) { l.log(LevelWarn, format, args...) }

// Fatal logs then calls os.Exit(1); used by firm's panic hook (§7) for
// contract violations the caller cannot recover from in-process, and by
// cmd/firmc when its command fails.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(LevelFatal, format, args...)
	os.Exit(1)
}

func (l *Logger) log(lvl Level, format string, args ...interface{}) {
	out := l.out
	if out == nil {
		out = log.Default()
	}
	out.Printf("["+lvl.String()+"] "+format, args...)
}
