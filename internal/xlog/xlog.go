// Package xlog is a small leveled wrapper around the standard log
// package. Nothing in this codebase pulls in a structured logging
// library -- neither teacher repo in the retrieval pack does for a CLI
// this size -- so diagnostics stay on fmt/log, prefixed by level.
package xlog

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	l       *log.Logger
	verbose bool
}

// New returns a Logger writing to w with the standard flags.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{l: log.New(w, "", log.LstdFlags), verbose: verbose}
}

// Default writes to stderr.
func Default(verbose bool) *Logger {
	return New(os.Stderr, verbose)
}

func (lg *Logger) Debugf(format string, args ...any) {
	if lg.verbose {
		lg.l.Printf("DEBUG "+format, args...)
	}
}

func (lg *Logger) Infof(format string, args ...any) {
	lg.l.Printf("INFO  "+format, args...)
}

func (lg *Logger) Warnf(format string, args ...any) {
	lg.l.Printf("WARN  "+format, args...)
}

func (lg *Logger) Errorf(format string, args ...any) {
	lg.l.Printf("ERROR "+format, args...)
}
