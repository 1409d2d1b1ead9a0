// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package slogger is the ambient logging facade shared by blockchain,
// mining, and database (txscript has a subsystem tag but no logger of its
// own): one github.com/decred/slog backend, one subsystem logger per
// logging package, and an
// optional rotating file writer via github.com/jrick/logrotate. A host
// binary wires real loggers in with UseLogger; until it does, every
// subsystem defaults to slog.Disabled so the core stays silent as a
// library.
package slogger

import (
	"fmt"
	"io"
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags, one per package that logs. Mirrors the teacher's
// subsystem-tag convention (exccd's "BCDB", "CHAN", "MINR", ...).
const (
	SubsystemChain = "CHAN"
	SubsystemMine  = "MINR"
	SubsystemTxScr = "SCRT"
	SubsystemDB    = "BCDB"
)

var (
	backendLog = slog.NewBackend(logWriter{})
	logRotator *rotator.Rotator

	// Subsystem loggers. Callers obtain theirs with one of the typed
	// accessors below rather than reaching into this map directly.
	loggers = map[string]slog.Logger{
		SubsystemChain: backendLog.Logger(SubsystemChain),
		SubsystemMine:  backendLog.Logger(SubsystemMine),
		SubsystemTxScr: backendLog.Logger(SubsystemTxScr),
		SubsystemDB:    backendLog.Logger(SubsystemDB),
	}
)

func init() {
	for _, l := range loggers {
		l.SetLevel(slog.LevelOff)
	}
}

// logWriter implements io.Writer and writes to both standard output and
// the rotating log file, if one has been initialized via InitLogRotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// InitLogRotator initializes the rolling file logger that writes to
// logFile and rolls the log file every 10 MB, keeping the last 3 rolled
// files. Grounded on the teacher's log-file-rotation wiring
// (jrick/logrotate), but owned here by the library rather than a daemon's
// main package, since this repo has none.
func InitLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	logRotator = r
	return nil
}

// CloseLogRotator flushes and closes the rotating log file, if one is
// active. Safe to call when no rotator was ever initialized.
func CloseLogRotator() error {
	if logRotator == nil {
		return nil
	}
	r := logRotator
	logRotator = nil
	return r.Close()
}

// Logger returns the named subsystem's logger, or slog.Disabled if subsys
// is unknown.
func Logger(subsys string) slog.Logger {
	if l, ok := loggers[subsys]; ok {
		return l
	}
	return slog.Disabled
}

// UseLogger plugs a caller-supplied logger into the named subsystem,
// following the teacher's per-package UseLogger(logger slog.Logger)
// convention, so a host binary can route chain/mining/script/db logs into
// its own backend without this package knowing about it.
func UseLogger(subsys string, logger slog.Logger) {
	if _, ok := loggers[subsys]; !ok {
		return
	}
	loggers[subsys] = logger
}

// SetLogLevels sets every known subsystem logger to the passed level
// string (e.g. "trace", "debug", "info", "warn", "error", "critical",
// "off"). An invalid level string is a no-op, matching the teacher's
// daemon-level --debuglevel flag parsing.
func SetLogLevels(levelString string) {
	level, ok := slog.LevelFromString(levelString)
	if !ok {
		return
	}
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// DirectionString is a small formatting helper that renders a
// connect/disconnect boolean as the verb the teacher's log lines use.  No
// code in this module calls it.
func DirectionString(isConnect bool) string {
	if isConnect {
		return "connect"
	}
	return "disconnect"
}

var _ io.Writer = logWriter{}
