// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Level is the log message severity level below which we suppress messages.
type Level int32

const (
	// LevelDebug corresponds to debug messages.
	LevelDebug Level = iota
	// LevelInfo corresponds to informational messages.
	LevelInfo
	// LevelWarn corresponds to warning messages.
	LevelWarn
	// LevelError corresponds to error messages.
	LevelError
)

// Logger is the interface for configuring and producing log messages. This
// is trimmed from the host library's Logger interface down to the calls
// numacoordd, numafacade, registry and sysfs actually make: no Panic and no
// *Block family, since nothing in this daemon ever logs a multi-line block
// as a unit.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Fatal(format string, args ...interface{})

	DebugEnabled() bool
	Debug(format string, args ...interface{})

	Stop()
}

// Our logger instance.
type logger struct {
	source  string // logger source/module name
	enabled bool   // logger source module
	level   Level  // first non-suppressed severity level
	debug   bool   // debugging for this instance
	prefix  string // message prefix
}

// Get an existing logger or create a new one.
func Get(source string) Logger {
	l, ok := opt.loggers[source]
	if !ok {
		return newLogger(source)
	}
	return l
}

// NewLogger creates a new logger, getting the existing one if possible.
func NewLogger(source string) Logger {
	return Get(source)
}

// newLogger creates a new logger instance.
func newLogger(source string) Logger {
	source = strings.Trim(source, "[] ")

	if opt.loggers == nil {
		opt.loggers = make(map[string]*logger)
	}

	if l := opt.loggers[source]; l != nil {
		return l
	}

	l := &logger{
		source:  source,
		enabled: opt.sourceEnabled(source),
		debug:   opt.debugEnabled(source),
		level:   opt.level,
	}
	opt.loggers[source] = l

	return l
}

// Stop disables a logger once it is not needed any more.
func (l *logger) Stop() {
	l.enabled = false
	delete(opt.loggers, l.source)
}

func (l *logger) passthrough(level Level) bool {
	return (l.enabled && l.level <= level) || (level == LevelDebug && l.debug)
}

// formatMessage prefixes a message with its source, column-aligned against
// every other live source, so the shepherd's multi-package startup log
// (numafacade, registry, sysfs and numacoordd all logging during the same
// Session.Open call) stays readable instead of a ragged wall of brackets.
func (l *logger) formatMessage(format string, args ...interface{}) string {
	if len(l.source) > opt.srcalign {
		opt.srcalign = len(l.source)
		l.prefix = ""
		for _, other := range opt.loggers {
			other.prefix = ""
		}
	}
	if l.prefix == "" {
		suf := (opt.srcalign - len(l.source)) / 2
		pre := opt.srcalign - (len(l.source) + suf)
		l.prefix = "[" + fmt.Sprintf("%-*s", pre, "") + l.source + fmt.Sprintf("%*s", suf, "") + "] "
	}

	return l.prefix + fmt.Sprintf(format, args...)
}

// Info emits an info message (lowest priority).
func (l *logger) Info(format string, args ...interface{}) {
	if !l.passthrough(LevelInfo) {
		return
	}
	emit(LevelInfo, l.formatMessage(format, args...))
}

// Warn emits a warning message.
func (l *logger) Warn(format string, args ...interface{}) {
	if !l.passthrough(LevelWarn) {
		return
	}
	emit(LevelWarn, l.formatMessage(format, args...))
}

// Error emits an error message.
func (l *logger) Error(format string, args ...interface{}) {
	if !l.passthrough(LevelError) {
		return
	}
	emit(LevelError, l.formatMessage(format, args...))
}

// Fatal emits a message at error severity and terminates the process. The
// shepherd daemon calls this exactly once, when it fails to open the shared
// registry at startup.
func (l *logger) Fatal(format string, args ...interface{}) {
	emit(LevelError, l.formatMessage(format, args...))
	os.Exit(1)
}

// DebugEnabled reports whether debugging is enabled for this logger.
func (l *logger) DebugEnabled() bool {
	return l.debug
}

// Debug emits a debug message.
func (l *logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	emit(LevelDebug, l.formatMessage(format, args...))
}

// Default logger/source.
var defLogger = NewLogger("default")

// Default gets the default logger.
func Default() Logger {
	return defLogger
}

// Info emits an info message with the default source.
func Info(format string, args ...interface{}) {
	defLogger.Info(format, args...)
}

// Warn emits a warning message with the default source.
func Warn(format string, args ...interface{}) {
	defLogger.Warn(format, args...)
}

// Error emits an error message with the default source.
func Error(format string, args ...interface{}) {
	defLogger.Error(format, args...)
}

// Fatal emits a fatal error message with the default source.
func Fatal(format string, args ...interface{}) {
	defLogger.Fatal(format, args...)
}

// Debug emits a debug message with the default source.
func Debug(format string, args ...interface{}) {
	defLogger.Debug(format, args...)
}

// Update loggers when debug flags or sources change.
func (o *options) updateLoggers() {
	for s, l := range o.loggers {
		l.enabled = o.sourceEnabled(s)
		l.debug = o.debugEnabled(s)
		l.level = o.level
	}
}

// loggerError returns a formatted logger-specific error.
func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("log: "+format, args...)
}

// emit writes a formatted message to stdout, prefixed with its severity.
// The host library dispatches through a name-keyed registry of pluggable
// Backend implementations (it also ships a klog backend, used to bridge
// controller-runtime's logging into the same sink); this daemon never
// switches sinks at runtime, so that indirection collapses to the one
// output path it always had.
func emit(level Level, message string) {
	switch level {
	case LevelDebug:
		fmt.Println("D: " + message)
	case LevelInfo:
		fmt.Println("I: " + message)
	case LevelWarn:
		fmt.Println("W: " + message)
	default:
		fmt.Println("E: " + message)
	}
}

func init() {
	binary := filepath.Clean(os.Args[0])
	source := filepath.Base(binary)
	defLogger = newLogger(source)
}
