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
	"flag"
	"strconv"
	"strings"
)

const (
	// DefaultLevel is the default lowest unsuppressed severity.
	DefaultLevel = LevelInfo

	// Flag for selecting logging level.
	optionLevel = "logger-level"
	// Flag for enabling logging sources.
	optionSource = "logger-source"
	// Flag for enabling/disabling logging sources.
	optionDebug = "logger-debug"
)

// LevelNames maps severity levels to names.
var LevelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// NamedLevels maps severity names to levels.
var NamedLevels = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// options is the live, runtime-mutable state of the logging package.
type options struct {
	level    Level // lowest unsuppressed severity
	enable   stateMap
	debug    stateMap
	loggers  map[string]*logger
	srcalign int
}

type stateMap map[string]bool

// defaults holds the command-line-configurable starting point for opt.
var defaults = &options{
	level:  DefaultLevel,
	enable: stateMap{"*": true},
	debug:  stateMap{"*": false},
}

// opt is the package's single, live configuration instance.
var opt = defaultOptions()

// Set is the flag.Value setter for Level.
func (l *Level) Set(value string) error {
	level, ok := NamedLevels[strings.ToLower(value)]
	if !ok {
		return loggerError("unknown log level '%s'", value)
	}
	*l = level
	if l == &defaults.level {
		opt.level = level
		opt.updateLoggers()
	}
	return nil
}

// String is the flag.Value stringification for Level.
func (l Level) String() string {
	if name, ok := LevelNames[l]; ok {
		return name
	}
	return LevelNames[LevelInfo]
}

func (m *stateMap) Set(value string) error {
	if *m == nil {
		*m = make(stateMap)
	}

	prev := "on"
	for _, req := range strings.Split(strings.TrimSpace(value), ",") {
		if req == "" {
			continue
		}

		var state bool
		status := prev
		names := req
		if split := strings.SplitN(req, ":", 2); len(split) == 2 {
			status, names = split[0], split[1]
			prev = status
		}

		switch status {
		case "on", "enable", "enabled":
			state = true
		case "off", "disable", "disabled":
			state = false
		default:
			var err error
			if state, err = strconv.ParseBool(status); err != nil {
				return loggerError("invalid state '%s' in spec '%s': %v", status, value, err)
			}
		}

		for _, f := range strings.Split(names, ",") {
			switch f {
			case "all", "*":
				(*m)["*"] = state
			case "none":
				(*m)["*"] = !state
			default:
				(*m)[f] = state
			}
		}
	}

	switch m {
	case &defaults.enable:
		opt.enable = *m
		opt.updateLoggers()
	case &defaults.debug:
		opt.debug = *m
		opt.updateLoggers()
	}

	return nil
}

func (m stateMap) String() string {
	if m == nil {
		return "all"
	}
	if len(m) == 0 {
		return "none"
	}

	tVal, tSep := "", ""
	fVal, fSep := "", ""
	for name, state := range m {
		if name == "*" {
			name = "all"
		}
		if state {
			tVal += tSep + name
			tSep = ","
		} else {
			fVal += fSep + name
			fSep = ","
		}
	}

	switch {
	case tVal != "" && fVal != "":
		return "on:" + tVal + ",off:" + fVal
	case tVal != "":
		return "on:" + tVal
	case fVal != "":
		return "off:" + fVal
	}
	return ""
}

func (m stateMap) isEnabled(name string) bool {
	if m == nil {
		return false
	}
	if state, ok := m[name]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return false
}

func (o *options) sourceEnabled(source string) bool {
	return o.enable.isEnabled(source)
}

func (o *options) debugEnabled(source string) bool {
	return o.debug.isEnabled(source)
}

// defaultOptions returns a new options instance initialized to defaults.
func defaultOptions() *options {
	o := &options{
		level:  defaults.level,
		enable: make(stateMap),
		debug:  make(stateMap),
	}
	for key, value := range defaults.enable {
		o.enable[key] = value
	}
	for key, value := range defaults.debug {
		o.debug[key] = value
	}
	return o
}

// SetLevel sets the lowest unsuppressed severity programmatically.
func SetLevel(level Level) {
	opt.level = level
	opt.updateLoggers()
}

// SetDebug enables or disables debugging for the given comma-separated sources.
func SetDebug(spec string) error {
	return opt.debug.Set(spec)
}

// SetSources enables or disables logging for the given comma-separated sources.
func SetSources(spec string) error {
	return opt.enable.Set(spec)
}

// InstallFlags registers our command line flags with the standard flag
// package. numacoordd calls this from main() so -logger-level, -logger-source
// and -logger-debug are real, usable knobs rather than library surface no
// binary exposes.
func InstallFlags() {
	flag.Var(&defaults.level, optionLevel,
		"least severity of log messages to start passing through.")
	flag.Var(&defaults.enable, optionSource,
		"value is a comma-separated logger source names to enable.\n"+
			"Specify '*' or all for enabling logging for all sources.")
	flag.Var(&defaults.debug, optionDebug,
		"value is a comma-separated logger source names to enable debug for.\n"+
			"Specify '*' or all for enabling debugging for all sources.")
}
