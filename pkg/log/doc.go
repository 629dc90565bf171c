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

// ConfigHelp returns a human-readable description of the logging knobs,
// suitable for printing from a -help handler.
func ConfigHelp() string {
	return configHelp
}

var configHelp = `
Logging and debugging messages.

numacoordd has no separate runtime configuration file for logging: every
knob is a command line flag, installed by InstallFlags. You can control the
lowest severity of messages to pass through (-logger-level), which log
sources are enabled (-logger-source), and which log sources are producing
debug messages (-logger-debug).

The available message severity levels are error, warn, and info. By default
all log sources produce messages of all severity and none of the log sources
produce any debug messages. For instance, to enable only warnings and errors,
with debugging for the registry and sysfs sources:

  -logger-level=warn -logger-debug=registry,sysfs

The reserved keywords 'all' and 'none' refer to all or none of the log
sources. For instance, the following enables full logging and debugging:

  -logger-source=all -logger-debug=all
`
