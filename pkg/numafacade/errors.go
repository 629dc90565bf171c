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

package numafacade

import "github.com/pkg/errors"

// Sentinel errors for the facade's failure taxonomy. Wrap these with
// errors.Wrapf for context and compare with errors.Is at call sites.
var (
	// ErrUnavailable is returned when the host has no NUMA support.
	ErrUnavailable = errors.New("numafacade: NUMA not available on this host")
	// ErrNotAllowed is returned when a node is not in the process's
	// mems_allowed set.
	ErrNotAllowed = errors.New("numafacade: node not in mems_allowed")
	// ErrInvalidNode is returned for a node index at or beyond the
	// configured node count.
	ErrInvalidNode = errors.New("numafacade: invalid node index")
	// ErrConflictingConfig is returned when both BIND_TO_NODES and
	// one of CPU_NODES/MEM_NODES are set in the environment.
	ErrConflictingConfig = errors.New("numafacade: conflicting NUMA environment configuration")
	// ErrParse is returned for a malformed nodestring.
	ErrParse = errors.New("numafacade: malformed node-set string")
	// ErrIO wraps an underlying OS failure (syscall, procfs read).
	ErrIO = errors.New("numafacade: OS-level NUMA operation failed")
)

func facadeError(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}
