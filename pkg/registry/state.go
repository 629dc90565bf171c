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

package registry

import (
	"unsafe"

	"github.com/intel/numa-coordinator/pkg/nodemask"
)

// State is the process-shared region layout: a fixed-size struct mapped
// MAP_SHARED into every participant's address space. Every field is a fixed
// width integer so the layout is identical regardless of which process
// mapped it.
//
// Ready is this rewrite's answer to the host library's missing readiness
// barrier (see the design notes on single-init ordering): the shepherd sets
// it to 1 only after the rest of State has been zeroed and the lock is
// usable, and OpenWorker refuses to attach until it observes a 1.
type State struct {
	Ready              uint64
	NumConfiguredNodes uint64
	NumApps            uint64
	NumTasks           uint64
	AppCount           [nodemask.MaxNodes]uint64
	TaskCount          [nodemask.MaxNodes]uint64
}

// StateSize is the byte size of the mapped region.
const StateSize = int(unsafe.Sizeof(State{}))

// castState reinterprets a byte slice obtained from mmap as a *State. The
// slice must be at least StateSize bytes and must outlive the returned
// pointer (callers keep the mmap'd slice alive in Registry.data).
func castState(data []byte) *State {
	return (*State)(unsafe.Pointer(&data[0]))
}
