//go:build linux
// +build linux

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

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/intel/numa-coordinator/pkg/nodemask"
)

// Memory policy modes for set_mempolicy/get_mempolicy, mirroring <linux/mempolicy.h>.
const (
	mpolDefault    = 0
	mpolPreferred  = 1
	mpolBind       = 2
	mpolInterleave = 3
)

// maskToWord packs a NodeMask into the single unsigned long word that
// set_mempolicy/get_mempolicy/migrate_pages expect, since MaxNodes (64) fits
// one machine word on every platform Go's race detector cares about.
func maskToWord(m nodemask.NodeMask) uint64 {
	return uint64(m)
}

func wordToMask(w uint64) nodemask.NodeMask {
	return nodemask.NodeMask(w)
}

// setMempolicy calls set_mempolicy(2), binding the caller's memory policy to
// the given node mask.
func setMempolicy(mode int, mask nodemask.NodeMask) error {
	word := maskToWord(mask)
	_, _, errno := unix.Syscall(unix.SYS_SET_MEMPOLICY, uintptr(mode), uintptr(unsafe.Pointer(&word)), uintptr(nodemask.MaxNodes))
	if errno != 0 {
		return errno
	}
	return nil
}

// getMempolicy calls get_mempolicy(2) for the calling task's current policy
// (addr == nil, flags == 0).
func getMempolicy() (mode int, mask nodemask.NodeMask, err error) {
	var cMode int
	var word uint64
	_, _, errno := unix.Syscall6(unix.SYS_GET_MEMPOLICY, uintptr(unsafe.Pointer(&cMode)), uintptr(unsafe.Pointer(&word)), uintptr(nodemask.MaxNodes), 0, 0, 0)
	if errno != 0 {
		return 0, 0, errno
	}
	return cMode, wordToMask(word), nil
}

// migratePages calls migrate_pages(2), moving the calling process's pages
// that live on a node in "from" to the corresponding node in "to".
func migratePages(pid int, from, to nodemask.NodeMask) error {
	fromWord, toWord := maskToWord(from), maskToWord(to)
	_, _, errno := unix.Syscall6(unix.SYS_MIGRATE_PAGES, uintptr(pid), uintptr(nodemask.MaxNodes), uintptr(unsafe.Pointer(&fromWord)), uintptr(unsafe.Pointer(&toWord)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// getCPUAndNode calls getcpu(2), reporting the CPU and NUMA node the caller
// is currently executing on.
func getCPUAndNode() (cpu int, node int, err error) {
	var cCPU, cNode uint32
	_, _, errno := unix.Syscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cCPU)), uintptr(unsafe.Pointer(&cNode)), 0)
	if errno != 0 {
		return 0, 0, errno
	}
	return int(cCPU), int(cNode), nil
}

// setAffinityCPUs pins the calling thread's scheduling affinity to exactly
// the given CPU set, equivalent to numa_run_on_node_mask after node->cpu
// translation.
func setAffinityCPUs(cpus nodemask.CPUMask) error {
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus.List() {
		set.Set(cpu)
	}
	return unix.SchedSetaffinity(0, &set)
}
