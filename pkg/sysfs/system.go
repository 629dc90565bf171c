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

// Package sysfs discovers the NUMA node/CPU topology a numafacade.Facade
// binds against. The host library's own pkg/sysfs discovers a much wider
// surface -- CPU packages/sockets, per-CPU core/thread/frequency detail,
// cache topology, and CPU online/isolation control -- because its policies
// (topology-aware, based on that package hierarchy) need it for CPU
// allocation decisions. numafacade only ever asks sysfs for three things:
// how many NUMA nodes and CPUs the host has, and each node's CPU set,
// distance vector and memory info, so this rewrite discovers only that.
package sysfs

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"k8s.io/utils/cpuset"

	logger "github.com/intel/numa-coordinator/pkg/log"
)

const (
	// SysfsRootPath is the mount path of sysfs.
	SysfsRootPath = "/sys"
	// sysfs devices/cpu subdirectory path
	sysfsCPUPath = "devices/system/cpu"
	// sysfs device/node subdirectory path
	sysfsNumaNodePath = "devices/system/node"
)

// DiscoveryFlag controls what hardware details to discover.
type DiscoveryFlag uint

const (
	// DiscoverCPUTopology requests discovering CPU topology details.
	DiscoverCPUTopology DiscoveryFlag = 1 << iota
	// DiscoverMemTopology requests discovering memory topology details.
	DiscoverMemTopology
	// DiscoverNone is the zero value for discovery flags.
	DiscoverNone DiscoveryFlag = 0
	// DiscoverAll requests full supported discovery.
	DiscoverAll DiscoveryFlag = 0xffffffff
	// DiscoverDefault is the default set of discovery flags.
	DiscoverDefault DiscoveryFlag = (DiscoverCPUTopology | DiscoverMemTopology)
)

// MemoryType is an enum for the Node memory.
type MemoryType int

const (
	// MemoryTypeDRAM means that the node has regular DRAM-type memory.
	MemoryTypeDRAM MemoryType = iota
	// MemoryTypePMEM means that the node has persistent memory.
	MemoryTypePMEM
	// MemoryTypeHBM means that the node has high bandwidth memory.
	MemoryTypeHBM
)

// System is discovered host topology, narrowed to what a NUMA binding
// facade needs: node enumeration, per-node detail, and a CPU count.
type System interface {
	Discover(flags DiscoveryFlag) error
	NodeIDs() []ID
	CPUCount() int
	NUMANodeCount() int
	Node(id ID) Node
}

// system devices
type system struct {
	logger.Logger            // our logger instance
	flags         DiscoveryFlag
	path          string       // sysfs mount point
	nodes         map[ID]*node // NUMA nodes
	cpuCount      int          // number of present CPUs
}

// Node represents a NUMA node.
type Node interface {
	ID() ID
	CPUSet() cpuset.CPUSet
	Distance() []int
	DistanceFrom(id ID) int
	MemoryInfo() (*MemInfo, error)
	GetMemoryType() MemoryType
}

type node struct {
	path       string     // sysfs path
	id         ID         // node id
	cpus       IDSet      // cpus in this node
	memoryType MemoryType // node memory type
	distance   []int      // distance/cost to other NUMA nodes
}

// MemInfo contains data read from a NUMA node meminfo file.
type MemInfo struct {
	MemTotal uint64
	MemFree  uint64
	MemUsed  uint64
}

// DiscoverSystem performs discovery of the running systems details.
func DiscoverSystem(args ...DiscoveryFlag) (System, error) {
	return DiscoverSystemAt(SysfsRootPath, args...)
}

// DiscoverSystemAt performs discovery of the running systems details from sysfs mounted at path.
func DiscoverSystemAt(path string, args ...DiscoveryFlag) (System, error) {
	var flags DiscoveryFlag

	if len(args) < 1 {
		flags = DiscoverDefault
	} else {
		flags = DiscoverNone
		for _, flag := range args {
			flags |= flag
		}
	}

	sys := &system{
		Logger: logger.NewLogger("sysfs"),
		path:   path,
	}

	if err := sys.Discover(flags); err != nil {
		return nil, err
	}

	return sys, nil
}

// Discover performs system/hardware discovery.
func (sys *system) Discover(flags DiscoveryFlag) error {
	sys.flags |= flags

	if (sys.flags & DiscoverCPUTopology) != 0 {
		if err := sys.discoverCPUCount(); err != nil {
			return err
		}
	}

	if (sys.flags & DiscoverMemTopology) != 0 {
		if err := sys.discoverNodes(); err != nil {
			return err
		}
	}

	if sys.DebugEnabled() {
		sys.Debug("present CPUs: %d", sys.cpuCount)
		for id, n := range sys.nodes {
			sys.Debug("node #%d:", id)
			sys.Debug("      cpus: %s", n.cpus)
			sys.Debug("  distance: %v", n.distance)
			sys.Debug("    memory: %v", n.memoryType)
		}
	}

	return nil
}

// NodeIDs gets the ids of all NUMA nodes present in the system.
func (sys *system) NodeIDs() []ID {
	ids := make([]ID, len(sys.nodes))
	idx := 0
	for id := range sys.nodes {
		ids[idx] = id
		idx++
	}

	sort.Slice(ids, func(i, j int) bool {
		return int(ids[i]) < int(ids[j])
	})

	return ids
}

// CPUCount returns the number of present CPUs (online and offline).
func (sys *system) CPUCount() int {
	return sys.cpuCount
}

// NUMANodeCount returns the number of discovered NUMA nodes, or 1 if none
// were discovered.
func (sys *system) NUMANodeCount() int {
	cnt := len(sys.nodes)
	if cnt < 1 {
		cnt = 1
	}
	return cnt
}

// Node gets the node with a given node id.
func (sys *system) Node(id ID) Node {
	return sys.nodes[id]
}

// discoverCPUCount counts the CPUs present under sysfs. The host library's
// equivalent (discoverCPUs) also reads per-CPU package/core/thread-sibling
// and cpufreq attributes, because its CPU allocator policies need that
// detail to build packing/spreading decisions; a binding facade only ever
// asks System for a total count (NumConfiguredCPUs/NumPossibleCPUs), so
// this only needs to know how many cpuN directories exist.
func (sys *system) discoverCPUCount() error {
	entries, err := filepath.Glob(filepath.Join(sys.path, sysfsCPUPath, "cpu[0-9]*"))
	if err != nil {
		return fmt.Errorf("failed to enumerate CPUs under %s: %v", sys.path, err)
	}
	sys.cpuCount = len(entries)
	return nil
}

// discoverNodes discovers NUMA nodes present in the system, and classifies
// each as DRAM, PMEM or HBM based on which nodes carry CPUs and which carry
// memory.
func (sys *system) discoverNodes() error {
	if sys.nodes != nil {
		return nil
	}

	sys.nodes = make(map[ID]*node)
	entries, _ := filepath.Glob(filepath.Join(sys.path, sysfsNumaNodePath, "node[0-9]*"))
	for _, entry := range entries {
		if err := sys.discoverNode(entry); err != nil {
			return fmt.Errorf("failed to discover node for entry %s: %v", entry, err)
		}
	}

	var cpuNodeIds, memoryNodeIds []int
	for _, n := range sys.nodes {
		if n.cpus.Size() > 0 {
			cpuNodeIds = append(cpuNodeIds, int(n.id))
		}
		mem, _ := filepath.Glob(filepath.Join(n.path, "memory[0-9]*"))
		if len(mem) > 0 {
			memoryNodeIds = append(memoryNodeIds, int(n.id))
		}
	}
	cpuNodes := cpuset.New(cpuNodeIds...)
	memoryNodes := cpuset.New(memoryNodeIds...)

	sys.Logger.Info("NUMA nodes with CPUs: %s", cpuNodes.String())
	sys.Logger.Info("NUMA nodes with memory: %s", memoryNodes.String())

	dramNodes := memoryNodes.Intersection(cpuNodes)
	pmemOrHbmNodes := memoryNodes.Difference(dramNodes)

	dramNodeIds := FromCPUSet(dramNodes)
	pmemOrHbmNodeIds := FromCPUSet(pmemOrHbmNodes)

	infos := make(map[ID]*MemInfo)
	dramAvg := uint64(0)
	if len(pmemOrHbmNodeIds) > 0 && len(dramNodeIds) > 0 {
		// There is special memory present in the system: a node with no
		// CPUs is PMEM or HBM, classified against the average DRAM size.
		dramTotal := uint64(0)
		for _, n := range sys.nodes {
			info, err := n.MemoryInfo()
			if err != nil {
				return fmt.Errorf("failed to get memory info for node %v: %s", n, err)
			}
			infos[n.id] = info
			if _, ok := dramNodeIds[n.id]; ok {
				dramTotal += info.MemTotal
			}
		}
		dramAvg = dramTotal / uint64(len(dramNodeIds))
		if dramAvg == 0 {
			return fmt.Errorf("no dram in the system, cannot determine special memory types")
		}
	}

	for _, n := range sys.nodes {
		_, isSpecial := pmemOrHbmNodeIds[n.id]
		_, isDRAM := dramNodeIds[n.id]
		switch {
		case isSpecial:
			mem, ok := infos[n.id]
			if !ok {
				return fmt.Errorf("not able to determine system special memory types")
			}
			if mem.MemTotal < dramAvg {
				sys.Logger.Info("node %d has HBM memory", n.id)
				n.memoryType = MemoryTypeHBM
			} else {
				sys.Logger.Info("node %d has PMEM memory", n.id)
				n.memoryType = MemoryTypePMEM
			}
		case isDRAM:
			sys.Logger.Info("node %d has DRAM memory", n.id)
			n.memoryType = MemoryTypeDRAM
		default:
			return fmt.Errorf("unknown memory type for node %v (pmem nodes: %s, dram nodes: %s)", n, pmemOrHbmNodes, dramNodes)
		}
	}

	return nil
}

// discoverNode discovers details of the given NUMA node.
func (sys *system) discoverNode(path string) error {
	n := &node{path: path, id: getEnumeratedID(path)}

	if _, err := readSysfsEntry(path, "cpulist", &n.cpus, ","); err != nil {
		return err
	}
	if _, err := readSysfsEntry(path, "distance", &n.distance); err != nil {
		return err
	}

	sys.nodes[n.id] = n

	return nil
}

// ID returns id of this node.
func (n *node) ID() ID {
	return n.id
}

// CPUSet returns the CPUSet for all cores/threads in this node.
func (n *node) CPUSet() cpuset.CPUSet {
	return n.cpus.CPUSet()
}

// Distance returns the distance vector for this node.
func (n *node) Distance() []int {
	return n.distance
}

// DistanceFrom returns the distance of this and a given node.
func (n *node) DistanceFrom(id ID) int {
	if int(id) < len(n.distance) {
		return n.distance[int(id)]
	}

	return -1
}

// MemoryInfo returns memory info for the node (partial content from the meminfo sysfs entry).
func (n *node) MemoryInfo() (*MemInfo, error) {
	meminfo := filepath.Join(n.path, "meminfo")
	buf := &MemInfo{}
	err := ParseFileEntries(meminfo,
		map[string]interface{}{
			"MemTotal:": &buf.MemTotal,
			"MemFree:":  &buf.MemFree,
			"MemUsed:":  &buf.MemUsed,
		},
		func(line string) (string, string, error) {
			fields := strings.Fields(strings.TrimSpace(line))
			if len(fields) < 4 {
				return "", "", sysfsError(meminfo, "failed to parse entry: '%s'", line)
			}
			key := fields[2]
			val := fields[3]
			if len(fields) == 5 {
				val += " " + fields[4]
			}
			return key, val, nil
		},
	)

	if err != nil {
		return nil, err
	}
	return buf, nil
}

// GetMemoryType returns the memory type for this node.
func (n *node) GetMemoryType() MemoryType {
	return n.memoryType
}
