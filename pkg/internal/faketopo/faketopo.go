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

// Package faketopo is a minimal in-memory sysfs.System used by numafacade
// and session tests to exercise multi-node logic without touching the real
// host's /sys tree.
package faketopo

import (
	"k8s.io/utils/cpuset"

	"github.com/intel/numa-coordinator/pkg/sysfs"
)

// New builds a symmetric fake host: numNodes nodes, each with
// cpusPerNode CPUs, each node reporting memTotal/memFree bytes.
func New(numNodes, cpusPerNode int, memTotal, memFree uint64) sysfs.System {
	sys := &system{nodes: map[sysfs.ID]*node{}}

	cpu := 0
	for n := 0; n < numNodes; n++ {
		cpus := make([]int, 0, cpusPerNode)
		for c := 0; c < cpusPerNode; c++ {
			cpus = append(cpus, cpu)
			cpu++
		}
		sys.nodes[sysfs.ID(n)] = &node{
			id:    sysfs.ID(n),
			cpus:  cpuset.New(cpus...),
			total: memTotal,
			free:  memFree,
		}
		sys.nodeIDs = append(sys.nodeIDs, sysfs.ID(n))
	}
	sys.cpuCount = cpu

	return sys
}

type system struct {
	nodes    map[sysfs.ID]*node
	nodeIDs  []sysfs.ID
	cpuCount int
}

func (s *system) Discover(sysfs.DiscoveryFlag) error { return nil }
func (s *system) NodeIDs() []sysfs.ID                { return s.nodeIDs }
func (s *system) CPUCount() int                      { return s.cpuCount }
func (s *system) NUMANodeCount() int                 { return len(s.nodeIDs) }
func (s *system) Node(id sysfs.ID) sysfs.Node {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return n
}

type node struct {
	id    sysfs.ID
	cpus  cpuset.CPUSet
	total uint64
	free  uint64
}

func (n *node) ID() sysfs.ID          { return n.id }
func (n *node) CPUSet() cpuset.CPUSet { return n.cpus }
func (n *node) Distance() []int       { return []int{10} }
func (n *node) DistanceFrom(sysfs.ID) int {
	return 10
}
func (n *node) MemoryInfo() (*sysfs.MemInfo, error) {
	return &sysfs.MemInfo{MemTotal: n.total, MemFree: n.free, MemUsed: n.total - n.free}, nil
}
func (n *node) GetMemoryType() sysfs.MemoryType { return sysfs.MemoryTypeDRAM }
