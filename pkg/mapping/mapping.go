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

// Package mapping decides how many threads a participant should run and how
// those threads spread across NUMA nodes. It is a pure function of its
// inputs -- a registry snapshot, host topology, and an optional previous
// placement -- behind a Policy interface so it can be swapped for an
// ML- or history-based strategy without touching the registry or session
// layers, per the host design notes on policy extensibility.
package mapping

import (
	"math"

	"github.com/intel/numa-coordinator/pkg/execspec"
	"github.com/intel/numa-coordinator/pkg/nodemask"
)

// Topology is the subset of host facts the policy needs: node count and
// processors per node.
type Topology struct {
	NumNodes     int
	NumProcs     int
	ProcsPerNode int
}

// Snapshot is the registry state the policy reads to make its decision.
type Snapshot struct {
	// NumApps is the post-increment application count -- the registry
	// increments num_apps before asking the policy for a target, so a
	// first-time participant already sees itself counted.
	NumApps   int
	TaskCount [nodemask.MaxNodes]uint
}

// Policy is the strategy interface the session layer calls into. The
// default implementation is DefaultPolicy below.
type Policy interface {
	// TargetTasks returns how many threads a participant should request.
	TargetTasks(snap Snapshot, topo Topology) uint
	// Distribute spreads target threads across nodes given the current
	// snapshot, optionally biased by a previous placement when NUMA-aware
	// mode is enabled.
	Distribute(snap Snapshot, topo Topology, target uint, prev *execspec.Spec) execspec.Spec
}

// DefaultPolicy is the host library's heuristic: spread participants evenly
// by process count, then greedily pack nodes, optionally preferring nodes
// reused from a caller's previous placement.
type DefaultPolicy struct {
	// NumaAware enables passes 1-2 of Distribute, which prefer nodes the
	// caller previously placed tasks on.
	NumaAware bool
}

// TargetTasks implements calc_num_tasks: num_procs for the first
// participant, otherwise ceil(num_procs / num_apps).
func (p DefaultPolicy) TargetTasks(snap Snapshot, topo Topology) uint {
	if snap.NumApps <= 1 {
		return uint(topo.NumProcs)
	}
	return uint(math.Ceil(float64(topo.NumProcs) / float64(snap.NumApps)))
}

// Distribute implements the five-pass greedy distribution described by the
// mapping policy: two NUMA-aware reuse passes (skipped when NumaAware is
// false), an empty-node pass, an under-capacity pass, and an oversubscription
// pass that rounds the least-loaded node up to the next capacity multiple.
func (p DefaultPolicy) Distribute(snap Snapshot, topo Topology, target uint, prev *execspec.Spec) execspec.Spec {
	numNodes := topo.NumNodes
	if numNodes > nodemask.MaxNodes {
		numNodes = nodemask.MaxNodes
	}
	cap := topo.ProcsPerNode

	var local [nodemask.MaxNodes]uint
	var perNode [nodemask.MaxNodes]uint
	for i := 0; i < numNodes; i++ {
		local[i] = snap.TaskCount[i]
	}

	remaining := target

	prevHas := func(i int) bool {
		return prev != nil && int(prev.PerNode[i]) > 0
	}

	assign := func(i int, chunk uint) {
		perNode[i] += chunk
		local[i] += chunk
		remaining -= chunk
	}

	if p.NumaAware {
		// Pass 1: empty nodes the caller previously used.
		for i := 0; i < numNodes && remaining > 0; i++ {
			if local[i] == 0 && prevHas(i) {
				chunk := min(remaining, uint(cap)-local[i])
				assign(i, chunk)
			}
		}

		// Pass 2: under-capacity nodes the caller previously used.
		for i := 0; i < numNodes && remaining > 0; i++ {
			if local[i] < uint(cap) && prevHas(i) {
				chunk := min(remaining, uint(cap)-local[i])
				assign(i, chunk)
			}
		}
	}

	// Pass 3: empty nodes.
	for i := 0; i < numNodes && remaining > 0; i++ {
		if local[i] == 0 {
			chunk := min(remaining, uint(cap))
			assign(i, chunk)
		}
	}

	// Pass 4: under-capacity nodes.
	for i := 0; i < numNodes && remaining > 0; i++ {
		if local[i] < uint(cap) {
			chunk := min(remaining, uint(cap)-local[i])
			assign(i, chunk)
		}
	}

	// Pass 5: oversubscription, packing the least-loaded node up to the
	// next capacity multiple; ties break toward a node from prev when
	// NUMA-aware, otherwise toward the lowest index.
	for remaining > 0 {
		k := 0
		smallest := local[0]
		for i := 1; i < numNodes; i++ {
			if local[i] < smallest {
				smallest = local[i]
				k = i
			} else if local[i] == smallest && p.NumaAware && !prevHas(k) && prevHas(i) {
				k = i
			}
		}
		chunk := min(remaining, uint(cap)-(local[k]%uint(cap)))
		assign(k, chunk)
	}

	return execspec.Spec{TotalTasks: target, PerNode: perNode}
}

func min(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}
