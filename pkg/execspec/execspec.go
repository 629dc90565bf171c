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

// Package execspec holds the Spec value object shared by the mapping
// policy, the registry, and the session API, kept in its own package so
// none of those three need to import one another for this one type.
package execspec

import "github.com/intel/numa-coordinator/pkg/nodemask"

// Spec describes one participant's placement: how many threads it asked for
// or was granted in total, and how those threads are distributed across
// nodes. Entries at or beyond the host's configured node count are always
// zero.
type Spec struct {
	TotalTasks uint
	PerNode    [nodemask.MaxNodes]uint
}

// New builds a Spec from a total task count and a sparse per-node mapping.
// It does not validate that the sum of PerNode equals TotalTasks; callers
// that accept spec values from elsewhere should use Valid.
func New(total uint, perNode map[nodemask.NodeID]uint) Spec {
	var s Spec
	s.TotalTasks = total
	for id, n := range perNode {
		if id < 0 || int(id) >= nodemask.MaxNodes {
			continue
		}
		s.PerNode[id] = n
	}
	return s
}

// Sum returns the sum of PerNode across every node.
func (s Spec) Sum() uint {
	var total uint
	for _, n := range s.PerNode {
		total += n
	}
	return total
}

// Valid reports whether the sum of PerNode equals TotalTasks, the core
// invariant every Spec returned from the mapping policy or accepted from a
// caller must satisfy.
func (s Spec) Valid() bool {
	return s.Sum() == s.TotalTasks
}

// NodeMask returns the set of nodes this spec places at least one task on.
func (s Spec) NodeMask() nodemask.NodeMask {
	var m nodemask.NodeMask
	for i, n := range s.PerNode {
		if n > 0 {
			m = m.Set(nodemask.NodeID(i))
		}
	}
	return m
}
