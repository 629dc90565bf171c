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

// Package nodemask implements the node/CPU mask half of the coordinator's
// data model: bounded bitsets of NUMA node ids, the ANY_NODE sentinel, and
// the nodestring grammar ("0,2-3") used by configuration.
package nodemask

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxNodes is the number of NUMA node ids this coordinator can represent
// (ids 0..MaxNodes-1), mirroring MAX_NUM_NODES from the upstream OpenMP NUMA
// placement glue.
const MaxNodes = 64

// NodeID identifies a single NUMA node.
type NodeID int

// AnyNode is the sentinel requesting "every configured node" rather than a
// specific one. The original implementation represents this with INT_MAX;
// we use -1 since it reads naturally as "not a valid index" in Go and is
// never a real node id.
const AnyNode NodeID = -1

// NodeMask is a fixed-size bitset of NUMA node ids, 0..MaxNodes-1.
type NodeMask uint64

// Set returns a copy of the mask with the given node added.
func (m NodeMask) Set(id NodeID) NodeMask {
	if id < 0 || int(id) >= MaxNodes {
		return m
	}
	return m | (1 << uint(id))
}

// Clear returns a copy of the mask with the given node removed.
func (m NodeMask) Clear(id NodeID) NodeMask {
	if id < 0 || int(id) >= MaxNodes {
		return m
	}
	return m &^ (1 << uint(id))
}

// Has reports whether the given node is a member of the mask.
func (m NodeMask) Has(id NodeID) bool {
	if id < 0 || int(id) >= MaxNodes {
		return false
	}
	return m&(1<<uint(id)) != 0
}

// Count returns the number of set nodes.
func (m NodeMask) Count() int {
	count := 0
	for b := m; b != 0; b >>= 1 {
		if b&1 != 0 {
			count++
		}
	}
	return count
}

// IsEmpty reports whether the mask has no nodes set.
func (m NodeMask) IsEmpty() bool {
	return m == 0
}

// Nodes returns the set nodes as a sorted slice.
func (m NodeMask) Nodes() []NodeID {
	nodes := make([]NodeID, 0, m.Count())
	for id := NodeID(0); int(id) < MaxNodes; id++ {
		if m.Has(id) {
			nodes = append(nodes, id)
		}
	}
	return nodes
}

// Full returns the mask with the first n nodes (0..n-1) set, the resolution
// of ANY_NODE against a system with n configured nodes.
func Full(n int) NodeMask {
	var m NodeMask
	if n > MaxNodes {
		n = MaxNodes
	}
	for id := 0; id < n; id++ {
		m = m.Set(NodeID(id))
	}
	return m
}

// NewNodeMask builds a mask from a list of node ids.
func NewNodeMask(ids ...NodeID) NodeMask {
	var m NodeMask
	for _, id := range ids {
		m = m.Set(id)
	}
	return m
}

// String renders the mask as a sorted, comma-separated list, or "(none)" if
// empty -- the exact format numa_nodemask_to_str/numa_cpumask_to_str use.
func (m NodeMask) String() string {
	if m.IsEmpty() {
		return "(none)"
	}
	parts := make([]string, 0, m.Count())
	for _, id := range m.Nodes() {
		parts = append(parts, strconv.Itoa(int(id)))
	}
	return strings.Join(parts, ",")
}

// ParseNodeMask parses a nodestring ("0,2-3") into a NodeMask. It is
// whitespace-tolerant; the empty string and an empty field between commas
// are both parse errors.
func ParseNodeMask(s string) (NodeMask, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Errorf("nodemask: empty node-set string")
	}

	var mask NodeMask
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			return 0, errors.Errorf("nodemask: empty field in %q", s)
		}

		if dash := strings.IndexByte(field, '-'); dash >= 0 {
			lo, err := parseNodeIndex(field[:dash])
			if err != nil {
				return 0, errors.Wrapf(err, "nodemask: invalid range %q", field)
			}
			hi, err := parseNodeIndex(field[dash+1:])
			if err != nil {
				return 0, errors.Wrapf(err, "nodemask: invalid range %q", field)
			}
			if lo > hi {
				return 0, errors.Errorf("nodemask: invalid range %q: start exceeds end", field)
			}
			for id := lo; id <= hi; id++ {
				mask = mask.Set(id)
			}
			continue
		}

		id, err := parseNodeIndex(field)
		if err != nil {
			return 0, errors.Wrapf(err, "nodemask: invalid entry %q", field)
		}
		mask = mask.Set(id)
	}

	return mask, nil
}

func parseNodeIndex(s string) (NodeID, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "not a node index: %q", s)
	}
	if v < 0 || v >= MaxNodes {
		return 0, errors.Errorf("node index %d out of range [0,%d)", v, MaxNodes)
	}
	return NodeID(v), nil
}
