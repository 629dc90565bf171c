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

package mapping

import (
	"testing"

	"github.com/intel/numa-coordinator/pkg/execspec"
)

var topo4x8 = Topology{NumNodes: 4, NumProcs: 32, ProcsPerNode: 8}

func TestTargetTasks(t *testing.T) {
	tcs := []struct {
		description string
		numApps     int
		expected    uint
	}{
		{"first participant requests num_procs", 1, 32},
		{"second participant splits in half", 2, 16},
		{"three participants round up", 3, 11},
	}

	p := DefaultPolicy{}
	for _, tc := range tcs {
		t.Run(tc.description, func(t *testing.T) {
			got := p.TargetTasks(Snapshot{NumApps: tc.numApps}, topo4x8)
			if got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestDistributeFirstMapping(t *testing.T) {
	p := DefaultPolicy{}
	spec := p.Distribute(Snapshot{}, topo4x8, 32, nil)

	expected := [4]uint{8, 8, 8, 8}
	for i, want := range expected {
		if spec.PerNode[i] != want {
			t.Errorf("node %d: expected %d, got %d", i, want, spec.PerNode[i])
		}
	}
	if spec.Sum() != spec.TotalTasks {
		t.Errorf("sum %d != total %d", spec.Sum(), spec.TotalTasks)
	}
}

func TestDistributeUnderContention(t *testing.T) {
	// Scenario 2: registry already holds [8,8,8,8] from a first mapping;
	// a second participant with num_apps==2 targets ceil(32/2)=16.
	p := DefaultPolicy{}
	snap := Snapshot{TaskCount: [64]uint{0: 8, 1: 8, 2: 8, 3: 8}}

	spec := p.Distribute(snap, topo4x8, 16, nil)

	expected := [4]uint{8, 8, 0, 0}
	for i, want := range expected {
		if spec.PerNode[i] != want {
			t.Errorf("node %d: expected %d, got %d", i, want, spec.PerNode[i])
		}
	}
}

func TestDistributeNumaAwareReuse(t *testing.T) {
	// Scenario 3: NUMA-aware, empty registry, prev_spec reused nodes 2 & 3.
	p := DefaultPolicy{NumaAware: true}
	prev := &execspec.Spec{TotalTasks: 16, PerNode: [64]uint{2: 8, 3: 8}}

	spec := p.Distribute(Snapshot{}, topo4x8, 16, prev)

	expected := [4]uint{0, 0, 8, 8}
	for i, want := range expected {
		if spec.PerNode[i] != want {
			t.Errorf("node %d: expected %d, got %d", i, want, spec.PerNode[i])
		}
	}
}

func TestDistributeOversubscriptionStillSumsToTarget(t *testing.T) {
	p := DefaultPolicy{}
	// More tasks than the whole host has room for.
	spec := p.Distribute(Snapshot{}, topo4x8, 64, nil)
	if spec.Sum() != 64 {
		t.Errorf("expected sum 64, got %d", spec.Sum())
	}
}

func TestDistributeZeroTasks(t *testing.T) {
	p := DefaultPolicy{}
	spec := p.Distribute(Snapshot{}, topo4x8, 0, nil)
	if spec.Sum() != 0 {
		t.Errorf("expected all-zero per_node, got sum %d", spec.Sum())
	}
}
