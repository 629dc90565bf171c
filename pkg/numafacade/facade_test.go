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
	"testing"

	"github.com/intel/numa-coordinator/pkg/internal/faketopo"
	"github.com/intel/numa-coordinator/pkg/nodemask"
)

func TestNewWithSystemTopologyQueries(t *testing.T) {
	sys := faketopo.New(4, 8, 1<<30, 1<<29)
	f, err := NewWithSystem(sys)
	if err != nil {
		t.Fatalf("NewWithSystem: %v", err)
	}

	if got := f.NumConfiguredNodes(); got != 4 {
		t.Errorf("expected 4 configured nodes, got %d", got)
	}
	if got := f.NumConfiguredCPUs(); got != 32 {
		t.Errorf("expected 32 configured cpus, got %d", got)
	}

	total, free, err := f.NodeSize(nodemask.NodeID(0))
	if err != nil {
		t.Fatalf("NodeSize: %v", err)
	}
	if total != 1<<30 || free != 1<<29 {
		t.Errorf("unexpected node size: total=%d free=%d", total, free)
	}
}

func TestNodeSizeInvalidNode(t *testing.T) {
	sys := faketopo.New(2, 4, 1<<30, 1<<29)
	f, err := NewWithSystem(sys)
	if err != nil {
		t.Fatalf("NewWithSystem: %v", err)
	}

	if _, _, err := f.NodeSize(nodemask.NodeID(5)); err == nil {
		t.Errorf("expected InvalidNode error for out-of-range node")
	}
}

func TestNodeToCPUs(t *testing.T) {
	sys := faketopo.New(2, 4, 1<<30, 1<<29)
	f, err := NewWithSystem(sys)
	if err != nil {
		t.Fatalf("NewWithSystem: %v", err)
	}

	cpus, err := f.NodeToCPUs(nodemask.NodeID(1))
	if err != nil {
		t.Fatalf("NodeToCPUs: %v", err)
	}
	if cpus.Size() != 4 {
		t.Errorf("expected 4 cpus on node 1, got %d", cpus.Size())
	}
}
