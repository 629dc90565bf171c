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

// Package session is the per-participant handle: open, query, map, cleanup,
// close. It is the one entry point applications use; internally it wires
// together the registry (C2), the mapping policy (C3), and the NUMA facade
// (C1).
//
// State machine: Detached -> Attached(no-spec) <-> Attached(committed-spec)
// -> Detached. MapTasks transitions no-spec -> committed-spec; Cleanup
// transitions back. The handle's mapping and descriptor are exclusively
// owned by it; sharing one across goroutines is allowed provided the caller
// serializes its own use -- the registry's lock covers inter-call atomicity
// between *different* handles, not aliasing within one.
package session

import (
	"github.com/intel/numa-coordinator/pkg/execspec"
	"github.com/intel/numa-coordinator/pkg/mapping"
	"github.com/intel/numa-coordinator/pkg/metrics"
	"github.com/intel/numa-coordinator/pkg/nodemask"
	"github.com/intel/numa-coordinator/pkg/numafacade"
	"github.com/intel/numa-coordinator/pkg/registry"
)

// Options configures Open.
type Options struct {
	// Shepherd selects shepherd vs worker attach semantics.
	Shepherd bool
	// Path is the shared region's backing file; registry.DefaultPath() if
	// empty.
	Path string
	// NumaAware enables the mapping policy's reuse passes. Ignored if
	// Policy is set explicitly.
	NumaAware bool
	// Policy overrides the default mapping policy.
	Policy mapping.Policy
	// Facade overrides NUMA topology/binding access, primarily for tests.
	Facade *numafacade.Facade
}

// Session is one participant's handle onto the coordinator.
type Session struct {
	reg       *registry.Registry
	facade    *numafacade.Facade
	policy    mapping.Policy
	topology  mapping.Topology
	prevSpec  *execspec.Spec
	committed bool
	shepherd  bool
}

// Open attaches to the shared registry, as shepherd or worker per
// opts.Shepherd, and prepares the mapping policy and NUMA facade.
func Open(opts Options) (*Session, error) {
	path := opts.Path
	if path == "" {
		path = registry.DefaultPath()
	}

	facade := opts.Facade
	if facade == nil {
		f, err := numafacade.New()
		if err != nil {
			return nil, sessionError(err, "session: failed to initialize NUMA facade")
		}
		facade = f
	}

	var reg *registry.Registry
	var err error
	if opts.Shepherd {
		reg, err = registry.OpenShepherd(path)
	} else {
		reg, err = registry.OpenWorker(path)
	}
	if err != nil {
		return nil, err
	}

	numNodes := facade.NumConfiguredNodes()
	numProcs := facade.NumConfiguredCPUs()
	procsPerNode := 0
	if numNodes > 0 {
		procsPerNode = numProcs / numNodes
	}

	if opts.Shepherd {
		if err := reg.WithLock(func(*registry.State) {
			reg.SetNumConfiguredNodes(numNodes)
		}); err != nil {
			reg.Close()
			return nil, err
		}
	}

	policy := opts.Policy
	if policy == nil {
		policy = mapping.DefaultPolicy{NumaAware: opts.NumaAware}
	}

	return &Session{
		reg:      reg,
		facade:   facade,
		policy:   policy,
		topology: mapping.Topology{NumNodes: numNodes, NumProcs: numProcs, ProcsPerNode: procsPerNode},
		shepherd: opts.Shepherd,
	}, nil
}

// NumNodes returns the number of configured NUMA nodes.
func (s *Session) NumNodes() int {
	return s.topology.NumNodes
}

// NumProcs returns the number of configured processors.
func (s *Session) NumProcs() int {
	return s.topology.NumProcs
}

// NumProcsPerNode returns processors per node (integer division).
func (s *Session) NumProcsPerNode() int {
	return s.topology.ProcsPerNode
}

// NumTasks returns the current task count for a node, locked unless fast is
// set.
func (s *Session) NumTasks(node nodemask.NodeID, fast bool) uint {
	if fast {
		return s.reg.SnapshotFast(node)
	}
	var count uint
	s.reg.WithLock(func(st *registry.State) {
		if node >= 0 && int(node) < nodemask.MaxNodes {
			count = uint(st.TaskCount[node])
		}
	})
	return count
}

// TaskAssignment copies min(len(out), NumNodes()) entries of the current
// per-node task count into out, locked unless fast is set. It returns the
// number of entries copied.
func (s *Session) TaskAssignment(out []uint, fast bool) int {
	n := len(out)
	if s.NumNodes() < n {
		n = s.NumNodes()
	}

	if fast {
		for i := 0; i < n; i++ {
			out[i] = s.reg.SnapshotFast(nodemask.NodeID(i))
		}
		return n
	}

	s.reg.WithLock(func(st *registry.State) {
		for i := 0; i < n; i++ {
			out[i] = uint(st.TaskCount[i])
		}
	})
	return n
}

// ClearCounters zeroes every node's task count under lock. It does not
// touch app_count or num_apps, matching the host library's own
// omp_numa_clear_counters, which only clears node_task_count.
func (s *Session) ClearCounters() error {
	return s.reg.WithLock(func(st *registry.State) {
		for i := range st.TaskCount {
			st.TaskCount[i] = 0
		}
	})
}

// MapTasks computes (or adopts) an execution spec and commits it to the
// registry under lock: increment num_apps, compute/accept the spec, add its
// counts into task_count/app_count/num_tasks, and return it.
func (s *Session) MapTasks(requested *execspec.Spec) (execspec.Spec, error) {
	var result execspec.Spec

	err := s.reg.WithLock(func(st *registry.State) {
		st.NumApps++

		if requested != nil {
			result = *requested
		} else {
			snap := mapping.Snapshot{NumApps: int(st.NumApps)}
			for i := 0; i < nodemask.MaxNodes; i++ {
				snap.TaskCount[i] = uint(st.TaskCount[i])
			}
			target := s.policy.TargetTasks(snap, s.topology)
			result = s.policy.Distribute(snap, s.topology, target, s.prevSpec)
		}

		st.NumTasks += uint64(result.TotalTasks)
		for i := 0; i < nodemask.MaxNodes; i++ {
			if result.PerNode[i] > 0 {
				st.AppCount[i]++
				st.TaskCount[i] += uint64(result.PerNode[i])
			}
		}
	})
	if err != nil {
		return execspec.Spec{}, err
	}

	s.committed = true
	return result, nil
}

// Cleanup subtracts spec's counts from the registry under lock, then stores
// spec as the handle's prev_spec for the next MapTasks call's NUMA-aware
// hint. It returns ErrNotCommitted if this handle has not committed a spec
// yet, and ErrStale on a double cleanup (a second Cleanup with no MapTasks
// in between) or if the subtraction would underflow a counter (a spec that
// does not match a prior MapTasks commit).
func (s *Session) Cleanup(spec execspec.Spec) error {
	if !s.committed {
		if s.prevSpec != nil {
			return ErrStale
		}
		return ErrNotCommitted
	}

	stale := false
	err := s.reg.WithLock(func(st *registry.State) {
		if st.NumApps == 0 || st.NumTasks < uint64(spec.TotalTasks) {
			stale = true
			return
		}
		for i := 0; i < nodemask.MaxNodes; i++ {
			if spec.PerNode[i] > 0 && (st.AppCount[i] == 0 || st.TaskCount[i] < uint64(spec.PerNode[i])) {
				stale = true
				return
			}
		}

		st.NumApps--
		st.NumTasks -= uint64(spec.TotalTasks)
		for i := 0; i < nodemask.MaxNodes; i++ {
			if spec.PerNode[i] > 0 {
				st.AppCount[i]--
				st.TaskCount[i] -= uint64(spec.PerNode[i])
			}
		}
	})
	if err != nil {
		return err
	}
	if stale {
		return ErrStale
	}

	s.prevSpec = &spec
	s.committed = false
	return nil
}

// Snapshot reads the full registry occupancy under lock, in the shape the
// metrics collector expects.
func (s *Session) Snapshot() metrics.RegistrySnapshot {
	var snap metrics.RegistrySnapshot
	snap.NumNodes = s.NumNodes()
	s.reg.WithLock(func(st *registry.State) {
		snap.NumApps = st.NumApps
		snap.NumTasks = st.NumTasks
		snap.AppCount = st.AppCount
		snap.TaskCount = st.TaskCount
	})
	return snap
}

// Close delegates to the registry's Close; the shepherd's Close additionally
// unlinks the shared region.
func (s *Session) Close() error {
	return s.reg.Close()
}

// Facade exposes the session's NUMA facade for binding calls, since the
// control flow in the system overview has the caller bind its own threads
// after committing an assignment.
func (s *Session) Facade() *numafacade.Facade {
	return s.facade
}

// IsShepherd reports whether this handle created (and will destroy) the
// shared region on Close.
func (s *Session) IsShepherd() bool {
	return s.shepherd
}
