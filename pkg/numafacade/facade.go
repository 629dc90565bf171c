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

// Package numafacade is the portable, safe access layer onto the host NUMA
// facility: topology queries, CPU/memory binding, page migration and
// mask<->string conversions. It deliberately owns no package-level mutable
// state -- everything the mapping and session layers need is threaded
// through a *Facade value created at process start, the encapsulated
// "context value" called for in the host library's own design notes.
package numafacade

import (
	"strconv"
	"strings"

	"github.com/intel/numa-coordinator/pkg/log"
	"github.com/intel/numa-coordinator/pkg/nodemask"
	"github.com/intel/numa-coordinator/pkg/sysfs"
)

var logger = log.NewLogger("numafacade")

// Facade is the host NUMA control surface used by the mapping and session
// layers. It caches the topology snapshot taken at New, mirroring the
// upstream library's module-scoped caches but scoped to one instance instead
// of the whole process.
type Facade struct {
	sys            sysfs.System
	configuredIDs  []sysfs.ID
	possibleNodes  int
	possibleCPUs   int
	pageSize       int
}

// New discovers host topology via sysfs and returns a ready-to-use Facade.
// It returns ErrUnavailable if the host has no discoverable NUMA nodes.
func New() (*Facade, error) {
	sys, err := sysfs.DiscoverSystem(sysfs.DiscoverCPUTopology, sysfs.DiscoverMemTopology)
	if err != nil {
		return nil, facadeError(ErrUnavailable, "topology discovery failed: %v", err)
	}
	return NewWithSystem(sys)
}

// NewWithSystem builds a Facade on top of an already-discovered sysfs.System,
// primarily for tests that supply a fake or path-rooted system.
func NewWithSystem(sys sysfs.System) (*Facade, error) {
	ids := sys.NodeIDs()
	if len(ids) == 0 {
		return nil, ErrUnavailable
	}

	f := &Facade{
		sys:           sys,
		configuredIDs: ids,
		possibleNodes: len(ids),
		possibleCPUs:  sys.CPUCount(),
		pageSize:      osPageSize(),
	}
	return f, nil
}

// Available reports whether the host exposes usable NUMA topology.
func (f *Facade) Available() bool {
	return f != nil && len(f.configuredIDs) > 0
}

// NumConfiguredNodes returns the number of NUMA nodes discovered on this
// host. The facade does not distinguish configured from possible nodes
// beyond what sysfs reports, so both queries answer from the same
// discovery pass.
func (f *Facade) NumConfiguredNodes() int {
	return len(f.configuredIDs)
}

// NumPossibleNodes returns the node count the kernel could in principle
// support; absent a distinct possible-node enumeration from sysfs, this
// equals NumConfiguredNodes.
func (f *Facade) NumPossibleNodes() int {
	return f.possibleNodes
}

// NumConfiguredCPUs returns the number of online+offline CPUs discovered.
func (f *Facade) NumConfiguredCPUs() int {
	return f.sys.CPUCount()
}

// NumPossibleCPUs returns the CPU count discovered at New; absent a distinct
// possible-CPU enumeration from sysfs, this equals NumConfiguredCPUs.
func (f *Facade) NumPossibleCPUs() int {
	return f.possibleCPUs
}

// PageSize returns the host's base page size in bytes.
func (f *Facade) PageSize() int {
	return f.pageSize
}

func (f *Facade) node(id nodemask.NodeID) (sysfs.Node, error) {
	if id < 0 || int(id) >= f.NumConfiguredNodes() {
		return nil, facadeError(ErrInvalidNode, "node %d: configured node count is %d", id, f.NumConfiguredNodes())
	}
	n := f.sys.Node(sysfs.ID(id))
	if n == nil {
		return nil, facadeError(ErrInvalidNode, "node %d not present in topology", id)
	}
	return n, nil
}

// NodeSize reports the total and free memory of a node, in bytes.
func (f *Facade) NodeSize(id nodemask.NodeID) (total, free uint64, err error) {
	n, err := f.node(id)
	if err != nil {
		return 0, 0, err
	}
	info, err := n.MemoryInfo()
	if err != nil {
		return 0, 0, facadeError(ErrIO, "node %d: failed to read memory info: %v", id, err)
	}
	return uint64(info.MemTotal), uint64(info.MemFree), nil
}

// NodeToCPUs returns the CPU mask of the CPUs local to the given node.
func (f *Facade) NodeToCPUs(id nodemask.NodeID) (nodemask.CPUMask, error) {
	n, err := f.node(id)
	if err != nil {
		return nodemask.CPUMask{}, err
	}
	return n.CPUSet(), nil
}

// nodeMaskToCPUMask unions the CPU sets of every node set in the mask,
// the Go equivalent of numa_nodemask_to_cpumask.
func (f *Facade) nodeMaskToCPUMask(nodes nodemask.NodeMask) nodemask.CPUMask {
	result := nodemask.NewCPUMask()
	for _, id := range nodes.Nodes() {
		if int(id) >= f.NumConfiguredNodes() {
			continue
		}
		cpus, err := f.NodeToCPUs(id)
		if err != nil {
			continue
		}
		result = result.Union(cpus)
	}
	return result
}

// PreferredNode returns the node the kernel currently prefers for new
// allocations under the caller's policy.
func (f *Facade) PreferredNode() nodemask.NodeID {
	mode, mask, err := getMempolicy()
	if err != nil || mode != mpolPreferred {
		return nodemask.AnyNode
	}
	nodes := mask.Nodes()
	if len(nodes) == 0 {
		return nodemask.AnyNode
	}
	return nodes[0]
}

// MemsAllowed returns the set of nodes the calling process may allocate
// memory from, per /proc/self/status. Hosts without cpuset-style
// restriction report every configured node.
func (f *Facade) MemsAllowed() nodemask.NodeMask {
	mask, err := readMemsAllowed()
	if err != nil {
		logger.Warn("falling back to full node set, failed to read mems_allowed: %v", err)
		return nodemask.Full(f.NumConfiguredNodes())
	}
	return mask & nodemask.Full(f.NumConfiguredNodes())
}

// RunNodeMask returns a single-node mask holding the node the calling thread
// is executing on right now, as reported by getcpu(2). The caller's full
// scheduling affinity is not consulted, so other nodes it may run on are not
// included. If getcpu fails, it returns every configured node.
func (f *Facade) RunNodeMask() nodemask.NodeMask {
	_, node, err := getCPUAndNode()
	if err != nil {
		return nodemask.Full(f.NumConfiguredNodes())
	}
	// getcpu only reports the node the caller happens to run on right now,
	// not the full affinity set; approximate with that single node unless
	// nothing is known, in which case assume unconstrained.
	return nodemask.NewNodeMask(nodemask.NodeID(node))
}

// MembindMask returns the node mask of the caller's current memory binding
// policy, or the full configured set if the policy is not MPOL_BIND.
func (f *Facade) MembindMask() nodemask.NodeMask {
	mode, mask, err := getMempolicy()
	if err != nil || mode != mpolBind {
		return nodemask.Full(f.NumConfiguredNodes())
	}
	return mask
}

func (f *Facade) checkAllowed(nodes nodemask.NodeMask) error {
	allowed := f.MemsAllowed()
	for _, id := range nodes.Nodes() {
		if !allowed.Has(id) {
			return facadeError(ErrNotAllowed, "node %d not in mems_allowed (%s)", id, allowed)
		}
	}
	return nil
}

// bindAndMigrate is the combined path used when mem == exec: set the memory
// policy and CPU affinity to the same node set, optionally migrating
// already-touched pages first.
func (f *Facade) bindAndMigrate(nodes nodemask.NodeMask, migrate bool) error {
	if migrate {
		current := f.MembindMask()
		if err := migratePages(0, current, nodes); err != nil {
			return facadeError(ErrIO, "migrate_pages to %s failed: %v", nodes, err)
		}
	}
	if err := setMempolicy(mpolBind, nodes); err != nil {
		return facadeError(ErrIO, "set_mempolicy(%s) failed: %v", nodes, err)
	}
	if err := setAffinityCPUs(f.nodeMaskToCPUMask(nodes)); err != nil {
		return facadeError(ErrIO, "sched_setaffinity(%s) failed: %v", nodes, err)
	}
	return nil
}

// Bind sets memory policy from mem and CPU affinity from exec. If mem and
// exec are the same set, it takes the combined bind-and-migrate path;
// otherwise it sets each independently and migrate only affects the memory
// side, matching numa_initialize's behavior.
func (f *Facade) Bind(mem, exec nodemask.NodeMask, migrate bool) error {
	if err := f.checkAllowed(mem); err != nil {
		return err
	}
	if mem == exec {
		return f.bindAndMigrate(mem, migrate)
	}

	if err := setAffinityCPUs(f.nodeMaskToCPUMask(exec)); err != nil {
		return facadeError(ErrIO, "sched_setaffinity(%s) failed: %v", exec, err)
	}
	if migrate {
		current := f.MembindMask()
		if err := migratePages(0, current, mem); err != nil {
			return facadeError(ErrIO, "migrate_pages to %s failed: %v", mem, err)
		}
	}
	if err := setMempolicy(mpolBind, mem); err != nil {
		return facadeError(ErrIO, "set_mempolicy(%s) failed: %v", mem, err)
	}
	return nil
}

// BindNode binds both memory and execution to a single node.
func (f *Facade) BindNode(id nodemask.NodeID, migrate bool) error {
	if id == nodemask.AnyNode {
		return f.Bind(nodemask.Full(f.NumConfiguredNodes()), nodemask.Full(f.NumConfiguredNodes()), migrate)
	}
	mask := nodemask.NewNodeMask(id)
	return f.Bind(mask, mask, migrate)
}

// SetMembindNode binds only the memory policy to a single node, leaving CPU
// affinity untouched. Unlike BindNode, this never calls the combined
// bind-and-migrate path -- it always sets the policy directly, migrating
// first only if requested.
func (f *Facade) SetMembindNode(id nodemask.NodeID, migrate bool) error {
	var mask nodemask.NodeMask
	if id == nodemask.AnyNode {
		mask = nodemask.Full(f.NumConfiguredNodes())
	} else {
		mask = nodemask.NewNodeMask(id)
	}
	if err := f.checkAllowed(mask); err != nil {
		return err
	}
	if migrate {
		current := f.MembindMask()
		if err := migratePages(0, current, mask); err != nil {
			return facadeError(ErrIO, "migrate_pages to %s failed: %v", mask, err)
		}
	}
	if err := setMempolicy(mpolBind, mask); err != nil {
		return facadeError(ErrIO, "set_mempolicy(%s) failed: %v", mask, err)
	}
	return nil
}

// CurrentCPU reports the CPU the calling thread is presently executing on.
func (f *Facade) CurrentCPU() (int, error) {
	cpu, _, err := getCPUAndNode()
	if err != nil {
		return 0, facadeError(ErrIO, "getcpu failed: %v", err)
	}
	return cpu, nil
}

// NodeMaskToStr renders a node mask as "i,j,k", or "(none)" when empty.
func NodeMaskToStr(m nodemask.NodeMask) string {
	return m.String()
}

// CPUMaskToStr renders a CPU mask as "i,j,k", or "(none)" when empty.
func CPUMaskToStr(m nodemask.CPUMask) string {
	if m.Size() == 0 {
		return "(none)"
	}
	parts := make([]string, 0, m.Size())
	for _, cpu := range m.List() {
		parts = append(parts, strconv.Itoa(cpu))
	}
	return strings.Join(parts, ",")
}
