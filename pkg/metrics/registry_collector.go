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

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/numa-coordinator/pkg/nodemask"
)

// RegistrySnapshot is the subset of registry.State a RegistryCollector needs.
// It is a plain struct, not the registry package's own type, so this package
// does not need to import pkg/registry just to describe metrics.
type RegistrySnapshot struct {
	NumApps   uint64
	NumTasks  uint64
	AppCount  [nodemask.MaxNodes]uint64
	TaskCount [nodemask.MaxNodes]uint64
	NumNodes  int
}

// SnapshotFunc polls the current registry occupancy. Callers pass a closure
// over their *registry.Registry / *session.Session so this package stays
// independent of those packages.
type SnapshotFunc func() RegistrySnapshot

// RegistryCollector exposes shared-registry occupancy as Prometheus gauges:
// total applications and tasks, and per-node application/task counts. It
// follows the same Describe/Collect-on-poll shape as the host library's own
// policy collector.
type RegistryCollector struct {
	snapshot SnapshotFunc

	numApps   *prometheus.Desc
	numTasks  *prometheus.Desc
	appCount  *prometheus.Desc
	taskCount *prometheus.Desc
}

// NewRegistryCollector builds a collector that polls snapshot on every
// Collect call.
func NewRegistryCollector(snapshot SnapshotFunc) *RegistryCollector {
	return &RegistryCollector{
		snapshot: snapshot,
		numApps: prometheus.NewDesc(
			"numa_coordinator_applications", "Number of participating applications.", nil, nil),
		numTasks: prometheus.NewDesc(
			"numa_coordinator_tasks", "Total tasks currently assigned.", nil, nil),
		appCount: prometheus.NewDesc(
			"numa_coordinator_node_applications", "Applications assigned to a node.", []string{"node"}, nil),
		taskCount: prometheus.NewDesc(
			"numa_coordinator_node_tasks", "Tasks assigned to a node.", []string{"node"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.numApps
	ch <- c.numTasks
	ch <- c.appCount
	ch <- c.taskCount
}

// Collect implements prometheus.Collector.
func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()

	ch <- prometheus.MustNewConstMetric(c.numApps, prometheus.GaugeValue, float64(snap.NumApps))
	ch <- prometheus.MustNewConstMetric(c.numTasks, prometheus.GaugeValue, float64(snap.NumTasks))

	for i := 0; i < snap.NumNodes && i < nodemask.MaxNodes; i++ {
		label := strconv.Itoa(i)
		ch <- prometheus.MustNewConstMetric(c.appCount, prometheus.GaugeValue, float64(snap.AppCount[i]), label)
		ch <- prometheus.MustNewConstMetric(c.taskCount, prometheus.GaugeValue, float64(snap.TaskCount[i]), label)
	}
}

// NewGatherer builds a Prometheus gatherer exposing a single
// RegistryCollector over snapshot. Unlike the teacher's named-collector
// registry (a plugin point for a whole family of independently contributed
// collectors), this repo only ever has the one collector, so there is no
// name-keyed registration step to model.
func NewGatherer(snapshot SnapshotFunc) prometheus.Gatherer {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewRegistryCollector(snapshot))
	return reg
}
