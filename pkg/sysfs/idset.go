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

package sysfs

import (
	"sort"
	"strconv"

	"k8s.io/utils/cpuset"
)

const (
	// Unknown represents an unknown id.
	Unknown ID = -1
)

// ID is an integer id, used to identify NUMA nodes (the only kind of id
// this narrowed topology package still enumerates -- the host library's
// own IdSet also keys packages and CPUs, which this package no longer
// discovers individually; see system.go).
type ID int

// IDSet is an unordered set of integer ids. Reading a sysfs list attribute
// ("0-3,7") parses straight into one of these before it is ever turned into
// a cpuset.CPUSet.
type IDSet map[ID]struct{}

// NewIDSet creates a new unordered set of (integer) ids.
func NewIDSet(ids ...ID) IDSet {
	s := make(map[ID]struct{})

	for _, id := range ids {
		s[id] = struct{}{}
	}

	return s
}

// NewIDSetFromIntSlice creates a new unordered set from an integer slice.
func NewIDSetFromIntSlice(ids ...int) IDSet {
	s := make(map[ID]struct{})

	for _, id := range ids {
		s[ID(id)] = struct{}{}
	}

	return s
}

// Add adds the given ids into the set.
func (s IDSet) Add(ids ...ID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Size returns the number of ids in the set.
func (s IDSet) Size() int {
	return len(s)
}

// SortedMembers returns all ids in the set as a sorted slice.
func (s IDSet) SortedMembers() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}

// CPUSet returns a cpuset.CPUSet corresponding to an id set.
func (s IDSet) CPUSet() cpuset.CPUSet {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, int(id))
	}
	return cpuset.New(ids...)
}

// FromCPUSet returns an id set corresponding to a cpuset.CPUSet.
func FromCPUSet(cset cpuset.CPUSet) IDSet {
	return NewIDSetFromIntSlice(cset.List()...)
}

// String returns the set as a string.
func (s IDSet) String() string {
	return s.StringWithSeparator(",")
}

// StringWithSeparator returns the set as a string, separated with the given separator.
func (s IDSet) StringWithSeparator(args ...string) string {
	if len(s) == 0 {
		return ""
	}

	sep := ","
	if len(args) == 1 {
		sep = args[0]
	}

	str := ""
	t := ""
	for _, id := range s.SortedMembers() {
		str = str + t + strconv.Itoa(int(id))
		t = sep
	}

	return str
}
