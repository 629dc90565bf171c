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

package nodemask

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/utils/cpuset"
)

// CPUMask is the CPU-set half of the data model: a set of logical CPU ids,
// used for sched_setaffinity masks and the cpu_to_nodemask translation.
type CPUMask = cpuset.CPUSet

// NewCPUMask builds a CPUMask from the given CPU ids.
func NewCPUMask(cpus ...int) CPUMask {
	return cpuset.New(cpus...)
}

// ParseCPUMask parses a cpu-list string ("0,2-3") into a CPUMask.
func ParseCPUMask(s string) (CPUMask, error) {
	return cpuset.Parse(s)
}

// MustParseCPUMask panics if the given cpu-list string does not parse.
func MustParseCPUMask(s string) CPUMask {
	cset, err := cpuset.Parse(s)
	if err != nil {
		panic(fmt.Errorf("nodemask: invalid cpu mask %q: %w", s, err))
	}
	return cset
}

// ShortCPUMask prints a CPUMask collapsing arithmetic progressions
// ("0,2,4,6" -> "0-6:2") for compact affinity logging. Unlike the
// teacher's ShortCPUSet, which round-trips through its CPUSet's
// comma-separated String() and re-parses each field back into an int
// (a workaround its own hand-rolled set type needs, since it exposes no
// sorted accessor), this walks k8s.io/utils/cpuset's own List() directly
// -- no string parsing in the hot path, and no fallback-to-String() case
// for a parse failure that can no longer occur.
func ShortCPUMask(cset CPUMask) string {
	ids := cset.List()
	if len(ids) == 0 {
		return ""
	}

	var b strings.Builder
	beg, end, step := ids[0], ids[0], -1

	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(mkRange(beg, end, step))
	}

	for _, id := range ids[1:] {
		switch {
		case step < 0:
			end, step = id, id-beg
		case id-end == step:
			end = id
		default:
			flush()
			beg, end, step = id, id, -1
		}
	}
	flush()

	return b.String()
}

func mkRange(beg, end, step int) string {
	if beg == end {
		return strconv.Itoa(beg)
	}

	b, e := strconv.Itoa(beg), strconv.Itoa(end)
	if step == 1 {
		return b + "-" + e
	}
	if beg+step == end {
		return b + "," + e
	}

	return b + "-" + e + ":" + strconv.Itoa(step)
}
