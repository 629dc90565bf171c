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
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/intel/numa-coordinator/pkg/nodemask"
)

// readStatusMask reads the named bitmask field ("Mems_allowed" or
// "Cpus_allowed") out of /proc/self/status, the portable substitute for
// get_mempolicy's MPOL_F_MEMS_ALLOWED query and sched_getaffinity.
func readStatusMask(field string) (uint64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, facadeError(err, "failed to open /proc/self/status")
	}
	defer f.Close()

	prefix := field + ":"
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		// Value is a comma-separated sequence of 32-bit hex words, most
		// significant word first; a 64-bit mask (MaxNodes = 64) needs the
		// last two (least significant) words.
		fields := strings.Split(strings.TrimSpace(strings.TrimPrefix(line, prefix)), ",")
		if len(fields) > 2 {
			fields = fields[len(fields)-2:]
		}
		var word uint64
		for _, hex := range fields {
			w, err := strconv.ParseUint(strings.TrimSpace(hex), 16, 32)
			if err != nil {
				return 0, facadeError(err, "failed to parse %s in /proc/self/status", field)
			}
			word = word<<32 | w
		}
		return word, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, facadeError(err, "failed to read /proc/self/status")
	}
	return 0, facadeError(ErrIO, "field %q not found in /proc/self/status", field)
}

func readMemsAllowed() (nodemask.NodeMask, error) {
	word, err := readStatusMask("Mems_allowed")
	if err != nil {
		return 0, err
	}
	return nodemask.NodeMask(word), nil
}
