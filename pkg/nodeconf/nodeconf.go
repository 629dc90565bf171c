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

// Package nodeconf reads the environment-variable gates that influence NUMA
// binding and the mapping policy's NUMA-aware passes. It is intentionally
// small: a lookup function in, a validated Config out.
package nodeconf

import (
	"os"

	"github.com/pkg/errors"

	"github.com/intel/numa-coordinator/pkg/nodemask"
)

// Environment variable names, matching the spec's own table, not the
// upstream C header's prefixed names.
const (
	EnvBindToNodes = "BIND_TO_NODES"
	EnvCPUNodes    = "CPU_NODES"
	EnvMemNodes    = "MEM_NODES"
	EnvNumaAware   = "OMP_NUMA_AWARE_MAPPING"
)

// ErrConflictingConfig is returned when both EnvBindToNodes and one of
// EnvCPUNodes/EnvMemNodes are set.
var ErrConflictingConfig = errors.New("nodeconf: conflicting NUMA environment configuration")

// ErrParse is returned for a malformed node-set string.
var ErrParse = errors.New("nodeconf: malformed node-set string")

// Config is the result of parsing the recognized environment variables.
type Config struct {
	// BindNodes is set when EnvBindToNodes was present; it applies to both
	// CPU affinity and memory policy.
	BindNodes *nodemask.NodeMask
	// CPUNodes is set when EnvCPUNodes was present.
	CPUNodes *nodemask.NodeMask
	// MemNodes is set when EnvMemNodes was present.
	MemNodes *nodemask.NodeMask
	// NumaAware mirrors OMP_NUMA_AWARE_MAPPING == "1".
	NumaAware bool
}

// Lookup matches os.LookupEnv's signature; Load takes one so tests can
// inject a fixed map instead of touching the real environment.
type Lookup func(string) (string, bool)

// FromEnviron wraps os.LookupEnv as a Lookup.
func FromEnviron(key string) (string, bool) {
	return os.LookupEnv(key)
}

// FromMap adapts a map[string]string to the Lookup signature, for tests.
func FromMap(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// Load parses the recognized environment variables using the given lookup
// function. It returns ErrConflictingConfig if EnvBindToNodes and either of
// EnvCPUNodes/EnvMemNodes are both set, and ErrParse if any set nodestring
// is malformed.
func Load(lookup Lookup) (*Config, error) {
	cfg := &Config{}

	bindTo, hasBindTo := lookup(EnvBindToNodes)
	cpuNodes, hasCPUNodes := lookup(EnvCPUNodes)
	memNodes, hasMemNodes := lookup(EnvMemNodes)

	if hasBindTo && (hasCPUNodes || hasMemNodes) {
		return nil, errors.Wrapf(ErrConflictingConfig, "set either %s or %s/%s, not both", EnvBindToNodes, EnvCPUNodes, EnvMemNodes)
	}

	if hasBindTo {
		mask, err := parseMask(EnvBindToNodes, bindTo)
		if err != nil {
			return nil, err
		}
		cfg.BindNodes = &mask
	}
	if hasCPUNodes {
		mask, err := parseMask(EnvCPUNodes, cpuNodes)
		if err != nil {
			return nil, err
		}
		cfg.CPUNodes = &mask
	}
	if hasMemNodes {
		mask, err := parseMask(EnvMemNodes, memNodes)
		if err != nil {
			return nil, err
		}
		cfg.MemNodes = &mask
	}

	if aware, ok := lookup(EnvNumaAware); ok {
		cfg.NumaAware = aware == "1"
	}

	return cfg, nil
}

// LoadFromEnviron is a convenience wrapper around Load(FromEnviron).
func LoadFromEnviron() (*Config, error) {
	return Load(FromEnviron)
}

func parseMask(name, value string) (nodemask.NodeMask, error) {
	mask, err := nodemask.ParseNodeMask(value)
	if err != nil {
		return 0, errors.Wrapf(ErrParse, "%s=%q: %v", name, value, err)
	}
	return mask, nil
}
