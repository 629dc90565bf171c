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

package nodeconf

import (
	"errors"
	"testing"

	"github.com/intel/numa-coordinator/pkg/nodemask"
)

func TestLoadBindNodesAlone(t *testing.T) {
	cfg, err := Load(FromMap(map[string]string{EnvBindToNodes: "0,2-3"}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindNodes == nil {
		t.Fatalf("expected BindNodes to be set")
	}
	want := nodemask.NewNodeMask(0, 2, 3)
	if *cfg.BindNodes != want {
		t.Errorf("expected %v, got %v", want, *cfg.BindNodes)
	}
	if cfg.CPUNodes != nil || cfg.MemNodes != nil {
		t.Errorf("expected CPUNodes/MemNodes unset")
	}
}

func TestLoadCPUAndMemNodesAlone(t *testing.T) {
	cfg, err := Load(FromMap(map[string]string{
		EnvCPUNodes: "0,1",
		EnvMemNodes: "2,3",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindNodes != nil {
		t.Errorf("expected BindNodes unset")
	}
	if *cfg.CPUNodes != nodemask.NewNodeMask(0, 1) {
		t.Errorf("unexpected CPUNodes: %v", *cfg.CPUNodes)
	}
	if *cfg.MemNodes != nodemask.NewNodeMask(2, 3) {
		t.Errorf("unexpected MemNodes: %v", *cfg.MemNodes)
	}
}

func TestLoadConflictingConfig(t *testing.T) {
	_, err := Load(FromMap(map[string]string{
		EnvBindToNodes: "0",
		EnvCPUNodes:    "1",
	}))
	if !errors.Is(err, ErrConflictingConfig) {
		t.Fatalf("expected ErrConflictingConfig, got %v", err)
	}
}

func TestLoadMalformedNodeString(t *testing.T) {
	_, err := Load(FromMap(map[string]string{EnvBindToNodes: "not-a-nodelist"}))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestLoadNumaAware(t *testing.T) {
	cfg, err := Load(FromMap(map[string]string{EnvNumaAware: "1"}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.NumaAware {
		t.Errorf("expected NumaAware to be true")
	}
}

func TestLoadEmptyConfig(t *testing.T) {
	cfg, err := Load(FromMap(map[string]string{}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindNodes != nil || cfg.CPUNodes != nil || cfg.MemNodes != nil || cfg.NumaAware {
		t.Errorf("expected zero-value config, got %+v", cfg)
	}
}
