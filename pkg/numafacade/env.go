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
	"github.com/pkg/errors"

	"github.com/intel/numa-coordinator/pkg/nodeconf"
	"github.com/intel/numa-coordinator/pkg/nodemask"
)

// InitFromEnv configures binding from the environment, delegating the
// parsing to nodeconf.LoadFromEnviron: either BIND_TO_NODES alone, or
// either/both of CPU_NODES and MEM_NODES. Setting BIND_TO_NODES together
// with either of the other two is ErrConflictingConfig. An unset CPU or
// mem nodeset defaults to every configured node.
func (f *Facade) InitFromEnv(migrate bool) error {
	cfg, err := nodeconf.LoadFromEnviron()
	if err != nil {
		if errorsIsConflict(err) {
			return facadeError(ErrConflictingConfig, "%v", err)
		}
		return facadeError(ErrParse, "%v", err)
	}
	return f.initFromConfig(cfg, migrate)
}

func (f *Facade) initFromConfig(cfg *nodeconf.Config, migrate bool) error {
	if cfg.BindNodes != nil {
		if err := f.checkConfiguredNode(*cfg.BindNodes); err != nil {
			return err
		}
		return f.Bind(*cfg.BindNodes, *cfg.BindNodes, migrate)
	}

	exec := nodemask.Full(f.NumConfiguredNodes())
	if cfg.CPUNodes != nil {
		if err := f.checkConfiguredNode(*cfg.CPUNodes); err != nil {
			return err
		}
		exec = *cfg.CPUNodes
	}

	mem := nodemask.Full(f.NumConfiguredNodes())
	if cfg.MemNodes != nil {
		if err := f.checkConfiguredNode(*cfg.MemNodes); err != nil {
			return err
		}
		mem = *cfg.MemNodes
	}

	return f.Bind(mem, exec, migrate)
}

func (f *Facade) checkConfiguredNode(mask nodemask.NodeMask) error {
	nodes := mask.Nodes()
	if len(nodes) == 0 {
		return nil
	}
	top := nodes[len(nodes)-1]
	if int(top) >= f.NumConfiguredNodes() {
		return facadeError(ErrInvalidNode, "node %d exceeds configured node count %d", top, f.NumConfiguredNodes())
	}
	return nil
}

func errorsIsConflict(err error) bool {
	return errors.Is(err, nodeconf.ErrConflictingConfig)
}
