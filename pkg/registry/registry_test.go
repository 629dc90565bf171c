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

package registry

import (
	"path/filepath"
	"testing"

	"github.com/intel/numa-coordinator/pkg/nodemask"
)

func regionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), DefaultName)
}

func TestOpenShepherdThenWorker(t *testing.T) {
	path := regionPath(t)

	shep, err := OpenShepherd(path)
	if err != nil {
		t.Fatalf("OpenShepherd: %v", err)
	}
	defer shep.Close()

	worker, err := OpenWorker(path)
	if err != nil {
		t.Fatalf("OpenWorker: %v", err)
	}
	defer worker.Close()

	if worker.SnapshotFast(0) != 0 {
		t.Errorf("expected zeroed counters on fresh region")
	}
}

func TestOpenShepherdTwiceFails(t *testing.T) {
	path := regionPath(t)

	shep, err := OpenShepherd(path)
	if err != nil {
		t.Fatalf("OpenShepherd: %v", err)
	}
	defer shep.Close()

	if _, err := OpenShepherd(path); err == nil {
		t.Errorf("expected second OpenShepherd to fail")
	}
}

func TestOpenWorkerWithoutShepherdFails(t *testing.T) {
	path := regionPath(t)

	if _, err := OpenWorker(path); err == nil {
		t.Errorf("expected OpenWorker to fail when no shepherd has run")
	}
}

func TestWithLockMutatesSharedState(t *testing.T) {
	path := regionPath(t)

	shep, err := OpenShepherd(path)
	if err != nil {
		t.Fatalf("OpenShepherd: %v", err)
	}
	defer shep.Close()

	err = shep.WithLock(func(s *State) {
		s.NumApps = 1
		s.TaskCount[0] = 8
	})
	if err != nil {
		t.Fatalf("WithLock: %v", err)
	}

	if got := shep.SnapshotFast(nodemask.NodeID(0)); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
}

func TestCloseNonShepherdDoesNotUnlink(t *testing.T) {
	path := regionPath(t)

	shep, err := OpenShepherd(path)
	if err != nil {
		t.Fatalf("OpenShepherd: %v", err)
	}

	worker, err := OpenWorker(path)
	if err != nil {
		t.Fatalf("OpenWorker: %v", err)
	}
	if err := worker.Close(); err != nil {
		t.Fatalf("worker Close: %v", err)
	}

	// The region must still exist for a second worker.
	worker2, err := OpenWorker(path)
	if err != nil {
		t.Fatalf("expected region to still exist after non-shepherd close: %v", err)
	}
	worker2.Close()
	shep.Close()
}
