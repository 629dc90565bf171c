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

package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/numa-coordinator/pkg/execspec"
	"github.com/intel/numa-coordinator/pkg/internal/faketopo"
	"github.com/intel/numa-coordinator/pkg/numafacade"
)

func testFacade(t *testing.T) *numafacade.Facade {
	t.Helper()
	f, err := numafacade.NewWithSystem(faketopo.New(4, 8, 1<<30, 1<<29))
	require.NoError(t, err)
	return f
}

func regionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "omp_numa")
}

func TestOpenShepherdAndWorkerShareTopology(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade})
	require.NoError(t, err)
	defer shep.Close()

	worker, err := Open(Options{Path: path, Facade: facade})
	require.NoError(t, err)
	defer worker.Close()

	require.Equal(t, 4, worker.NumNodes())
	require.Equal(t, 32, worker.NumProcs())
	require.Equal(t, 8, worker.NumProcsPerNode())
	require.True(t, shep.IsShepherd())
	require.False(t, worker.IsShepherd())
}

func TestMapTasksFirstMapping(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade})
	require.NoError(t, err)
	defer shep.Close()

	spec, err := shep.MapTasks(nil)
	require.NoError(t, err)
	require.EqualValues(t, 32, spec.TotalTasks)
	for i := 0; i < 4; i++ {
		require.EqualValues(t, 8, spec.PerNode[i])
	}

	out := make([]uint, 4)
	n := shep.TaskAssignment(out, true)
	require.Equal(t, 4, n)
	require.Equal(t, []uint{8, 8, 8, 8}, out)
}

func TestMapTasksThenCleanupRestoresRegistry(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade})
	require.NoError(t, err)
	defer shep.Close()

	spec, err := shep.MapTasks(nil)
	require.NoError(t, err)

	require.NoError(t, shep.Cleanup(spec))

	out := make([]uint, 4)
	shep.TaskAssignment(out, false)
	require.Equal(t, []uint{0, 0, 0, 0}, out)
}

func TestDoubleCleanupIsRejected(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade})
	require.NoError(t, err)
	defer shep.Close()

	spec, err := shep.MapTasks(nil)
	require.NoError(t, err)
	require.NoError(t, shep.Cleanup(spec))

	err = shep.Cleanup(spec)
	require.Error(t, err)
}

func TestCleanupWithoutCommitIsRejected(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade})
	require.NoError(t, err)
	defer shep.Close()

	err = shep.Cleanup(execspec.Spec{})
	require.ErrorIs(t, err, ErrNotCommitted)
}

func TestNumaAwareReuseAcrossCleanupAndRemap(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade, NumaAware: true})
	require.NoError(t, err)
	defer shep.Close()

	worker, err := Open(Options{Path: path, Facade: facade})
	require.NoError(t, err)
	defer worker.Close()

	// worker claims nodes 0 and 1 and stays mapped.
	heldByWorker, err := worker.MapTasks(&execspec.Spec{TotalTasks: 16, PerNode: [64]uint{0: 8, 1: 8}})
	require.NoError(t, err)

	// shep previously ran on nodes 2 and 3, then released them.
	priorShepSpec, err := shep.MapTasks(&execspec.Spec{TotalTasks: 16, PerNode: [64]uint{2: 8, 3: 8}})
	require.NoError(t, err)
	require.NoError(t, shep.Cleanup(priorShepSpec))

	// Remapping with NumaAware set should steer shep back onto 2 and 3,
	// leaving the worker's nodes alone.
	second, err := shep.MapTasks(nil)
	require.NoError(t, err)
	require.EqualValues(t, 16, second.TotalTasks)
	require.EqualValues(t, 0, second.PerNode[0])
	require.EqualValues(t, 0, second.PerNode[1])
	require.EqualValues(t, 8, second.PerNode[2])
	require.EqualValues(t, 8, second.PerNode[3])

	require.NoError(t, worker.Cleanup(heldByWorker))
	require.NoError(t, shep.Cleanup(second))
}

func TestContentionSecondParticipantGetsRemainder(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade})
	require.NoError(t, err)
	defer shep.Close()

	worker, err := Open(Options{Path: path, Facade: facade})
	require.NoError(t, err)
	defer worker.Close()

	first, err := shep.MapTasks(nil)
	require.NoError(t, err)
	require.EqualValues(t, 32, first.TotalTasks)

	second, err := worker.MapTasks(nil)
	require.NoError(t, err)
	require.EqualValues(t, 16, second.TotalTasks)
	require.EqualValues(t, 8, second.PerNode[0])
	require.EqualValues(t, 8, second.PerNode[1])
	require.EqualValues(t, 0, second.PerNode[2])
	require.EqualValues(t, 0, second.PerNode[3])
}

func TestClearCountersOnlyZeroesTaskCount(t *testing.T) {
	path := regionPath(t)
	facade := testFacade(t)

	shep, err := Open(Options{Shepherd: true, Path: path, Facade: facade})
	require.NoError(t, err)
	defer shep.Close()

	_, err = shep.MapTasks(nil)
	require.NoError(t, err)

	require.NoError(t, shep.ClearCounters())

	out := make([]uint, 4)
	shep.TaskAssignment(out, false)
	require.Equal(t, []uint{0, 0, 0, 0}, out)

	snap := shep.Snapshot()
	require.EqualValues(t, 1, snap.NumApps)
	for i := 0; i < 4; i++ {
		require.EqualValues(t, 1, snap.AppCount[i])
	}
}
