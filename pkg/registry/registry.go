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

// Package registry owns the lifecycle and atomic mutation of the
// process-shared state region: creation, attachment, locking, and teardown.
// A single shepherd creates and destroys the region; any number of workers
// attach and detach independently.
//
// The region is backed by a plain file instead of a POSIX shared-memory
// object (shm_open), and the in-region mutex from the host design notes is
// realized with flock(2) on that same file descriptor rather than a
// process-shared semaphore -- both substitutions the design notes
// explicitly allow, as long as the with_lock(f) contract is preserved.
package registry

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"

	"github.com/intel/numa-coordinator/pkg/log"
	"github.com/intel/numa-coordinator/pkg/nodemask"
)

var logger = log.NewLogger("registry")

// DefaultName is the recommended region name from the external interfaces.
const DefaultName = "omp_numa"

// DefaultDir is where the region file lives when no directory is given
// explicitly, matching the ephemeral, tmpfs-backed nature of a POSIX shared
// memory object.
const DefaultDir = "/dev/shm"

// DefaultPath joins DefaultDir and DefaultName.
func DefaultPath() string {
	return filepath.Join(DefaultDir, DefaultName)
}

// Registry is one participant's handle onto the shared region: its file
// descriptor, its mapping, and whether it is the shepherd (and therefore
// responsible for destroying the region on Close).
type Registry struct {
	path       string
	fd         int
	data       []byte
	state      *State
	isShepherd bool
}

// OpenShepherd creates the named region exclusively, truncates it to
// StateSize, maps it read-write, zeroes its counters, and marks it ready.
// It returns ErrAlreadyExists if the region already exists.
func OpenShepherd(path string) (*Registry, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	if err != nil {
		if err == unix.EEXIST {
			return nil, registryError(ErrAlreadyExists, "shepherd: %s", path)
		}
		return nil, registryError(ErrIO, "shepherd: open %s: %v", path, err)
	}

	r := &Registry{path: path, fd: fd, isShepherd: true}

	if err := unix.Ftruncate(fd, int64(StateSize)); err != nil {
		r.closeFD()
		os.Remove(path)
		return nil, registryError(ErrIO, "shepherd: ftruncate %s: %v", path, err)
	}

	if err := r.mmap(); err != nil {
		r.closeFD()
		os.Remove(path)
		return nil, err
	}

	if err := r.flock(); err != nil {
		r.munmap()
		r.closeFD()
		os.Remove(path)
		return nil, registryError(ErrLockInitFailed, "shepherd: %v", err)
	}

	r.state.NumConfiguredNodes = 0
	r.state.NumApps = 0
	r.state.NumTasks = 0
	for i := range r.state.AppCount {
		r.state.AppCount[i] = 0
		r.state.TaskCount[i] = 0
	}
	r.state.Ready = 1

	if err := r.funlock(); err != nil {
		r.munmap()
		r.closeFD()
		os.Remove(path)
		return nil, registryError(ErrLockInitFailed, "shepherd: releasing init lock: %v", err)
	}

	logger.Info("shepherd opened shared region %s", path)
	return r, nil
}

// OpenWorker opens an existing region read-write and maps it, without
// truncating or reinitializing it, and without waiting. It fails with ErrNotFound both when the
// region does not exist and when it exists but the shepherd has not yet
// finished initializing it (Ready == 0) -- the worker is expected to retry
// or be started only after the shepherd signals readiness out-of-band.
func OpenWorker(path string) (*Registry, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0666)
	if err != nil {
		return nil, registryError(ErrNotFound, "worker: open %s: %v", path, err)
	}

	r := &Registry{path: path, fd: fd, isShepherd: false}

	if err := r.mmap(); err != nil {
		r.closeFD()
		return nil, err
	}

	if r.state.Ready == 0 {
		r.munmap()
		r.closeFD()
		return nil, registryError(ErrNotFound, "worker: region %s exists but shepherd has not finished initializing it", path)
	}

	logger.Info("worker attached to shared region %s", path)
	return r, nil
}

func (r *Registry) mmap() error {
	data, err := unix.Mmap(r.fd, 0, StateSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return registryError(ErrMapFailed, "mmap %s: %v", r.path, err)
	}
	r.data = data
	r.state = castState(data)
	return nil
}

func (r *Registry) munmap() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	r.state = nil
	if err != nil {
		return registryError(ErrMapFailed, "munmap %s: %v", r.path, err)
	}
	return nil
}

func (r *Registry) closeFD() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	if err != nil {
		return registryError(ErrIO, "close %s: %v", r.path, err)
	}
	return nil
}

func (r *Registry) flock() error {
	return unix.Flock(r.fd, unix.LOCK_EX)
}

func (r *Registry) funlock() error {
	return unix.Flock(r.fd, unix.LOCK_UN)
}

// WithLock acquires the in-region lock, runs f against the shared state, and
// releases the lock, even if f panics.
func (r *Registry) WithLock(f func(*State)) error {
	if err := r.flock(); err != nil {
		return registryError(ErrIO, "lock %s: %v", r.path, err)
	}
	defer r.funlock()
	f(r.state)
	return nil
}

// SnapshotFast reads a node's task count without the lock; callers accept
// potentially torn or stale values.
func (r *Registry) SnapshotFast(id nodemask.NodeID) uint {
	if id < 0 || int(id) >= nodemask.MaxNodes {
		return 0
	}
	return uint(r.state.TaskCount[id])
}

// NumConfiguredNodesFast reads the cached configured-node count without the
// lock.
func (r *Registry) NumConfiguredNodesFast() int {
	return int(r.state.NumConfiguredNodes)
}

// SetNumConfiguredNodes stores the topology-derived node count into the
// region; only ever called by the shepherd, under lock, during setup.
func (r *Registry) SetNumConfiguredNodes(n int) {
	r.state.NumConfiguredNodes = uint64(n)
}

// Close unmaps and closes the region's descriptor. If this Registry is the
// shepherd, it additionally unlinks the backing file. Failures in each step
// are aggregated rather than short-circuited so a caller sees every problem
// that occurred during teardown.
func (r *Registry) Close() error {
	var result *multierror.Error

	if err := r.munmap(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.closeFD(); err != nil {
		result = multierror.Append(result, err)
	}
	if r.isShepherd {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, registryError(ErrIO, "unlink %s: %v", r.path, err))
		}
	}

	logger.Info("closed shared region %s (shepherd=%v)", r.path, r.isShepherd)
	return result.ErrorOrNil()
}

// IsShepherd reports whether this handle created (and will destroy) the
// region.
func (r *Registry) IsShepherd() bool {
	return r.isShepherd
}
