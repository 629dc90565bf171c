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

import "github.com/pkg/errors"

// Sentinel errors for the registry's failure taxonomy.
var (
	// ErrAlreadyExists is returned by OpenShepherd when the named region
	// already exists.
	ErrAlreadyExists = errors.New("registry: shared region already exists")
	// ErrNotFound is returned by OpenWorker when the named region does not
	// exist yet, or exists but the shepherd has not finished initializing
	// it.
	ErrNotFound = errors.New("registry: shared region not found")
	// ErrIO wraps an OS-level failure opening, truncating, or closing the
	// region file.
	ErrIO = errors.New("registry: I/O failure")
	// ErrMapFailed wraps an mmap/munmap failure.
	ErrMapFailed = errors.New("registry: mmap failed")
	// ErrLockInitFailed is returned when the shepherd cannot establish the
	// in-region lock.
	ErrLockInitFailed = errors.New("registry: lock initialization failed")
	// ErrStale names the counter-underflow condition: cleanup called twice
	// or with a spec that does not match a prior map_tasks commit. This
	// package does not return it itself; session.Cleanup detects the
	// condition and returns session.ErrStale.
	ErrStale = errors.New("registry: counters went stale (double cleanup?)")
)

func registryError(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}
