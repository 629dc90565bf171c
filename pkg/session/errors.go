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

import "github.com/pkg/errors"

// ErrStale mirrors registry.ErrStale at the session API boundary: cleanup
// was called twice, or with a spec that does not match a prior map_tasks.
var ErrStale = errors.New("session: counters went stale (double cleanup?)")

// ErrNotCommitted is returned by Cleanup when this handle has not committed
// a spec with MapTasks yet.
var ErrNotCommitted = errors.New("session: no committed spec to clean up")

func sessionError(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}
