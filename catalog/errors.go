// Copyright 2012 Aaron Jacobs. All Rights Reserved.
// Author: aaronjjacobs@gmail.com (Aaron Jacobs)
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

package catalog

import "fmt"

// InternalInconsistencyError indicates that a presence flag or an index
// lookup contradicted one of the invariants in I1-I5. These mean a bug or a
// corrupt catalog; there is no safe recovery, so callers should abort rather
// than attempt to continue (spec.md §7).
type InternalInconsistencyError struct {
	Disk string
	Sub  string
	Msg  string
}

func (e *InternalInconsistencyError) Error() string {
	return fmt.Sprintf("internal inconsistency on disk %q for %q: %s", e.Disk, e.Sub, e.Msg)
}

// NewInconsistency builds an InternalInconsistencyError, formatting msg the
// way fmt.Errorf does.
func NewInconsistency(disk, sub, format string, args ...interface{}) error {
	return &InternalInconsistencyError{Disk: disk, Sub: sub, Msg: fmt.Sprintf(format, args...)}
}

// PolicyViolationError indicates a condition spec.md §7 treats as fatal
// unless the matching force_* policy flag is set (the zero-size guard, the
// empty-disk guard). Unlike InternalInconsistencyError this isn't a sign of
// a bug: it's the scan refusing to proceed without explicit operator
// confirmation.
type PolicyViolationError struct {
	Disk string
	Sub  string
	Msg  string
}

func (e *PolicyViolationError) Error() string {
	if e.Sub == "" {
		return fmt.Sprintf("policy violation on disk %q: %s", e.Disk, e.Msg)
	}
	return fmt.Sprintf("policy violation on disk %q for %q: %s", e.Disk, e.Sub, e.Msg)
}

// NewPolicyViolation builds a PolicyViolationError.
func NewPolicyViolation(disk, sub, format string, args ...interface{}) error {
	return &PolicyViolationError{Disk: disk, Sub: sub, Msg: fmt.Sprintf(format, args...)}
}
