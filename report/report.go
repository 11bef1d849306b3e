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

// Package report implements spec.md §6's "User-visible output" contract:
// per-entry verbose lines, gui machine-parseable records, and the trailing
// summary block, plus non-fatal warnings; fatal conditions are returned as
// errors by the scan, not reported through this package. Two Reporter
// implementations are provided: a slog/lumberjack-backed one for real runs (logging.go) and a
// Prometheus-counter-backed one for scrapeable metrics (metrics.go).
package report

// Counts mirrors reconcile.Counters without importing it, so this package
// has no dependency on the domain model — only on the numbers it's asked
// to print.
type Counts struct {
	Equal, Move, Restore, Change, Remove, Insert int
}

// Total is the count of live filesystem regular entries that passed
// filtering, per spec.md §8's P4.
func (c Counts) Total() int {
	return c.Equal + c.Move + c.Restore + c.Change + c.Insert
}

// HasDifference reports whether this disk's scan found anything beyond
// pure equality, for spec.md §6's "summary:exit:{equal|diff}" line.
func (c Counts) HasDifference() bool {
	return c.Move > 0 || c.Restore > 0 || c.Change > 0 || c.Insert > 0 || c.Remove > 0
}

// Reporter is the sink for everything a scan run wants to tell the
// operator: per-entry classification lines, warnings, and the final
// summary.
type Reporter interface {
	Equal(disk, sub string)
	Move(disk, oldSub, newSub string)
	Restore(disk, sub string)
	Change(disk, sub string)
	Insert(disk, sub string)
	Remove(disk, sub string)
	Excluding(disk, sub string)

	// Warning reports a non-fatal condition (spec.md §7): unsupported
	// entry kinds, cross-device mount points, duplicate physical offsets,
	// degraded move detection.
	Warning(disk, format string, args ...interface{})

	// Summary reports one disk's final counts after its scan completes.
	Summary(disk string, c Counts)

	// Exit reports the scan's overall outcome once every disk has been
	// summarized (spec.md §6's "summary:exit:{equal|diff}").
	Exit(hasDifference bool)
}
