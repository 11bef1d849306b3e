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

// Package filter holds the scan's path-filter predicates (spec.md §4,
// component "Filter"): should_exclude_file, should_exclude_dir,
// should_exclude_hidden and should_exclude_content_file. Mirrors
// jacobsa-comeback's config.Job.Excludes ([]*regexp.Regexp matched against
// a path relative to the backed-up root), generalized to the scan's four
// distinct exclusion questions instead of backup's single one.
package filter

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Filter holds the compiled exclusion rules for one configured disk.
type Filter struct {
	// FileExcludes and DirExcludes are matched against a path relative to
	// the disk's root (never the root itself), same convention as
	// comeback's Job.Excludes.
	FileExcludes []*regexp.Regexp
	DirExcludes  []*regexp.Regexp

	// ExcludeHidden, when set, drops any entry whose base name begins with
	// a dot, checked before lstat (scan.c's filter_hidden, checked
	// "even before calling lstat()" to avoid the syscall entirely for
	// something about to be thrown away).
	ExcludeHidden bool

	// ContentFileNames are exact base names (not patterns) to drop before
	// lstat, same early-exit rationale as ExcludeHidden — the catalog file
	// itself sitting inside the scanned tree must never become a tracked
	// entry.
	ContentFileNames []string
}

// ShouldExcludeFile reports whether the regular file at sub (relative to
// the disk root) should be skipped.
func (f *Filter) ShouldExcludeFile(sub string) bool {
	return matchesAny(f.FileExcludes, sub)
}

// ShouldExcludeDir reports whether the directory at sub should be skipped
// (and, per spec.md §4's directory recursion step, not descended into).
func (f *Filter) ShouldExcludeDir(sub string) bool {
	return matchesAny(f.DirExcludes, sub)
}

// ShouldExcludeHidden reports whether name (a bare entry name, not a path)
// should be dropped because it's a dotfile and the disk's policy excludes
// those.
func (f *Filter) ShouldExcludeHidden(name string) bool {
	return f.ExcludeHidden && strings.HasPrefix(name, ".")
}

// ShouldExcludeContentFile reports whether path (the full filesystem path
// of an entry about to be examined, not a sub path) is one of the
// catalog's own persisted content files and must never be scanned as
// ordinary disk content.
func (f *Filter) ShouldExcludeContentFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range f.ContentFileNames {
		if base == name {
			return true
		}
	}
	return false
}

func matchesAny(patterns []*regexp.Regexp, sub string) bool {
	for _, re := range patterns {
		if re.MatchString(sub) {
			return true
		}
	}
	return false
}
