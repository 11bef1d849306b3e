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

// Package config loads and validates the YAML configuration that drives a
// parityscan run: the list of disks to scan and the ambient policy flags
// (order, force flags, logging, metrics). Mirrors comeback/config's
// Job/Excludes shape, rewritten onto viper instead of encoding/json.
package config

import "regexp"

// Disk names one configured disk: where it's rooted on the filesystem and
// which entries under it should never reach the catalog.
type Disk struct {
	// Name identifies this disk in the catalog and in report output. Must
	// be unique among the configured disks.
	Name string

	// Root is the path on the local filesystem that should be scanned.
	Root string

	// FileExcludes and DirExcludes are regexps matched against a path
	// relative to Root. A match drops the entry (and, for a directory,
	// everything under it) from the scan.
	FileExcludes []*regexp.Regexp
	DirExcludes  []*regexp.Regexp

	// ExcludeHidden drops any entry whose base name begins with a dot.
	ExcludeHidden bool
}

// Config is the whole of a parsed configuration file.
type Config struct {
	// Disks is the set of disks to scan, in the order they should be
	// processed (spec.md §5: "disks are processed sequentially in the
	// order they appear in the configured disk list").
	Disks []Disk

	// ContentFile is the path to the gob-encoded catalog state persisted
	// between runs.
	ContentFile string

	// ContentFileName is read from the configuration but not used by the
	// scan: every disk's filter excludes entries whose base name is
	// parityscan.content, whatever this field holds.
	ContentFileName string

	// BlockSize is the parity block size in bytes.
	BlockSize uint64

	// Order selects the deferred-insert sort (spec.md §4.7): one of
	// "physical", "inode", "alpha", "dir".
	Order string

	// ForceZero, ForceEmpty and ClearUndeterminedHash mirror spec.md §6's
	// policy flags.
	ForceZero             bool
	ForceEmpty            bool
	ClearUndeterminedHash bool

	// Verbose and Gui select report.Reporter's two output streams.
	Verbose bool
	Gui     bool

	// ParallelDisks, when set, scans every configured disk concurrently
	// (spec.md §5's "implementations may parallelize across disks"
	// allowance).
	ParallelDisks bool

	// MetricsAddr, if non-empty, serves Prometheus metrics on this address
	// for the duration of the run.
	MetricsAddr string

	// LogFile is the path the rotating log sink writes to. Empty means
	// stderr.
	LogFile string
}
