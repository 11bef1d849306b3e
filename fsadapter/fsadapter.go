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

// Package fsadapter is the filesystem adapter (spec.md §4, component
// "Filesystem Adapter"): enumerates directory entries, produces
// lstat-equivalent metadata, resolves symlink targets, and reports whether
// a disk's inode numbers survive remount. Mirrors the operation split of
// jacobsa-comeback's fs.FileSystem, widened with the stat fields (device,
// inode, nlink, size, mtime with nanoseconds) a parity scan needs that a
// backup tool's directory-entry model didn't carry.
package fsadapter

import (
	"io/fs"
	"time"
)

// EntryType is the kind of a directory entry as reported by ReadDir,
// before any symlink target or physical-offset resolution.
type EntryType int

const (
	EntryTypeFile EntryType = iota
	EntryTypeDirectory
	EntryTypeSymlink
	EntryTypeOther
)

// DirEntry is one entry returned by ReadDir: just enough to decide whether
// to recurse, stat, or skip it, before any additional syscalls are spent.
type DirEntry struct {
	Name string
	Type EntryType
}

// FilePhyWithoutOffset is the sentinel returned by PhysicalOffset when the
// underlying filesystem can't report (or doesn't support) a physical
// on-device offset for a file; spec.md §4's filephy contract says such
// values must never be treated as a duplicate under PHYSICAL order.
const FilePhyWithoutOffset = ^uint64(0)

// Stat is the lstat-equivalent metadata the adapter reports for a single
// filesystem entry. Device/Inode/Nlink are POSIX stat(2) fields; nothing
// here is meaningful for anything but a regular file, a directory, or a
// symlink.
type Stat struct {
	Mode  fs.FileMode
	Size  uint64
	Mtime time.Time

	Device uint64
	Inode  uint64
	Nlink  uint64
}

// Adapter is the filesystem-facing half of a scan, isolated behind an
// interface so the reconcile/scan packages can be tested against an
// in-memory fake instead of a real mounted disk.
type Adapter interface {
	// ReadDir lists dirpath's entries, sorted by name as spec.md's walk
	// requires for reproducible traversal order.
	ReadDir(dirpath string) ([]DirEntry, error)

	// Lstat stats path without following a trailing symlink.
	Lstat(path string) (Stat, error)

	// Readlink resolves a symlink's target text.
	Readlink(path string) (string, error)

	// PhysicalOffset reports the on-device byte offset of path's content,
	// or FilePhyWithoutOffset if the filesystem can't report one. st is
	// the already-obtained Lstat result, since some backends (FIEMAP) need
	// an open file descriptor rather than stat fields, but others can
	// derive the answer from stat alone.
	PhysicalOffset(path string, st Stat) (uint64, error)

	// HasPersistentInodes probes whether the filesystem mounted at dir
	// preserves inode numbers across remounts (spec.md §4.1 step 1's
	// "fsinfo" probe). A filesystem that doesn't (e.g. some network or
	// overlay filesystems) forces move detection off entirely for that
	// disk.
	HasPersistentInodes(dir string) (bool, error)
}
