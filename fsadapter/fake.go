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

package fsadapter

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// FakeEntry is one path's worth of state in a Fake filesystem tree.
type FakeEntry struct {
	Stat           Stat
	LinkTarget     string // only meaningful when Stat.Mode has ModeSymlink set
	PhysicalOffset uint64 // FilePhyWithoutOffset if unset
}

// Fake is a hand-written in-memory Adapter, used in place of an
// oglemock-generated mock: this package's callers exercise control flow
// (walk order, reclassification, sanity gates) that's far more readable to
// drive with a literal directory tree than with expectation scripts.
type Fake struct {
	// Dirs maps a directory's path to the names of its children.
	Dirs map[string][]string

	// Entries maps every path (file, dir, or symlink) to its metadata.
	Entries map[string]FakeEntry

	persistentInodes bool
}

// NewFake returns an empty fake filesystem. Callers populate Dirs and
// Entries directly, then set PersistentInodes if the scenario calls for
// it (the default matches the common case).
func NewFake() *Fake {
	return &Fake{
		Dirs:             make(map[string][]string),
		Entries:          make(map[string]FakeEntry),
		persistentInodes: true,
	}
}

// SetPersistentInodes configures what HasPersistentInodes reports.
func (f *Fake) SetPersistentInodes(v bool) {
	f.persistentInodes = v
}

// AddDir registers dirpath as a directory (creating it if this is the
// first mention) and, unless parent and name are both empty, links it into
// parent's child list ("" is the parent of a top-level directory).
func (f *Fake) AddDir(parent, name string) string {
	p := path.Join(parent, name)
	if _, ok := f.Dirs[p]; !ok {
		f.Dirs[p] = nil
	}
	f.Entries[p] = FakeEntry{Stat: Stat{Mode: fs.ModeDir}, PhysicalOffset: FilePhyWithoutOffset}
	if parent != "" || name != "" {
		f.Dirs[parent] = append(f.Dirs[parent], name)
	}
	return p
}

// AddFile registers a regular file at path.Join(parent, name) with the
// given stat fields, and returns its full path.
func (f *Fake) AddFile(parent, name string, st Stat) string {
	p := path.Join(parent, name)
	f.Dirs[parent] = append(f.Dirs[parent], name)
	if st.Mode == 0 {
		st.Mode = 0644
	}
	f.Entries[p] = FakeEntry{Stat: st, PhysicalOffset: FilePhyWithoutOffset}
	return p
}

// AddSymlink registers a symlink at path.Join(parent, name) pointing at
// target.
func (f *Fake) AddSymlink(parent, name, target string) string {
	p := path.Join(parent, name)
	f.Dirs[parent] = append(f.Dirs[parent], name)
	f.Entries[p] = FakeEntry{
		Stat:           Stat{Mode: fs.ModeSymlink},
		LinkTarget:     target,
		PhysicalOffset: FilePhyWithoutOffset,
	}
	return p
}

// SetPhysicalOffset overrides the physical offset reported for an
// already-registered path.
func (f *Fake) SetPhysicalOffset(p string, offset uint64) {
	e := f.Entries[p]
	e.PhysicalOffset = offset
	f.Entries[p] = e
}

func (f *Fake) ReadDir(dirpath string) ([]DirEntry, error) {
	names, ok := f.Dirs[dirpath]
	if !ok {
		return nil, fmt.Errorf("fake fsadapter: no such directory %q", dirpath)
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	entries := make([]DirEntry, 0, len(sorted))
	for _, name := range sorted {
		childPath := path.Join(dirpath, name)
		st, ok := f.Entries[childPath]
		if !ok {
			return nil, fmt.Errorf("fake fsadapter: %q listed but has no entry", childPath)
		}
		entries = append(entries, DirEntry{Name: name, Type: entryTypeFromFakeMode(st.Stat.Mode)})
	}

	return entries, nil
}

func entryTypeFromFakeMode(mode fs.FileMode) EntryType {
	switch {
	case mode.IsRegular():
		return EntryTypeFile
	case mode.IsDir():
		return EntryTypeDirectory
	case mode&fs.ModeSymlink != 0:
		return EntryTypeSymlink
	default:
		return EntryTypeOther
	}
}

func (f *Fake) Lstat(p string) (Stat, error) {
	e, ok := f.Entries[p]
	if !ok {
		return Stat{}, fmt.Errorf("fake fsadapter: lstat: no such path %q", p)
	}
	return e.Stat, nil
}

func (f *Fake) Readlink(p string) (string, error) {
	e, ok := f.Entries[p]
	if !ok || e.Stat.Mode&fs.ModeSymlink == 0 {
		return "", fmt.Errorf("fake fsadapter: readlink: not a symlink %q", p)
	}
	return e.LinkTarget, nil
}

func (f *Fake) PhysicalOffset(p string, st Stat) (uint64, error) {
	e, ok := f.Entries[p]
	if !ok {
		return FilePhyWithoutOffset, fmt.Errorf("fake fsadapter: physical offset: no such path %q", p)
	}
	return e.PhysicalOffset, nil
}

func (f *Fake) HasPersistentInodes(dir string) (bool, error) {
	return f.persistentInodes, nil
}

var _ Adapter = (*Fake)(nil)
