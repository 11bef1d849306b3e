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

// DiskCatalog is one data disk's in-memory state: its three dual/path
// indexed collections, plus the block map metadata that the parity package
// owns the mutation logic for. Exactly one goroutine may touch a given
// DiskCatalog's Files/Links/EmptyDirs at a time (spec.md §5).
type DiskCatalog struct {
	// Name is the disk's configured name, used in log/gui lines.
	Name string

	Files     *FileCollection
	Links     *LinkCollection
	EmptyDirs *EmptyDirCollection

	// BlockMap and FirstFreeSlot are mutated exclusively by
	// package parity; DiskCatalog just carries them so they travel with the
	// rest of a disk's persisted state.
	BlockMap      []Cell
	FirstFreeSlot uint64

	// HasNotPersistentInodes is set at scan start after probing the
	// filesystem (spec.md §4.1 step 1); once true, it disables move
	// detection by clearing the inode index for every file.
	HasNotPersistentInodes bool

	// HasNotReliablePhysical is set post-insert if two files' physical
	// offsets collided under PHYSICAL order (spec.md §4.6).
	HasNotReliablePhysical bool
}

// NewDiskCatalog returns an empty catalog for a freshly configured disk.
func NewDiskCatalog(name string) *DiskCatalog {
	return &DiskCatalog{
		Name:      name,
		Files:     NewFileCollection(),
		Links:     NewLinkCollection(),
		EmptyDirs: NewEmptyDirCollection(),
	}
}

// ClearPresent clears the transient Present flag on every file, link and
// empty dir, as required before a walk begins (spec.md §4.1 step 2). Callers
// may instead do this at load time, as long as it holds before the walk.
func (d *DiskCatalog) ClearPresent() {
	for _, f := range d.Files.All() {
		f.Present = false
	}
	for _, l := range d.Links.All() {
		l.Present = false
	}
	for _, e := range d.EmptyDirs.All() {
		e.Present = false
	}
}

// Cell returns the block map cell at p, or EmptyCell{} if the map hasn't
// grown that far yet.
func (d *DiskCatalog) Cell(p uint64) Cell {
	if p >= uint64(len(d.BlockMap)) {
		return EmptyCell{}
	}
	return d.BlockMap[p]
}

// GrowBlockMap extends the block map with Empty cells so that index p is
// valid.
func (d *DiskCatalog) GrowBlockMap(p uint64) {
	for uint64(len(d.BlockMap)) <= p {
		d.BlockMap = append(d.BlockMap, EmptyCell{})
	}
}
