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

// Cell is one slot of a disk's parity block map: Empty, a non-owning
// reference to a live file's block, or an owned DeletedBlock retaining a
// hash (spec.md §9 — "FileBlock cells do not own the block ... Deleted
// cells own their content because no file does").
type Cell interface {
	isCell()
}

// EmptyCell marks a parity slot that has never been claimed, or has been
// claimed and then fully vacated (there is no "vacate" operation in this
// design; a deleted block always leaves a DeletedCell behind instead).
type EmptyCell struct{}

func (EmptyCell) isCell() {}

// FileCell is a non-owning reference into a live file's block vector: the
// slot's content is whatever that file's block currently says.
type FileCell struct {
	File  *File
	Index int // index into File.Blocks
}

func (FileCell) isCell() {}

// DeletedCell owns a retained hash for a slot whose file has since been
// removed, so that a later insert into the same slot can carry the prior
// hash forward for sync verification (I5).
type DeletedCell struct {
	Hash Hash
}

func (DeletedCell) isCell() {}

// Occupied reports whether the cell currently references a live file's
// block (the only state the allocator must skip over when scanning forward
// for a free slot, spec.md §4.5).
func Occupied(c Cell) bool {
	_, ok := c.(FileCell)
	return ok
}
