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

package parity_test

import (
	"testing"

	"github.com/jacobsa/parityscan/catalog"
	"github.com/jacobsa/parityscan/parity"
	. "github.com/jacobsa/ogletest"
)

func TestAllocator(t *testing.T) { RunTests(t) }

type AllocatorTest struct {
	d *catalog.DiskCatalog
}

func init() { RegisterTestSuite(&AllocatorTest{}) }

func (t *AllocatorTest) SetUp(i *TestInfo) {
	t.d = catalog.NewDiskCatalog("disk1")
}

func hash(b byte) catalog.Hash {
	var h catalog.Hash
	h[0] = b
	return h
}

////////////////////////////////////////////////////////////////////////
// RemoveFile
////////////////////////////////////////////////////////////////////////

// P5-ish: a BLK block's hash is retained verbatim in the resulting
// Deleted-block, regardless of policy.
func (t *AllocatorTest) RemoveFile_BLKBlockRetainsHash() {
	f := &catalog.File{
		Sub: "f",
		Blocks: []catalog.Block{
			{ParityPos: 0, State: catalog.BlockStateBLK, Hash: hash(1)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(f))
	t.d.GrowBlockMap(0)
	t.d.BlockMap[0] = catalog.FileCell{File: f, Index: 0}
	t.d.FirstFreeSlot = 1

	AssertEq(nil, parity.RemoveFile(t.d, f, parity.Policy{}))

	cell, ok := t.d.Cell(0).(catalog.DeletedCell)
	AssertTrue(ok)
	ExpectEq(hash(1), cell.Hash)
	ExpectEq(uint64(0), t.d.FirstFreeSlot)
	ExpectEq(0, t.d.Files.Len())
}

// P6: with clear_undetermined_hash false (the default), a CHG/NEW-origin
// block's hash is zeroed in the resulting Deleted-block.
func (t *AllocatorTest) RemoveFile_CHGBlockZeroedByDefault() {
	f := &catalog.File{
		Sub: "f",
		Blocks: []catalog.Block{
			{ParityPos: 0, State: catalog.BlockStateCHG, Hash: hash(9)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(f))
	t.d.GrowBlockMap(0)
	t.d.BlockMap[0] = catalog.FileCell{File: f, Index: 0}

	AssertEq(nil, parity.RemoveFile(t.d, f, parity.Policy{}))

	cell, ok := t.d.Cell(0).(catalog.DeletedCell)
	AssertTrue(ok)
	ExpectEq(catalog.Hash{}, cell.Hash)
}

// Same as above but for a NEW-origin block.
func (t *AllocatorTest) RemoveFile_NEWBlockZeroedByDefault() {
	f := &catalog.File{
		Sub: "f",
		Blocks: []catalog.Block{
			{ParityPos: 0, State: catalog.BlockStateNEW, Hash: hash(9)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(f))
	t.d.GrowBlockMap(0)
	t.d.BlockMap[0] = catalog.FileCell{File: f, Index: 0}

	AssertEq(nil, parity.RemoveFile(t.d, f, parity.Policy{}))

	cell, ok := t.d.Cell(0).(catalog.DeletedCell)
	AssertTrue(ok)
	ExpectEq(catalog.Hash{}, cell.Hash)
}

// The escape hatch: clear_undetermined_hash set means a CHG/NEW-origin
// block's hash survives into the Deleted-block unzeroed.
func (t *AllocatorTest) RemoveFile_CHGBlockPreservedWhenPolicySet() {
	f := &catalog.File{
		Sub: "f",
		Blocks: []catalog.Block{
			{ParityPos: 0, State: catalog.BlockStateCHG, Hash: hash(9)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(f))
	t.d.GrowBlockMap(0)
	t.d.BlockMap[0] = catalog.FileCell{File: f, Index: 0}

	AssertEq(nil, parity.RemoveFile(t.d, f, parity.Policy{ClearUndeterminateHash: true}))

	cell, ok := t.d.Cell(0).(catalog.DeletedCell)
	AssertTrue(ok)
	ExpectEq(hash(9), cell.Hash)
}

// L3: first_free_slot drops to the lowest freed position, never rises.
func (t *AllocatorTest) RemoveFile_FirstFreeSlotOnlyDecreases() {
	f := &catalog.File{
		Sub: "f",
		Blocks: []catalog.Block{
			{ParityPos: 3, State: catalog.BlockStateBLK, Hash: hash(1)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(f))
	t.d.GrowBlockMap(3)
	t.d.BlockMap[3] = catalog.FileCell{File: f, Index: 0}
	t.d.FirstFreeSlot = 5

	AssertEq(nil, parity.RemoveFile(t.d, f, parity.Policy{}))

	ExpectEq(uint64(3), t.d.FirstFreeSlot)
}

// An internally inconsistent block state (DELETED on a live File) is
// rejected rather than silently misclassified.
func (t *AllocatorTest) RemoveFile_RejectsInconsistentBlockState() {
	f := &catalog.File{
		Sub: "f",
		Blocks: []catalog.Block{
			{ParityPos: 0, State: catalog.BlockStateDELETED, Hash: hash(1)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(f))
	t.d.GrowBlockMap(0)
	t.d.BlockMap[0] = catalog.FileCell{File: f, Index: 0}

	err := parity.RemoveFile(t.d, f, parity.Policy{})
	AssertNe(nil, err)
}

////////////////////////////////////////////////////////////////////////
// InsertFile
////////////////////////////////////////////////////////////////////////

// A brand new file claiming never-touched slots gets NEW blocks.
func (t *AllocatorTest) InsertFile_IntoEmptySlotsIsNEW() {
	f := &catalog.File{
		Sub:    "f",
		Blocks: make([]catalog.Block, 2),
	}
	AssertEq(nil, t.d.Files.Insert(f))

	parity.InsertFile(t.d, f, parity.Policy{})

	ExpectEq(uint64(0), f.Blocks[0].ParityPos)
	ExpectEq(catalog.BlockStateNEW, f.Blocks[0].State)
	ExpectEq(uint64(1), f.Blocks[1].ParityPos)
	ExpectEq(catalog.BlockStateNEW, f.Blocks[1].State)
	ExpectEq(uint64(2), t.d.FirstFreeSlot)

	cell0, ok := t.d.Cell(0).(catalog.FileCell)
	AssertTrue(ok)
	ExpectEq(f, cell0.File)
	ExpectEq(0, cell0.Index)
}

// S4: reinserting a changed file into the slots it just vacated yields CHG
// blocks whose hashes equal the prior BLK-origin hashes exactly, since
// RemoveFile never zeroes a BLK-origin hash and InsertFile carries a
// Deleted-block's hash forward unconditionally.
func (t *AllocatorTest) InsertFile_S4_ChangeAndSlotReuse() {
	old := &catalog.File{
		Sub: "f",
		Blocks: []catalog.Block{
			{ParityPos: 0, State: catalog.BlockStateBLK, Hash: hash(1)},
			{ParityPos: 1, State: catalog.BlockStateBLK, Hash: hash(2)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(old))
	t.d.GrowBlockMap(1)
	t.d.BlockMap[0] = catalog.FileCell{File: old, Index: 0}
	t.d.BlockMap[1] = catalog.FileCell{File: old, Index: 1}
	t.d.FirstFreeSlot = 2

	AssertEq(nil, parity.RemoveFile(t.d, old, parity.Policy{}))

	replacement := &catalog.File{
		Sub:    "f",
		Blocks: make([]catalog.Block, 2),
	}
	AssertEq(nil, t.d.Files.Insert(replacement))
	parity.InsertFile(t.d, replacement, parity.Policy{})

	ExpectEq(uint64(0), replacement.Blocks[0].ParityPos)
	ExpectEq(catalog.BlockStateCHG, replacement.Blocks[0].State)
	ExpectEq(hash(1), replacement.Blocks[0].Hash)

	ExpectEq(uint64(1), replacement.Blocks[1].ParityPos)
	ExpectEq(catalog.BlockStateCHG, replacement.Blocks[1].State)
	ExpectEq(hash(2), replacement.Blocks[1].Hash)

	cell0, ok := t.d.Cell(0).(catalog.FileCell)
	AssertTrue(ok)
	ExpectEq(replacement, cell0.File)
	cell1, ok := t.d.Cell(1).(catalog.FileCell)
	AssertTrue(ok)
	ExpectEq(replacement, cell1.File)
}

// S5: x (2 BLK blocks) is removed, y (1 block) is inserted; y claims only
// slot 0, leaving slot 1 a Deleted-block carrying x's second hash, and
// first_free_slot lands just past the claimed slot.
func (t *AllocatorTest) InsertFile_S5_DeleteThenInsertNew() {
	x := &catalog.File{
		Sub: "x",
		Blocks: []catalog.Block{
			{ParityPos: 0, State: catalog.BlockStateBLK, Hash: hash(1)},
			{ParityPos: 1, State: catalog.BlockStateBLK, Hash: hash(2)},
		},
	}
	AssertEq(nil, t.d.Files.Insert(x))
	t.d.GrowBlockMap(1)
	t.d.BlockMap[0] = catalog.FileCell{File: x, Index: 0}
	t.d.BlockMap[1] = catalog.FileCell{File: x, Index: 1}
	t.d.FirstFreeSlot = 2

	AssertEq(nil, parity.RemoveFile(t.d, x, parity.Policy{}))
	ExpectEq(uint64(0), t.d.FirstFreeSlot)

	y := &catalog.File{
		Sub:    "y",
		Blocks: make([]catalog.Block, 1),
	}
	AssertEq(nil, t.d.Files.Insert(y))
	parity.InsertFile(t.d, y, parity.Policy{})

	ExpectEq(uint64(0), y.Blocks[0].ParityPos)
	ExpectEq(catalog.BlockStateCHG, y.Blocks[0].State)

	cell1, ok := t.d.Cell(1).(catalog.DeletedCell)
	AssertTrue(ok)
	ExpectEq(hash(2), cell1.Hash)

	ExpectEq(uint64(1), t.d.FirstFreeSlot)
}

// Insert skips over still-occupied slots (another live file's block) rather
// than clobbering them, growing the map only as far as needed.
func (t *AllocatorTest) InsertFile_SkipsOccupiedSlots() {
	other := &catalog.File{Sub: "other", Blocks: make([]catalog.Block, 1)}
	AssertEq(nil, t.d.Files.Insert(other))
	t.d.GrowBlockMap(0)
	t.d.BlockMap[0] = catalog.FileCell{File: other, Index: 0}
	t.d.FirstFreeSlot = 0

	f := &catalog.File{Sub: "f", Blocks: make([]catalog.Block, 1)}
	AssertEq(nil, t.d.Files.Insert(f))
	parity.InsertFile(t.d, f, parity.Policy{})

	ExpectEq(uint64(1), f.Blocks[0].ParityPos)
	ExpectEq(catalog.BlockStateNEW, f.Blocks[0].State)
	ExpectEq(uint64(2), t.d.FirstFreeSlot)
}

// A zero-block file (nothing to place) leaves first_free_slot untouched.
func (t *AllocatorTest) InsertFile_ZeroBlocksLeavesCursorAlone() {
	t.d.FirstFreeSlot = 4
	f := &catalog.File{Sub: "empty"}
	AssertEq(nil, t.d.Files.Insert(f))

	parity.InsertFile(t.d, f, parity.Policy{})

	ExpectEq(uint64(4), t.d.FirstFreeSlot)
	ExpectEq(0, len(f.Blocks))
}
