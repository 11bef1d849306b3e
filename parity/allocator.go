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

// Package parity owns the per-disk parity block map: which logical slot
// each file block occupies, and the rules (spec.md §4.5) for reusing slots
// freed by deletions while preserving or clearing the prior hash.
package parity

import (
	"fmt"

	"github.com/jacobsa/parityscan/catalog"
)

// Policy carries the flags the allocator needs that don't belong on a
// DiskCatalog (they're process-wide, not per-disk persisted state).
type Policy struct {
	// ClearUndeterminateHash, when set, keeps a deleted CHG/NEW block's hash
	// instead of zeroing it (I5's escape hatch). BLK-origin hashes are kept
	// either way.
	ClearUndeterminateHash bool
}

// RemoveFile frees every block of f, leaving a DeletedCell behind in each of
// its slots so a later insert can carry the hash forward, and de-indexes f
// from the catalog entirely (spec.md §4.5 "Delete path").
func RemoveFile(d *catalog.DiskCatalog, f *catalog.File, p Policy) error {
	for i := range f.Blocks {
		b := &f.Blocks[i]
		pos := b.ParityPos

		if pos < d.FirstFreeSlot {
			d.FirstFreeSlot = pos
		}

		hash := b.Hash
		switch b.State {
		case catalog.BlockStateBLK:
			// Parity still reflects this content; keep the hash as "old but
			// trusted".
		case catalog.BlockStateCHG, catalog.BlockStateNEW:
			if !p.ClearUndeterminateHash {
				hash = catalog.Hash{}
			}
		default:
			return fmt.Errorf(
				"parity: internal state inconsistency removing block %d of %q: state %v",
				pos, f.Sub, b.State)
		}

		d.GrowBlockMap(pos)
		d.BlockMap[pos] = catalog.DeletedCell{Hash: hash}
	}

	d.Files.Remove(f)
	return nil
}

// InsertFile claims parity slots for every block of f, starting from the
// catalog's first-free-slot cursor, preferring slots freed earlier in this
// same scan over growing the map (spec.md §4.5 "Insert path"). f must
// already be indexed in the catalog (by Files.Insert) before calling this;
// InsertFile only assigns block positions.
func InsertFile(d *catalog.DiskCatalog, f *catalog.File, p Policy) {
	pos := d.FirstFreeSlot

	for i := range f.Blocks {
		for pos < uint64(len(d.BlockMap)) && catalog.Occupied(d.BlockMap[pos]) {
			pos++
		}
		d.GrowBlockMap(pos)

		b := &f.Blocks[i]
		b.ParityPos = pos

		switch cell := d.BlockMap[pos].(type) {
		case catalog.EmptyCell:
			b.State = catalog.BlockStateNEW
		case catalog.DeletedCell:
			// The deleted cell's hash was already resolved against the
			// undetermined-hash policy when it was produced (RemoveFile
			// above): zeroed if it came from an indeterminate CHG/NEW block
			// and the policy wasn't overridden, left intact if it came from
			// a trusted BLK block. Carry it forward as-is; this slot's new
			// block starts life as CHG either way, since parity hasn't been
			// recomputed for it yet.
			b.State = catalog.BlockStateCHG
			b.Hash = cell.Hash
		case catalog.FileCell:
			// Can't happen: the scan loop above only stops at a non-occupied
			// slot.
			panic(fmt.Sprintf("parity: slot %d unexpectedly occupied during insert", pos))
		}

		d.BlockMap[pos] = catalog.FileCell{File: f, Index: i}
		pos++
	}

	if len(f.Blocks) > 0 {
		d.FirstFreeSlot = pos
	}
}
