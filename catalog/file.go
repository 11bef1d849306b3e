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

// InvalidMtimeNsec is the sentinel stored in File.MtimeNsec for entries
// persisted by a catalog version that predated sub-second timestamps. Any
// observed value is accepted without triggering a change classification;
// the first observation after upgrade replaces it (B2).
const InvalidMtimeNsec = -1

// BlockState records what a block's position in the parity block map is
// known to hold.
type BlockState int

const (
	// BlockStateBLK means parity still reflects this block's content.
	BlockStateBLK BlockState = iota
	// BlockStateCHG means this slot previously held a different, possibly
	// still-parity-backed block; the hash carried forward is unverified.
	BlockStateCHG
	// BlockStateNEW means the slot was empty before this block claimed it;
	// there is no previous content to speak of.
	BlockStateNEW
	// BlockStateDELETED is never assigned by the scan: a removed block
	// lives on in the block map as a DeletedCell, not as a Block, and
	// parity.RemoveFile rejects a live block found in this state.
	BlockStateDELETED
)

func (s BlockState) String() string {
	switch s {
	case BlockStateBLK:
		return "BLK"
	case BlockStateCHG:
		return "CHG"
	case BlockStateNEW:
		return "NEW"
	case BlockStateDELETED:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Block is one block_size-sized chunk of a file's content, as tracked by the
// parity block map.
type Block struct {
	// ParityPos is the slot in the disk's block map this block occupies.
	ParityPos uint64

	State BlockState

	Hash Hash
}

// File is the catalog's record of one regular file previously observed on a
// disk. Blocks always has length ceil(Size / blockSize), 0 for an empty
// file (the reconcile package sizes the vector when it creates a File).
type File struct {
	Sub string

	Size uint64

	MtimeSec  int64
	MtimeNsec int64 // InvalidMtimeNsec permitted, see above.

	// Inode is 0 when WithoutInode is set: the disk's inode numbers are not
	// persistent across remount, so this file is deliberately excluded from
	// inode-based lookup (spec.md §4.1 step 1).
	Inode        uint64
	WithoutInode bool

	// Physical is the on-device byte offset reported by the filesystem
	// adapter, or 0 ("no offset") when unavailable.
	Physical uint64

	Blocks []Block

	// Present is a transient per-scan mark; anything left false after the
	// walk is swept away (removal sweep, spec.md §4.1 step 4).
	Present bool
}

// LinkKind distinguishes a true symlink from a hardlink alias recorded for
// bookkeeping (the scan never stores hardlinked file content twice).
type LinkKind int

const (
	LinkKindSymlink LinkKind = iota
	LinkKindHardlink
)

func (k LinkKind) String() string {
	if k == LinkKindHardlink {
		return "hardlink"
	}
	return "symlink"
}

// Link is the catalog's record of a symlink or a hardlink alias.
type Link struct {
	Sub     string
	LinkTo  string
	Kind    LinkKind
	Present bool
}

// EmptyDir is the catalog's record of a directory that contained no entries
// surviving filtering, recorded purely so the tool can notice its removal.
type EmptyDir struct {
	Sub     string
	Present bool
}
