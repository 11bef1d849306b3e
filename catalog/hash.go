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

import "fmt"

// HashSize is the width of the opaque per-block content hash. The scan
// engine never computes one of these; it only ever copies a hash forward
// from a deleted block or zeroes it per the undetermined-hash policy.
const HashSize = 16

// Hash is the identifier a companion sync phase uses to decide whether
// parity already reflects a block's content. Unlike blob.Score, a Hash is
// not necessarily the actual digest of anything currently on disk: it may be
// "old but trusted" (carried from a BLK block) or a zeroed placeholder
// meaning "undetermined".
type Hash [HashSize]byte

// Hex returns a fixed-width hex rendering, suitable for log lines.
func (h Hash) Hex() string {
	return fmt.Sprintf("%x", [HashSize]byte(h))
}

// Zero reports whether every byte of the hash is zero, i.e. it represents an
// undetermined hash rather than a retained one (I5, B... see parity package).
func (h Hash) Zero() bool {
	return h == Hash{}
}
