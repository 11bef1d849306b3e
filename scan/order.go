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

package scan

import (
	"sort"

	"github.com/jacobsa/parityscan/catalog"
)

// Order selects how the deferred-insert list is sorted before slot
// assignment (spec.md §4.7).
type Order int

const (
	OrderPhysical Order = iota
	OrderInode
	OrderAlpha
	OrderDir
)

func (o Order) String() string {
	switch o {
	case OrderPhysical:
		return "PHYSICAL"
	case OrderInode:
		return "INODE"
	case OrderAlpha:
		return "ALPHA"
	case OrderDir:
		return "DIR"
	default:
		return "UNKNOWN"
	}
}

// ParseOrder maps a configuration string to an Order, for config/CLI flag
// parsing.
func ParseOrder(s string) (Order, bool) {
	switch s {
	case "PHYSICAL":
		return OrderPhysical, true
	case "INODE":
		return OrderInode, true
	case "ALPHA":
		return OrderAlpha, true
	case "DIR":
		return OrderDir, true
	default:
		return 0, false
	}
}

// SortFileInserts stably sorts files (the deferred-insert list) according
// to order. DIR leaves traversal order untouched, since that's already
// the order the slice was built in.
func SortFileInserts(files []*catalog.File, order Order) {
	switch order {
	case OrderPhysical:
		sort.SliceStable(files, func(i, j int) bool { return files[i].Physical < files[j].Physical })
	case OrderInode:
		sort.SliceStable(files, func(i, j int) bool { return files[i].Inode < files[j].Inode })
	case OrderAlpha:
		sort.SliceStable(files, func(i, j int) bool { return files[i].Sub < files[j].Sub })
	case OrderDir:
		// Traversal order, already the slice's natural order.
	}
}
