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

import (
	"container/list"
	"fmt"
)

// FileCollection is the dual-indexed, ordered home for one disk's files: an
// ordered list (preserving load/insert order) plus a
// hash index by inode and one by sub. The disk owns each File; the indices
// hold non-owning handles into the shared list element (design note in
// spec.md §9), the same shape as cache.lruCache's single index.
type FileCollection struct {
	elems     list.List
	byInode   map[uint64]*list.Element
	byPath    map[string]*list.Element
}

func NewFileCollection() *FileCollection {
	return &FileCollection{
		byInode: make(map[uint64]*list.Element),
		byPath:  make(map[string]*list.Element),
	}
}

// Len returns the number of files currently in the collection.
func (c *FileCollection) Len() int {
	return c.elems.Len()
}

// ByInode looks up a file by inode number. Files flagged WithoutInode are
// never findable this way, even if their stale Inode field still matches.
func (c *FileCollection) ByInode(inode uint64) *File {
	if e, ok := c.byInode[inode]; ok {
		return e.Value.(*File)
	}
	return nil
}

// ByPath looks up a file by its sub path.
func (c *FileCollection) ByPath(sub string) *File {
	if e, ok := c.byPath[sub]; ok {
		return e.Value.(*File)
	}
	return nil
}

// All returns every file in insertion/load order. Callers must not mutate
// the returned slice's backing files' Sub or Inode fields directly; use the
// collection's Rename/Reindex methods so the indices stay consistent (I4).
func (c *FileCollection) All() []*File {
	out := make([]*File, 0, c.elems.Len())
	for e := c.elems.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*File))
	}
	return out
}

// Insert adds a new file, indexing it by path always and by inode unless it
// is flagged WithoutInode. It is an error to insert a sub already present,
// or, for a file not flagged WithoutInode, an inode already indexed (zero
// included).
func (c *FileCollection) Insert(f *File) error {
	if _, ok := c.byPath[f.Sub]; ok {
		return fmt.Errorf("catalog: duplicate sub %q", f.Sub)
	}
	if !f.WithoutInode {
		if _, ok := c.byInode[f.Inode]; ok {
			return fmt.Errorf("catalog: duplicate inode %d", f.Inode)
		}
	}

	e := c.elems.PushBack(f)
	c.byPath[f.Sub] = e
	if !f.WithoutInode {
		c.byInode[f.Inode] = e
	}
	return nil
}

// Remove deletes a file from the list and both indices.
func (c *FileCollection) Remove(f *File) {
	e, ok := c.byPath[f.Sub]
	if !ok {
		return
	}

	delete(c.byPath, f.Sub)
	if !f.WithoutInode {
		delete(c.byInode, f.Inode)
	}
	c.elems.Remove(e)
}

// Rename re-indexes f under a new sub path (move detection, spec.md §4.2).
func (c *FileCollection) Rename(f *File, newSub string) {
	e, ok := c.byPath[f.Sub]
	if !ok {
		panic(fmt.Sprintf("catalog: file %q not present in collection", f.Sub))
	}

	delete(c.byPath, f.Sub)
	f.Sub = newSub
	c.byPath[newSub] = e
}

// DropInode removes a file from the inode index and marks it WithoutInode,
// without touching the path index (the "previously used inode" branch of
// spec.md §4.2 step 1).
func (c *FileCollection) DropInode(f *File) {
	if !f.WithoutInode {
		delete(c.byInode, f.Inode)
	}
	f.Inode = 0
	f.WithoutInode = true
}

// RestoreInode re-indexes f by a newly observed inode, clearing
// WithoutInode (spec.md §4.2 step 2, "restore inode from stat.ino").
func (c *FileCollection) RestoreInode(f *File, inode uint64) {
	e, ok := c.byPath[f.Sub]
	if !ok {
		panic(fmt.Sprintf("catalog: file %q not present in collection", f.Sub))
	}

	f.Inode = inode
	f.WithoutInode = false
	c.byInode[inode] = e
}

// Reindex moves a file to a newly observed inode after the disk has already
// indexed it once (spec.md §4.2 step 1, restore/change cases).
func (c *FileCollection) Reindex(f *File, inode uint64) {
	e, ok := c.byPath[f.Sub]
	if !ok {
		panic(fmt.Sprintf("catalog: file %q not present in collection", f.Sub))
	}

	if !f.WithoutInode {
		delete(c.byInode, f.Inode)
	}
	f.Inode = inode
	f.WithoutInode = false
	c.byInode[inode] = e
}
