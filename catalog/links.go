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

// LinkCollection is the path-indexed, ordered home for one disk's symlinks
// and hardlink aliases.
type LinkCollection struct {
	elems list.List
	index map[string]*list.Element
}

func NewLinkCollection() *LinkCollection {
	return &LinkCollection{index: make(map[string]*list.Element)}
}

func (c *LinkCollection) Len() int { return c.elems.Len() }

func (c *LinkCollection) ByPath(sub string) *Link {
	if e, ok := c.index[sub]; ok {
		return e.Value.(*Link)
	}
	return nil
}

func (c *LinkCollection) All() []*Link {
	out := make([]*Link, 0, c.elems.Len())
	for e := c.elems.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Link))
	}
	return out
}

func (c *LinkCollection) Insert(l *Link) error {
	if _, ok := c.index[l.Sub]; ok {
		return fmt.Errorf("catalog: duplicate link sub %q", l.Sub)
	}
	c.index[l.Sub] = c.elems.PushBack(l)
	return nil
}

func (c *LinkCollection) Remove(l *Link) {
	e, ok := c.index[l.Sub]
	if !ok {
		return
	}
	delete(c.index, l.Sub)
	c.elems.Remove(e)
}

// EmptyDirCollection is the path-indexed, ordered home for one disk's
// directories that contain no entries surviving filtering.
type EmptyDirCollection struct {
	elems list.List
	index map[string]*list.Element
}

func NewEmptyDirCollection() *EmptyDirCollection {
	return &EmptyDirCollection{index: make(map[string]*list.Element)}
}

func (c *EmptyDirCollection) Len() int { return c.elems.Len() }

func (c *EmptyDirCollection) ByPath(sub string) *EmptyDir {
	if e, ok := c.index[sub]; ok {
		return e.Value.(*EmptyDir)
	}
	return nil
}

func (c *EmptyDirCollection) All() []*EmptyDir {
	out := make([]*EmptyDir, 0, c.elems.Len())
	for e := c.elems.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*EmptyDir))
	}
	return out
}

func (c *EmptyDirCollection) Insert(d *EmptyDir) error {
	if _, ok := c.index[d.Sub]; ok {
		return fmt.Errorf("catalog: duplicate dir sub %q", d.Sub)
	}
	c.index[d.Sub] = c.elems.PushBack(d)
	return nil
}

func (c *EmptyDirCollection) Remove(d *EmptyDir) {
	e, ok := c.index[d.Sub]
	if !ok {
		return
	}
	delete(c.index, d.Sub)
	c.elems.Remove(e)
}
