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
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// State is the full persisted content file: every configured disk's
// catalog, plus the dirty bit that spec.md §6 calls "need_write" — set true
// by any mutation that changes persisted state (rename, kind/linkto change,
// inode change, mtime_nsec upgrade, insert, delete).
type State struct {
	Disks     map[string]*DiskCatalog
	NeedWrite bool
}

// NewState returns a fresh, empty multi-disk state.
func NewState() *State {
	return &State{Disks: make(map[string]*DiskCatalog)}
}

// gobDiskCatalog is the on-disk shape of a DiskCatalog: gob can't encode the
// FileCollection/LinkCollection/EmptyDirCollection's private container/list
// and map fields directly, so we flatten to slices on the way out and
// rebuild the indices on the way in, the same trick comeback/state.State
// uses for ScoreMap's interface field.
type gobDiskCatalog struct {
	Name                   string
	Files                  []*File
	Links                  []*Link
	EmptyDirs              []*EmptyDir
	BlockMap               []gobCell
	FirstFreeSlot          uint64
	HasNotPersistentInodes bool
	HasNotReliablePhysical bool
}

type gobCellKind int

const (
	gobCellEmpty gobCellKind = iota
	gobCellFile
	gobCellDeleted
)

// gobCell flattens the Cell union. A FileCell is re-derived after load from
// the owning File's own Blocks, since persisting a pointer is meaningless.
type gobCell struct {
	Kind       gobCellKind
	FileSub    string
	FileIndex  int
	DeletedHash Hash
}

func toGobCatalog(d *DiskCatalog) *gobDiskCatalog {
	g := &gobDiskCatalog{
		Name:                   d.Name,
		Files:                  d.Files.All(),
		Links:                  d.Links.All(),
		EmptyDirs:              d.EmptyDirs.All(),
		FirstFreeSlot:          d.FirstFreeSlot,
		HasNotPersistentInodes: d.HasNotPersistentInodes,
		HasNotReliablePhysical: d.HasNotReliablePhysical,
	}

	g.BlockMap = make([]gobCell, len(d.BlockMap))
	for i, c := range d.BlockMap {
		switch cell := c.(type) {
		case EmptyCell:
			g.BlockMap[i] = gobCell{Kind: gobCellEmpty}
		case FileCell:
			g.BlockMap[i] = gobCell{Kind: gobCellFile, FileSub: cell.File.Sub, FileIndex: cell.Index}
		case DeletedCell:
			g.BlockMap[i] = gobCell{Kind: gobCellDeleted, DeletedHash: cell.Hash}
		}
	}

	return g
}

func fromGobCatalog(g *gobDiskCatalog) (*DiskCatalog, error) {
	d := NewDiskCatalog(g.Name)
	d.FirstFreeSlot = g.FirstFreeSlot
	d.HasNotPersistentInodes = g.HasNotPersistentInodes
	d.HasNotReliablePhysical = g.HasNotReliablePhysical

	bySub := make(map[string]*File, len(g.Files))
	for _, f := range g.Files {
		if err := d.Files.Insert(f); err != nil {
			return nil, fmt.Errorf("loading file %q: %w", f.Sub, err)
		}
		bySub[f.Sub] = f
	}
	for _, l := range g.Links {
		if err := d.Links.Insert(l); err != nil {
			return nil, fmt.Errorf("loading link %q: %w", l.Sub, err)
		}
	}
	for _, e := range g.EmptyDirs {
		if err := d.EmptyDirs.Insert(e); err != nil {
			return nil, fmt.Errorf("loading dir %q: %w", e.Sub, err)
		}
	}

	d.BlockMap = make([]Cell, len(g.BlockMap))
	for i, gc := range g.BlockMap {
		switch gc.Kind {
		case gobCellEmpty:
			d.BlockMap[i] = EmptyCell{}
		case gobCellFile:
			f, ok := bySub[gc.FileSub]
			if !ok {
				return nil, fmt.Errorf("block map cell %d references unknown file %q", i, gc.FileSub)
			}
			d.BlockMap[i] = FileCell{File: f, Index: gc.FileIndex}
		case gobCellDeleted:
			d.BlockMap[i] = DeletedCell{Hash: gc.DeletedHash}
		}
	}

	return d, nil
}

type gobState struct {
	Disks     []*gobDiskCatalog
	NeedWrite bool
}

// LoadState reads a State previously written by SaveState. Clearing Present
// flags after load is the caller's responsibility, per spec.md §4.1 step 2
// (comeback's own state.LoadState has the same division of labor).
func LoadState(r io.Reader) (*State, error) {
	var g gobState
	if err := gob.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}

	s := NewState()
	s.NeedWrite = g.NeedWrite
	for _, gd := range g.Disks {
		d, err := fromGobCatalog(gd)
		if err != nil {
			return nil, err
		}
		s.Disks[d.Name] = d
	}

	return s, nil
}

// SaveState gob-encodes s to w.
func SaveState(w io.Writer, s *State) error {
	g := gobState{NeedWrite: s.NeedWrite}
	for _, d := range s.Disks {
		g.Disks = append(g.Disks, toGobCatalog(d))
	}
	if err := gob.NewEncoder(w).Encode(&g); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return nil
}

// LoadStateFile opens path and loads it, treating a missing file as a fresh,
// empty state rather than an error (comeback's initState does the same).
func LoadStateFile(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("opening state file: %w", err)
	}
	defer f.Close()

	return LoadState(f)
}

// SaveStateFile writes s to a temporary file in the same directory as path,
// then renames it into place, so a crash mid-write never corrupts the
// previous content file (mirrors comeback main.go's saveState).
func SaveStateFile(path string, s *State) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "parityscan_state")
	if err != nil {
		return fmt.Errorf("creating temporary state file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := SaveState(tmp, s); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temporary state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temporary state file: %w", err)
	}

	return nil
}
