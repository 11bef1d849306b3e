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

// Package scan is the Scan Driver (spec.md §4.1, "Scan Driver" ~10%): the
// recursive directory walk and the seven-step per-disk orchestration that
// ties fsadapter, filter, reconcile and parity together, plus the
// deferred-insert sort (§4.7) and the three post-scan sanity gates (§4.6).
package scan

import (
	"fmt"
	"path"

	"github.com/jacobsa/parityscan/catalog"
	"github.com/jacobsa/parityscan/filter"
	"github.com/jacobsa/parityscan/fsadapter"
	"github.com/jacobsa/parityscan/parity"
	"github.com/jacobsa/parityscan/reconcile"
	"github.com/jacobsa/parityscan/report"
)

// Policy carries a disk's scan-time configuration flags (spec.md §4.1's
// input list, plus §4.7's order).
type Policy struct {
	Order                  Order
	ForceZero              bool
	ForceEmpty             bool
	ClearUndeterminateHash bool
	BlockSize              uint64

	// CollectPhysical gates the PhysicalOffset syscall per regular file.
	// Filesystems or orders that never need it (ALPHA, DIR, INODE) can skip
	// the extra syscall entirely rather than pay for an offset nothing
	// sorts by.
	CollectPhysical bool
}

// EnvironmentError wraps an adapter I/O failure (spec.md §7's "Environment
// errors": fatal, path and system-error description, abort).
type EnvironmentError struct {
	Disk string
	Path string
	Err  error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment error on disk %q at %q: %v", e.Disk, e.Path, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

func environmentError(disk, path string, err error) error {
	if err == nil {
		return nil
	}
	return &EnvironmentError{Disk: disk, Path: path, Err: err}
}

// Driver runs the per-disk scan algorithm against one fsadapter.Adapter.
type Driver struct {
	Adapter  fsadapter.Adapter
	Filter   *filter.Filter
	Reporter report.Reporter
	Policy   Policy
}

// New returns a Driver wired to the given adapter, filter and reporter.
func New(adapter fsadapter.Adapter, f *filter.Filter, reporter report.Reporter, policy Policy) *Driver {
	return &Driver{Adapter: adapter, Filter: f, Reporter: reporter, Policy: policy}
}

// Result is one disk's outcome from ScanDisk: its final counts plus
// whether spec.md §4.6's empty-disk guard fired, which Run (not ScanDisk)
// decides whether to treat as fatal.
type Result struct {
	Counts              report.Counts
	EmptyGuardTriggered bool
}

// ScanDisk runs spec.md §4.1's seven steps against disk, rooted at root,
// returning the disk's final counts for the summary line.
func (drv *Driver) ScanDisk(disk *catalog.DiskCatalog, root string, needWrite *bool) (Result, error) {
	// Step 1: inode persistence probe.
	persistent, err := drv.Adapter.HasPersistentInodes(root)
	if err != nil {
		return Result{}, environmentError(disk.Name, root, err)
	}
	if !persistent && !disk.HasNotPersistentInodes {
		*needWrite = true
	}
	disk.HasNotPersistentInodes = !persistent
	if !persistent {
		for _, f := range disk.Files.All() {
			if !f.WithoutInode {
				disk.Files.DropInode(f)
			}
		}
	}

	rootStat, err := drv.Adapter.Lstat(root)
	if err != nil {
		return Result{}, environmentError(disk.Name, root, err)
	}

	// Step 2: clear PRESENT.
	disk.ClearPresent()

	rec := reconcile.New(disk, reconcile.Policy{
		ForceZero:              drv.Policy.ForceZero,
		ClearUndeterminateHash: drv.Policy.ClearUndeterminateHash,
		BlockSize:              drv.Policy.BlockSize,
	}, needWrite)
	rec.Report = drv.Reporter

	// Step 3: recursive walk.
	if _, err := drv.walkDir(disk, rec, root, "", rootStat.Device); err != nil {
		return Result{}, err
	}

	// Step 4: removal sweep.
	if err := rec.RemovalSweep(); err != nil {
		return Result{}, err
	}

	// Step 5: sort the deferred-insert file list.
	SortFileInserts(rec.FileInsertList, drv.Policy.Order)

	// Step 6: insert files (block allocation), then links, then empty dirs.
	// Links and empty dirs were already inserted into the catalog's
	// indices by the reconciler; they carry no block map state, so there
	// is nothing left to do for them here.
	allocPolicy := parity.Policy{ClearUndeterminateHash: drv.Policy.ClearUndeterminateHash}
	for _, f := range rec.FileInsertList {
		parity.InsertFile(disk, f, allocPolicy)
	}

	// Step 7: sanity gates.
	if err := drv.sanityGates(disk, rec); err != nil {
		return Result{}, err
	}

	return Result{
		Counts: report.Counts{
			Equal:   rec.Counters.Equal,
			Move:    rec.Counters.Move,
			Restore: rec.Counters.Restore,
			Change:  rec.Counters.Change,
			Remove:  rec.Counters.Remove,
			Insert:  rec.Counters.Insert,
		},
		EmptyGuardTriggered: EmptyDiskGuardTriggered(rec.Counters),
	}, nil
}

// walkDir implements spec.md §4.1's scan_dir: it lists dirPath, filters and
// classifies each entry, and recurses into subdirectories. sub is dirPath's
// path relative to the disk root ("" at the root itself). diskDevice is the
// device number of the disk's root, used to refuse crossing mount points.
// It reports whether it processed at least one entry, for the caller's
// empty-dir registration decision.
func (drv *Driver) walkDir(disk *catalog.DiskCatalog, rec *reconcile.Reconciler, dirPath, sub string, diskDevice uint64) (bool, error) {
	rawEntries, err := drv.Adapter.ReadDir(dirPath)
	if err != nil {
		return false, environmentError(disk.Name, dirPath, err)
	}

	type candidate struct {
		name     string
		typ      fsadapter.EntryType
		fullPath string
		sub      string
		stat     fsadapter.Stat
		hasStat  bool
	}

	candidates := make([]candidate, 0, len(rawEntries))
	for _, e := range rawEntries {
		if drv.Filter.ShouldExcludeHidden(e.Name) {
			drv.Reporter.Excluding(disk.Name, path.Join(sub, e.Name))
			continue
		}

		fullPath := path.Join(dirPath, e.Name)
		if drv.Filter.ShouldExcludeContentFile(fullPath) {
			continue
		}

		candidates = append(candidates, candidate{
			name:     e.Name,
			typ:      e.Type,
			fullPath: fullPath,
			sub:      path.Join(sub, e.Name),
		})
	}

	// "If inodes are persistent, sort the buffer by inode ascending"
	// (spec.md §4.1): this needs every candidate's inode up front, so lstat
	// each one before sorting rather than lazily later.
	if !disk.HasNotPersistentInodes {
		for i := range candidates {
			st, err := drv.Adapter.Lstat(candidates[i].fullPath)
			if err != nil {
				return false, environmentError(disk.Name, candidates[i].fullPath, err)
			}
			candidates[i].stat = st
			candidates[i].hasStat = true
		}
		for i := 1; i < len(candidates); i++ {
			for j := i; j > 0 && candidates[j].stat.Inode < candidates[j-1].stat.Inode; j-- {
				candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
			}
		}
	}

	processedAny := false
	for _, c := range candidates {
		switch c.typ {
		case fsadapter.EntryTypeFile:
			if drv.Filter.ShouldExcludeFile(c.sub) {
				drv.Reporter.Excluding(disk.Name, c.sub)
				continue
			}

			st := c.stat
			if !c.hasStat {
				var err error
				st, err = drv.Adapter.Lstat(c.fullPath)
				if err != nil {
					return false, environmentError(disk.Name, c.fullPath, err)
				}
			}

			physical := uint64(0)
			if drv.Policy.CollectPhysical {
				p, err := drv.Adapter.PhysicalOffset(c.fullPath, st)
				if err != nil {
					return false, environmentError(disk.Name, c.fullPath, err)
				}
				if p != fsadapter.FilePhyWithoutOffset {
					physical = p
				}
			}

			if err := rec.ReconcileFile(reconcile.FileStat{
				Sub:       c.sub,
				Inode:     st.Inode,
				Size:      st.Size,
				MtimeSec:  st.Mtime.Unix(),
				MtimeNsec: int64(st.Mtime.Nanosecond()),
				Nlink:     st.Nlink,
				Physical:  physical,
			}); err != nil {
				return false, err
			}
			processedAny = true

		case fsadapter.EntryTypeSymlink:
			target, err := drv.Adapter.Readlink(c.fullPath)
			if err != nil {
				return false, environmentError(disk.Name, c.fullPath, err)
			}
			if err := rec.ReconcileLink(c.sub, target, catalog.LinkKindSymlink); err != nil {
				return false, err
			}
			processedAny = true

		case fsadapter.EntryTypeDirectory:
			if drv.Filter.ShouldExcludeDir(c.sub) {
				drv.Reporter.Excluding(disk.Name, c.sub)
				continue
			}

			st := c.stat
			if !c.hasStat {
				var err error
				st, err = drv.Adapter.Lstat(c.fullPath)
				if err != nil {
					return false, environmentError(disk.Name, c.fullPath, err)
				}
			}
			if st.Device != diskDevice {
				drv.Reporter.Warning(disk.Name, "cross-device mount point at %s, not descending", c.sub)
				continue
			}

			childProcessed, err := drv.walkDir(disk, rec, c.fullPath, c.sub, diskDevice)
			if err != nil {
				return false, err
			}
			if !childProcessed {
				if err := rec.ReconcileEmptyDir(c.sub); err != nil {
					return false, err
				}
			}
			// The directory entry itself counts as processed by this level
			// regardless of what its own recursion found.
			processedAny = true

		default:
			if drv.Filter.ShouldExcludeFile(c.sub) {
				drv.Reporter.Excluding(disk.Name, c.sub)
				continue
			}
			drv.Reporter.Warning(disk.Name, "skipping unsupported entry type at %s", c.sub)
		}
	}

	return processedAny, nil
}
