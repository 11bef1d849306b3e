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
	"github.com/jacobsa/parityscan/catalog"
	"github.com/jacobsa/parityscan/reconcile"
)

// EmptyDiskGuardTriggered reports whether a disk's counters match spec.md
// §4.6's empty-disk guard: every surviving entry looks new or gone, with
// nothing recognized from the prior catalog at all. This is the classic
// "filesystem failed to mount, tool sees an empty directory" failure mode;
// left unchecked it would retire every block's parity as removed. Run, not
// ScanDisk, decides whether this is fatal, since the guard's message names
// every affected disk across the whole configured set.
func EmptyDiskGuardTriggered(c reconcile.Counters) bool {
	return c.Equal == 0 && c.Move == 0 && c.Restore == 0 && (c.Remove != 0 || c.Change != 0)
}

// checkPhysicalOffsetReliability implements spec.md §4.6's physical-offset
// reliability gate: under PHYSICAL order, two just-inserted files sharing a
// real (non-sentinel) physical offset mean the filesystem's offsets aren't
// a trustworthy sort key this scan.
func (drv *Driver) checkPhysicalOffsetReliability(disk *catalog.DiskCatalog, rec *reconcile.Reconciler) {
	if drv.Policy.Order != OrderPhysical {
		return
	}

	var prev uint64
	havePrev := false
	for _, f := range rec.FileInsertList {
		if f.Physical == 0 {
			havePrev = false
			continue
		}
		if havePrev && f.Physical == prev {
			disk.HasNotReliablePhysical = true
			drv.Reporter.Warning(disk.Name,
				"duplicate physical offset %d among newly inserted files; physical order is not reliable on this disk",
				f.Physical)
			return
		}
		prev = f.Physical
		havePrev = true
	}
}

// checkInodePersistenceWarning implements spec.md §4.6's inode-persistence
// gate.
func (drv *Driver) checkInodePersistenceWarning(disk *catalog.DiskCatalog) {
	if disk.HasNotPersistentInodes {
		drv.Reporter.Warning(disk.Name,
			"inode numbers are not persistent on this filesystem; move detection is degraded on subsequent scans")
	}
}

func (drv *Driver) sanityGates(disk *catalog.DiskCatalog, rec *reconcile.Reconciler) error {
	drv.checkPhysicalOffsetReliability(disk, rec)
	drv.checkInodePersistenceWarning(disk)
	return nil
}
