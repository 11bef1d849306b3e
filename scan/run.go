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
	"strings"

	"github.com/jacobsa/parityscan/catalog"
)

// DiskSpec names one configured disk and the root directory its catalog
// should be reconciled against.
type DiskSpec struct {
	Name string
	Root string
}

// Run scans every disk in specs, in the order given (spec.md §5's
// "disks are processed sequentially in the order they appear in the
// configured disk list"), against the matching entry of state.Disks
// (created fresh if this is the first scan of that name). It reports each
// disk's summary and the overall exit line, and applies the empty-disk
// guard (spec.md §4.6) across the whole run before returning.
func (drv *Driver) Run(state *catalog.State, specs []DiskSpec) error {
	var triggered []string
	anyDifference := false

	for _, spec := range specs {
		disk, ok := state.Disks[spec.Name]
		if !ok {
			disk = catalog.NewDiskCatalog(spec.Name)
			state.Disks[spec.Name] = disk
		}

		result, err := drv.ScanDisk(disk, spec.Root, &state.NeedWrite)
		if err != nil {
			return err
		}

		drv.Reporter.Summary(spec.Name, result.Counts)
		if result.Counts.HasDifference() {
			anyDifference = true
		}
		if result.EmptyGuardTriggered {
			triggered = append(triggered, spec.Name)
		}
	}

	if len(triggered) > 0 && !drv.Policy.ForceEmpty {
		sort.Strings(triggered)
		return catalog.NewPolicyViolation("", "",
			"the following disks show only removals or changes with nothing recognized as equal, moved or restored "+
				"(a common symptom of a disk that failed to mount): %s; pass the force-empty flag if this is expected",
			strings.Join(triggered, ", "))
	}

	drv.Reporter.Exit(anyDifference)
	return nil
}
