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

package scan_test

import (
	"io"
	"testing"
	"time"

	"github.com/jacobsa/parityscan/catalog"
	"github.com/jacobsa/parityscan/filter"
	"github.com/jacobsa/parityscan/fsadapter"
	"github.com/jacobsa/parityscan/report"
	"github.com/jacobsa/parityscan/scan"
	. "github.com/jacobsa/ogletest"
)

func TestRun(t *testing.T) { RunTests(t) }

type RunTest struct {
	state *catalog.State
	fake  *fsadapter.Fake
}

func init() { RegisterTestSuite(&RunTest{}) }

// A disk whose catalog already holds a file, scanned against a fake root
// that is empty, sees only a removal: the classic "the disk failed to
// mount and the tool scanned an empty directory" failure mode. Run must
// refuse to proceed unless ForceEmpty is set.
func (t *RunTest) SetUp(i *TestInfo) {
	disk := catalog.NewDiskCatalog("disk1")
	f := &catalog.File{Sub: "a.txt", Size: 100, MtimeSec: 1000, MtimeNsec: catalog.InvalidMtimeNsec, Inode: 10}
	AssertEq(nil, disk.Files.Insert(f))

	t.state = catalog.NewState()
	t.state.Disks["disk1"] = disk

	t.fake = fsadapter.NewFake()
	t.fake.AddDir("", "root")
}

func (t *RunTest) newDriver(policy scan.Policy) *scan.Driver {
	return scan.New(t.fake, &filter.Filter{}, report.NewWriterLogReporter(io.Discard, false, nil), policy)
}

func (t *RunTest) RefusesEmptyDiskGuardByDefault() {
	drv := t.newDriver(scan.Policy{Order: scan.OrderAlpha, BlockSize: testBlockSize})

	err := drv.Run(t.state, []scan.DiskSpec{{Name: "disk1", Root: "root"}})
	AssertNe(nil, err)
	_, ok := err.(*catalog.PolicyViolationError)
	ExpectTrue(ok)
}

func (t *RunTest) AllowsEmptyDiskGuardWhenForced() {
	drv := t.newDriver(scan.Policy{Order: scan.OrderAlpha, BlockSize: testBlockSize, ForceEmpty: true})

	err := drv.Run(t.state, []scan.DiskSpec{{Name: "disk1", Root: "root"}})
	AssertEq(nil, err)
	ExpectTrue(t.state.Disks["disk1"].Files.ByPath("a.txt") == nil)
}

// Run processes multiple disks in order and creates a fresh catalog entry
// for any disk not already present in state.
func (t *RunTest) CreatesCatalogForNewDisk() {
	f := fsadapter.NewFake()
	f.AddDir("", "root1")
	f.AddFile("root1", "a.txt", fsadapter.Stat{Size: 10, Inode: 1, Nlink: 1, Mtime: time.Unix(1, 0)})
	f.AddDir("", "root2")
	f.AddFile("root2", "b.txt", fsadapter.Stat{Size: 10, Inode: 2, Nlink: 1, Mtime: time.Unix(1, 0)})
	t.fake = f
	t.state = catalog.NewState()

	drv := t.newDriver(scan.Policy{Order: scan.OrderAlpha, BlockSize: testBlockSize})

	err := drv.Run(t.state, []scan.DiskSpec{
		{Name: "disk1", Root: "root1"},
		{Name: "disk2", Root: "root2"},
	})
	AssertEq(nil, err)
	AssertTrue(t.state.Disks["disk1"] != nil)
	AssertTrue(t.state.Disks["disk2"] != nil)
	ExpectTrue(t.state.Disks["disk1"].Files.ByPath("a.txt") != nil)
	ExpectTrue(t.state.Disks["disk2"].Files.ByPath("b.txt") != nil)
}
