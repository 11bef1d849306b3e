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
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"testing"
	"time"

	"github.com/jacobsa/parityscan/catalog"
	"github.com/jacobsa/parityscan/filter"
	"github.com/jacobsa/parityscan/fsadapter"
	"github.com/jacobsa/parityscan/report"
	"github.com/jacobsa/parityscan/scan"
	. "github.com/jacobsa/ogletest"
)

func TestDriver(t *testing.T) { RunTests(t) }

const testBlockSize = 64 * 1024

func mustRegexps(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

func renameFakeEntry(f *fsadapter.Fake, dir, oldName, newName string) {
	oldPath := path.Join(dir, oldName)
	newPath := path.Join(dir, newName)

	e := f.Entries[oldPath]
	delete(f.Entries, oldPath)
	f.Entries[newPath] = e

	names := f.Dirs[dir]
	for i, n := range names {
		if n == oldName {
			names[i] = newName
		}
	}
	f.Dirs[dir] = names
}

func removeFakeEntry(f *fsadapter.Fake, dir, name string) {
	delete(f.Entries, path.Join(dir, name))
	names := f.Dirs[dir]
	for i, n := range names {
		if n == name {
			f.Dirs[dir] = append(names[:i], names[i+1:]...)
			return
		}
	}
}

func buildOneFileFS() *fsadapter.Fake {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	f.AddFile("root", "a.txt", fsadapter.Stat{Size: 100, Inode: 10, Nlink: 1, Mtime: time.Unix(1000, 0)})
	return f
}

// addOtherEntry registers a fifo (neither regular file, directory nor
// symlink) at path.Join(parent, name), returning its full path.
func addOtherEntry(f *fsadapter.Fake, parent, name string) string {
	return f.AddFile(parent, name, fsadapter.Stat{Mode: os.ModeNamedPipe, Inode: 40, Nlink: 1})
}

// spyReporter wraps a LogReporter, additionally recording every Excluding
// and Warning call so tests can assert which of the two fired without
// scraping log output.
type spyReporter struct {
	report.Reporter
	excluded []string
	warned   []string
}

func newSpyReporter() *spyReporter {
	return &spyReporter{Reporter: report.NewWriterLogReporter(io.Discard, false, nil)}
}

func (s *spyReporter) Excluding(disk, sub string) {
	s.excluded = append(s.excluded, sub)
	s.Reporter.Excluding(disk, sub)
}

func (s *spyReporter) Warning(disk, format string, args ...interface{}) {
	s.warned = append(s.warned, fmt.Sprintf(format, args...))
	s.Reporter.Warning(disk, format, args...)
}

////////////////////////////////////////////////////////////////////////
// Driver
////////////////////////////////////////////////////////////////////////

type DriverTest struct {
	fake *fsadapter.Fake
	disk *catalog.DiskCatalog
}

func init() { RegisterTestSuite(&DriverTest{}) }

func (t *DriverTest) SetUp(i *TestInfo) {
	t.fake = buildOneFileFS()
	t.disk = catalog.NewDiskCatalog("disk1")
}

func (t *DriverTest) newDriver(f *filter.Filter, order scan.Order) *scan.Driver {
	if f == nil {
		f = &filter.Filter{}
	}
	return scan.New(t.fake, f, report.NewWriterLogReporter(io.Discard, false, nil), scan.Policy{
		Order:     order,
		BlockSize: testBlockSize,
	})
}

// S1 + L1: the first scan inserts, and an unchanged rescan is idempotent.
func (t *DriverTest) FirstScanInsertsThenRescanIsEqual() {
	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res.Counts.Insert)
	ExpectTrue(needWrite)

	needWrite = false
	res2, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res2.Counts.Equal)
	ExpectEq(0, res2.Counts.Insert)
	ExpectFalse(needWrite)
}

// S2 (move): same inode, same metadata, different path.
func (t *DriverTest) MoveDetection() {
	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)

	renameFakeEntry(t.fake, "root", "a.txt", "b.txt")

	needWrite = false
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res.Counts.Move)
	ExpectTrue(needWrite)
	ExpectTrue(t.disk.Files.ByPath("a.txt") == nil)
	AssertTrue(t.disk.Files.ByPath("b.txt") != nil)
}

// S3 (restore): same path, same metadata, new inode, persistent inodes.
func (t *DriverTest) RestoreDetection() {
	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)

	e := t.fake.Entries["root/a.txt"]
	e.Stat.Inode = 17
	t.fake.Entries["root/a.txt"] = e

	needWrite = false
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res.Counts.Restore)

	restored := t.disk.Files.ByPath("a.txt")
	AssertTrue(restored != nil)
	ExpectEq(uint64(17), restored.Inode)
	ExpectTrue(t.disk.Files.ByInode(10) == nil)
}

// S4 (change + slot reuse): same path and inode, different size.
func (t *DriverTest) ChangeReusesFreedSlot() {
	t.fake.Entries["root/a.txt"] = fsadapter.FakeEntry{
		Stat:           fsadapter.Stat{Size: 2 * testBlockSize, Inode: 10, Nlink: 1, Mtime: time.Unix(1000, 0), Mode: 0644},
		PhysicalOffset: fsadapter.FilePhyWithoutOffset,
	}
	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	before := t.disk.Files.ByPath("a.txt")
	AssertEq(2, len(before.Blocks))
	firstSlot := before.Blocks[0].ParityPos

	t.fake.Entries["root/a.txt"] = fsadapter.FakeEntry{
		Stat:           fsadapter.Stat{Size: 3 * testBlockSize, Inode: 10, Nlink: 1, Mtime: time.Unix(1000, 0), Mode: 0644},
		PhysicalOffset: fsadapter.FilePhyWithoutOffset,
	}

	needWrite = false
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res.Counts.Change)
	ExpectEq(0, res.Counts.Insert)

	after := t.disk.Files.ByPath("a.txt")
	AssertEq(3, len(after.Blocks))
	ExpectEq(firstSlot, after.Blocks[0].ParityPos)
}

// S5 (delete then insert new): the removed file's slot is handed to the
// newly inserted one.
func (t *DriverTest) RemovalThenInsertReusesSlot() {
	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	oldSlot := t.disk.Files.ByPath("a.txt").Blocks[0].ParityPos

	removeFakeEntry(t.fake, "root", "a.txt")
	t.fake.AddFile("root", "x.txt", fsadapter.Stat{Size: 50, Inode: 20, Nlink: 1, Mtime: time.Unix(2000, 0)})

	needWrite = false
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res.Counts.Remove)
	ExpectEq(1, res.Counts.Insert)

	x := t.disk.Files.ByPath("x.txt")
	AssertTrue(x != nil)
	ExpectEq(oldSlot, x.Blocks[0].ParityPos)
}

// S6 (hardlink): a second path sharing an already-seen inode with nlink>1
// is recorded as a link, not a second file.
func (t *DriverTest) HardlinkDetection() {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	st := fsadapter.Stat{Size: 100, Inode: 10, Nlink: 2, Mtime: time.Unix(1000, 0)}
	f.AddFile("root", "a.txt", st)
	f.AddFile("root", "b.txt", st)
	t.fake = f

	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res.Counts.Insert)

	AssertTrue(t.disk.Files.ByPath("a.txt") != nil)
	ExpectTrue(t.disk.Files.ByPath("b.txt") == nil)

	link := t.disk.Links.ByPath("b.txt")
	AssertTrue(link != nil)
	ExpectEq("a.txt", link.LinkTo)
	ExpectEq(catalog.LinkKindHardlink, link.Kind)
}

// B1: a zero-length file gets an empty block vector.
func (t *DriverTest) ZeroLengthFileHasNoBlocks() {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	f.AddFile("root", "empty", fsadapter.Stat{Size: 0, Inode: 5, Nlink: 1, Mtime: time.Unix(1000, 0)})
	t.fake = f

	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)

	got := t.disk.Files.ByPath("empty")
	AssertTrue(got != nil)
	ExpectEq(0, len(got.Blocks))
}

// Empty dirs register and later drop out when they disappear.
func (t *DriverTest) EmptyDirLifecycle() {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	f.AddDir("root", "sub")
	t.fake = f

	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectTrue(t.disk.EmptyDirs.ByPath("sub") != nil)
	ExpectFalse(res.Counts.HasDifference())

	removeFakeEntry(t.fake, "root", "sub")
	delete(t.fake.Dirs, "root/sub")

	needWrite = false
	_, err = drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectTrue(t.disk.EmptyDirs.ByPath("sub") == nil)
}

// A directory on a different device is skipped with a warning, not
// descended into.
func (t *DriverTest) CrossDeviceMountPointIsSkipped() {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	mountPath := f.AddDir("root", "mnt")
	e := f.Entries[mountPath]
	e.Stat.Device = 99
	f.Entries[mountPath] = e
	f.AddFile(mountPath, "hidden-from-us.txt", fsadapter.Stat{Size: 1, Inode: 30, Nlink: 1})
	t.fake = f

	drv := t.newDriver(nil, scan.OrderAlpha)

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)

	ExpectTrue(t.disk.Files.ByPath("mnt/hidden-from-us.txt") == nil)
	ExpectTrue(t.disk.EmptyDirs.ByPath("mnt") == nil)
}

// An unfiltered fifo/socket/device entry gets a warning.
func (t *DriverTest) OtherEntryWarnsWhenNotFiltered() {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	addOtherEntry(f, "root", "fifo")
	t.fake = f

	spy := newSpyReporter()
	drv := scan.New(t.fake, &filter.Filter{}, spy, scan.Policy{Order: scan.OrderAlpha, BlockSize: testBlockSize})

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)

	ExpectEq(1, len(spy.warned))
	ExpectEq(0, len(spy.excluded))
}

// A fifo/socket/device entry the filter matches is silently excluded
// instead of warned about.
func (t *DriverTest) OtherEntryExcludedWhenFiltered() {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	addOtherEntry(f, "root", "fifo")
	t.fake = f

	spy := newSpyReporter()
	drv := scan.New(t.fake, &filter.Filter{FileExcludes: mustRegexps("^fifo$")}, spy,
		scan.Policy{Order: scan.OrderAlpha, BlockSize: testBlockSize})

	var needWrite bool
	_, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)

	ExpectEq(0, len(spy.warned))
	ExpectEq(1, len(spy.excluded))
}

// Excluded files never reach the catalog at all.
func (t *DriverTest) FilterExcludesFile() {
	f := fsadapter.NewFake()
	f.AddDir("", "root")
	f.AddFile("root", "skip.tmp", fsadapter.Stat{Size: 1, Inode: 1, Nlink: 1})
	f.AddFile("root", "keep.txt", fsadapter.Stat{Size: 1, Inode: 2, Nlink: 1})
	t.fake = f

	drv := t.newDriver(&filter.Filter{FileExcludes: mustRegexps(`\.tmp$`)}, scan.OrderAlpha)

	var needWrite bool
	res, err := drv.ScanDisk(t.disk, "root", &needWrite)
	AssertEq(nil, err)
	ExpectEq(1, res.Counts.Insert)
	ExpectTrue(t.disk.Files.ByPath("skip.tmp") == nil)
	ExpectTrue(t.disk.Files.ByPath("keep.txt") != nil)
}
