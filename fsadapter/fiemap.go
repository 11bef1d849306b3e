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

//go:build linux

package fsadapter

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mirrors <linux/fiemap.h>'s struct fiemap / struct fiemap_extent. There is
// no golang.org/x/sys/unix binding for FIEMAP, so the ioctl buffer is built
// by hand the same way comeback's sys package hand-rolls other syscall
// struct layouts absent from the stdlib.
const (
	fiemapMaxOffset = 0
	fiemapFlagSync  = 0x00000001
	fsIoctlFiemap   = 0xC020660B // _IOWR('f', 11, struct fiemap): size field is the 32-byte header
)

type fiemapExtent struct {
	LogicalOffset  uint64
	PhysicalOffset uint64
	Length         uint64
	_              uint64
	_              uint64
	Flags          uint32
	_              [3]uint32
}

type fiemapRequest struct {
	Start        uint64
	Length       uint64
	Flags        uint32
	Mapped       uint32
	ExtentCount  uint32
	Reserved     uint32
	Extents      [1]fiemapExtent
}

// fiemapFirstExtentOffset returns the physical device offset of f's first
// extent. ok is false if the filesystem doesn't support FIEMAP or the file
// has no allocated extents (e.g. a hole-only sparse file).
func fiemapFirstExtentOffset(f *os.File) (offset uint64, ok bool) {
	req := fiemapRequest{
		Start:       fiemapMaxOffset,
		Length:      ^uint64(0),
		Flags:       fiemapFlagSync,
		ExtentCount: 1,
	}

	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		f.Fd(),
		uintptr(fsIoctlFiemap),
		uintptr(unsafe.Pointer(&req)),
	)
	if errno != 0 {
		return 0, false
	}
	if req.Mapped == 0 {
		return 0, false
	}

	return req.Extents[0].PhysicalOffset, true
}
