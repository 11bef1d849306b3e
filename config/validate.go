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

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jacobsa/parityscan/scan"
)

func validateDisk(d *Disk) error {
	if !utf8.Valid([]byte(d.Name)) {
		return fmt.Errorf("disk names must be valid UTF-8")
	}
	if d.Name == "" {
		return fmt.Errorf("disk names must be non-empty")
	}

	if d.Root == "" || !utf8.Valid([]byte(d.Root)) {
		return fmt.Errorf("root must be non-empty valid UTF-8")
	}
	if !filepath.IsAbs(d.Root) {
		return fmt.Errorf("root must be an absolute path")
	}

	return nil
}

// Validate returns an error if the supplied config is invalid in some way:
// duplicate or malformed disk names, non-absolute roots, an unrecognized
// order, or a zero block size.
func Validate(c *Config) error {
	seen := make(map[string]bool, len(c.Disks))
	for i := range c.Disks {
		d := &c.Disks[i]

		if err := validateDisk(d); err != nil {
			return fmt.Errorf("disk %q: %v", d.Name, err)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate disk name %q", d.Name)
		}
		seen[d.Name] = true
	}

	if len(c.Disks) == 0 {
		return fmt.Errorf("at least one disk must be configured")
	}

	if c.BlockSize == 0 {
		return fmt.Errorf("block_size must be non-zero")
	}

	if _, ok := scan.ParseOrder(strings.ToUpper(c.Order)); !ok {
		return fmt.Errorf("order must be one of physical, inode, alpha, dir; got %q", c.Order)
	}

	if c.ContentFile == "" {
		return fmt.Errorf("content_file must be set")
	}

	return nil
}
