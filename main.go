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

package main

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"syscall"
)

// Raise the rlimit for number of open files to a sane value: a multi-disk
// scan can easily have as many directories open at once as there are
// concurrently-walked disks times the depth of the tree.
func raiseRlimit() error {
	var rlimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		return fmt.Errorf("Getrlimit: %v", err)
	}

	rlimit.Cur = rlimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		return fmt.Errorf("Setrlimit: %v", err)
	}

	return nil
}

func main() {
	if _, gogcSet := os.LookupEnv("GOGC"); !gogcSet {
		debug.SetGCPercent(25)
	}

	log.SetFlags(log.Lmicroseconds | log.Lshortfile)

	if err := raiseRlimit(); err != nil {
		log.Fatal(err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
