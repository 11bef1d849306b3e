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
	"os/signal"
	"reflect"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
)

func writeMemProfile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Create: %v", err)
	}

	defer func() {
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
	}()

	if err = pprof.Lookup("heap").WriteTo(f, 0); err != nil {
		return fmt.Errorf("WriteTo: %v", err)
	}

	return nil
}

// startProfiling begins CPU profiling to /tmp/cpu.pprof, returning a stop
// function the caller should defer. A long scan over millions of files is
// exactly the kind of run worth capturing a profile of.
func startProfiling() (stop func(), err error) {
	f, err := os.Create("/tmp/cpu.pprof")
	if err != nil {
		return nil, fmt.Errorf("Create: %v", err)
	}

	pprof.StartCPUProfile(f)
	return func() {
		pprof.StopCPUProfile()
		f.Close()
		runtime.GC() // up to date heap info for the profile below, cf. https://goo.gl/aXVQfL
		if err := writeMemProfile("/tmp/mem.pprof"); err != nil {
			log.Printf("writing mem profile: %v", err)
		}
	}, nil
}

func init() {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGUSR1)

		for range c {
			var ms runtime.MemStats

			runtime.ReadMemStats(&ms)
			log.Printf("Pre-GC mem stats:\n%s", formatMemStats(&ms))

			runtime.GC()

			runtime.ReadMemStats(&ms)
			log.Printf("Post-GC mem stats:\n%s", formatMemStats(&ms))

			const path = "/tmp/mem.pprof"
			if err := writeMemProfile(path); err != nil {
				log.Printf("Error writing profile: %v", err)
			} else {
				log.Printf("Profile written to %s", path)
			}
		}
	}()
}

func formatMemStats(ms *runtime.MemStats) string {
	fields := []string{
		"Alloc",
		"TotalAlloc",
		"Sys",
		"HeapAlloc",
		"HeapSys",
		"HeapIdle",
		"HeapInuse",
		"HeapReleased",
	}

	var lines []string
	v := reflect.ValueOf(*ms)
	for _, f := range fields {
		fv := v.FieldByName(f)
		if !fv.IsValid() {
			panic(fmt.Sprintf("bad field: %q", f))
		}

		lines = append(lines, fmt.Sprintf("  %12s: %s", f, formatBytes(fv.Uint())))
	}

	return strings.Join(lines, "\n")
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}

	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
