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
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jacobsa/parityscan/catalog"
	"github.com/jacobsa/parityscan/config"
	"github.com/jacobsa/parityscan/filter"
	"github.com/jacobsa/parityscan/fsadapter"
	"github.com/jacobsa/parityscan/report"
	"github.com/jacobsa/parityscan/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every configured disk and reconcile its catalog against live filesystem state.",
	RunE:  runScan,
}

func init() {
	flags := scanCmd.Flags()
	flags.String("config", "", "Path to the YAML configuration file.")
	flags.Bool("verbose", false, "Log every classified entry, not just warnings and summaries.")
	flags.Bool("gui", false, "Emit machine-parseable scan:/summary: lines alongside the log.")
	flags.Bool("force-zero", false, "Proceed even if a previously non-empty file is now reported with zero size.")
	flags.Bool("force-empty", false, "Proceed even if a disk shows only removals or changes with nothing equal, moved or restored.")
	flags.Bool("clear-undetermined-hash", false, "Keep the hash of a deleted block whose parity state is undetermined (CHG/NEW) instead of zeroing it.")
	flags.String("force-order", "", "Override the configured block-allocation order: physical, inode, alpha or dir.")
	flags.Bool("parallel-disks", false, "Scan configured disks concurrently instead of sequentially.")
	flags.String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9402. Empty disables the server.")
	scanCmd.MarkFlagRequired("config")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := config.Parse(data, v)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Flags override file settings for the handful of fields a config file
	// and the command line both speak to.
	if v.GetBool("verbose") {
		cfg.Verbose = true
	}
	if v.GetBool("gui") {
		cfg.Gui = true
	}
	if v.GetBool("force-zero") {
		cfg.ForceZero = true
	}
	if v.GetBool("force-empty") {
		cfg.ForceEmpty = true
	}
	if v.GetBool("clear-undetermined-hash") {
		cfg.ClearUndeterminedHash = true
	}
	if v.GetBool("parallel-disks") {
		cfg.ParallelDisks = true
	}
	if order := v.GetString("force-order"); order != "" {
		cfg.Order = order
	}
	if addr := v.GetString("metrics-addr"); addr != "" {
		cfg.MetricsAddr = addr
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func buildReporter(cfg *config.Config) report.Reporter {
	var base report.Reporter
	if cfg.LogFile != "" {
		base = report.NewFileLogReporter(cfg.LogFile, cfg.Verbose, guiWriter(cfg))
	} else {
		base = report.NewWriterLogReporter(os.Stderr, cfg.Verbose, guiWriter(cfg))
	}

	if cfg.MetricsAddr == "" {
		return base
	}

	metrics := report.NewMetricsReporter(base, prometheus.DefaultRegisterer)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			fmt.Fprintf(os.Stderr, "metrics server on %s: %v\n", cfg.MetricsAddr, err)
		}
	}()

	return metrics
}

func guiWriter(cfg *config.Config) io.Writer {
	if !cfg.Gui {
		return nil
	}
	return os.Stdout
}

func buildDriver(d config.Disk, reporter report.Reporter, policy scan.Policy) *scan.Driver {
	f := &filter.Filter{
		FileExcludes:     d.FileExcludes,
		DirExcludes:      d.DirExcludes,
		ExcludeHidden:    d.ExcludeHidden,
		ContentFileNames: []string{"parityscan.content"},
	}
	return scan.New(fsadapter.New(), f, reporter, policy)
}

func runScan(cmd *cobra.Command, args []string) error {
	runID := uuid.NewString()

	var stopProfile func()
	if fProfile {
		var err error
		stopProfile, err = startProfiling()
		if err != nil {
			return fmt.Errorf("starting profile: %w", err)
		}
		defer stopProfile()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	order, ok := scan.ParseOrder(strings.ToUpper(cfg.Order))
	if !ok {
		return fmt.Errorf("unrecognized order %q", cfg.Order)
	}

	policy := scan.Policy{
		Order:                  order,
		ForceZero:              cfg.ForceZero,
		ForceEmpty:             cfg.ForceEmpty,
		ClearUndeterminateHash: cfg.ClearUndeterminedHash,
		BlockSize:              cfg.BlockSize,
		CollectPhysical:        order == scan.OrderPhysical,
	}

	state, err := catalog.LoadStateFile(cfg.ContentFile)
	if err != nil {
		return fmt.Errorf("loading content file %q: %w", cfg.ContentFile, err)
	}

	reporter := buildReporter(cfg)

	if cfg.ParallelDisks {
		err = runParallel(cfg, state, reporter, policy, runID)
	} else {
		err = runSequential(cfg, state, reporter, policy)
	}

	if err == nil && state.NeedWrite {
		if saveErr := catalog.SaveStateFile(cfg.ContentFile, state); saveErr != nil {
			err = fmt.Errorf("saving content file %q: %w", cfg.ContentFile, saveErr)
		}
	}

	return err
}

// runSequential scans every configured disk in order, one Driver per disk
// since each disk carries its own filter. It aggregates the cross-disk
// empty-disk guard and the overall exit summary itself, matching the
// contract scan.Driver.Run applies when a single filter covers every disk.
func runSequential(cfg *config.Config, state *catalog.State, reporter report.Reporter, policy scan.Policy) error {
	specs := make([]scan.DiskSpec, 0, len(cfg.Disks))
	drivers := make(map[string]*scan.Driver, len(cfg.Disks))
	for _, d := range cfg.Disks {
		specs = append(specs, scan.DiskSpec{Name: d.Name, Root: d.Root})
		drivers[d.Name] = buildDriver(d, reporter, policy)
	}

	// Driver.Run scans every disk through one Driver and so one filter;
	// since each disk needs its own filter, call each disk's own
	// Driver.ScanDisk directly and aggregate the empty-disk guard across
	// all of them here, matching the multi-disk contract Driver.Run
	// implements for a single filter.
	var triggered []string
	anyDifference := false
	for _, spec := range specs {
		drv := drivers[spec.Name]
		disk, ok := state.Disks[spec.Name]
		if !ok {
			disk = catalog.NewDiskCatalog(spec.Name)
			state.Disks[spec.Name] = disk
		}

		result, err := drv.ScanDisk(disk, spec.Root, &state.NeedWrite)
		if err != nil {
			return err
		}

		reporter.Summary(spec.Name, result.Counts)
		if result.Counts.HasDifference() {
			anyDifference = true
		}
		if result.EmptyGuardTriggered {
			triggered = append(triggered, spec.Name)
		}
	}

	if len(triggered) > 0 && !policy.ForceEmpty {
		return catalog.NewPolicyViolation("", "",
			"the following disks show only removals or changes with nothing recognized as equal, moved or restored "+
				"(a common symptom of a disk that failed to mount): %s; pass --force-empty if this is expected",
			strings.Join(triggered, ", "))
	}

	reporter.Exit(anyDifference)
	return nil
}

// runParallel scans every configured disk concurrently, one goroutine per
// disk (spec.md's allowance that "implementations may parallelize across
// disks" as long as each disk's catalog stays single-owner within its own
// goroutine). The empty-disk guard and exit summary are still applied once,
// after every disk has finished, to match the sequential path's semantics.
func runParallel(cfg *config.Config, state *catalog.State, reporter report.Reporter, policy scan.Policy, runID string) error {
	type outcome struct {
		name   string
		counts report.Counts
		empty  bool
	}

	results := make([]outcome, len(cfg.Disks))
	needWrites := make([]bool, len(cfg.Disks))

	var g errgroup.Group
	for i, d := range cfg.Disks {
		i, d := i, d

		disk, ok := state.Disks[d.Name]
		if !ok {
			disk = catalog.NewDiskCatalog(d.Name)
			state.Disks[d.Name] = disk
		}

		g.Go(func() error {
			reporter.Warning(d.Name, "run %s: scanning concurrently", runID)

			drv := buildDriver(d, reporter, policy)
			result, err := drv.ScanDisk(disk, d.Root, &needWrites[i])
			if err != nil {
				return err
			}

			results[i] = outcome{name: d.Name, counts: result.Counts, empty: result.EmptyGuardTriggered}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, nw := range needWrites {
		if nw {
			state.NeedWrite = true
		}
	}

	var triggered []string
	anyDifference := false
	for _, r := range results {
		reporter.Summary(r.name, r.counts)
		if r.counts.HasDifference() {
			anyDifference = true
		}
		if r.empty {
			triggered = append(triggered, r.name)
		}
	}

	if len(triggered) > 0 && !policy.ForceEmpty {
		return catalog.NewPolicyViolation("", "",
			"the following disks show only removals or changes with nothing recognized as equal, moved or restored "+
				"(a common symptom of a disk that failed to mount): %s; pass --force-empty if this is expected",
			strings.Join(triggered, ", "))
	}

	reporter.Exit(anyDifference)
	return nil
}
