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
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/viper"
)

// yamlDisk is the wire shape of one entry in the "disks" list, bound
// directly onto mapstructure tags; yamlConfig is likewise the wire shape
// of the whole document. Parse converts these into the public,
// regexp-compiled Config, the same private-wire-struct/public-struct split
// comeback's jsonConfig/jsonJob pair used, just sourced from YAML via
// viper instead of encoding/json.
type yamlDisk struct {
	Name          string   `mapstructure:"name"`
	Root          string   `mapstructure:"root"`
	FileExcludes  []string `mapstructure:"file_excludes"`
	DirExcludes   []string `mapstructure:"dir_excludes"`
	ExcludeHidden bool     `mapstructure:"exclude_hidden"`
}

type yamlConfig struct {
	Disks                 []yamlDisk `mapstructure:"disks"`
	ContentFile           string     `mapstructure:"content_file"`
	ContentFileName       string     `mapstructure:"content_file_name"`
	BlockSize             uint64     `mapstructure:"block_size"`
	Order                 string     `mapstructure:"order"`
	ForceZero             bool       `mapstructure:"force_zero"`
	ForceEmpty            bool       `mapstructure:"force_empty"`
	ClearUndeterminedHash bool       `mapstructure:"clear_undetermined_hash"`
	Verbose               bool       `mapstructure:"verbose"`
	Gui                   bool       `mapstructure:"gui"`
	ParallelDisks         bool       `mapstructure:"parallel_disks"`
	MetricsAddr           string     `mapstructure:"metrics_addr"`
	LogFile               string     `mapstructure:"log_file"`
}

// Parse reads the supplied YAML configuration data into a Config. v carries
// any flag bindings the caller set up (via v.BindPFlag) so CLI flags can
// override file values; pass a fresh viper.Viper if there are none.
func Parse(data []byte, v *viper.Viper) (*Config, error) {
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decoding YAML: %v", err)
	}

	var yCfg yamlConfig
	if err := v.Unmarshal(&yCfg); err != nil {
		return nil, fmt.Errorf("decoding YAML: %v", err)
	}

	cfg := &Config{
		ContentFile:           yCfg.ContentFile,
		ContentFileName:       yCfg.ContentFileName,
		BlockSize:             yCfg.BlockSize,
		Order:                 yCfg.Order,
		ForceZero:             yCfg.ForceZero,
		ForceEmpty:            yCfg.ForceEmpty,
		ClearUndeterminedHash: yCfg.ClearUndeterminedHash,
		Verbose:               yCfg.Verbose,
		Gui:                   yCfg.Gui,
		ParallelDisks:         yCfg.ParallelDisks,
		MetricsAddr:           yCfg.MetricsAddr,
		LogFile:               yCfg.LogFile,
	}

	for _, yd := range yCfg.Disks {
		d := Disk{Name: yd.Name, Root: yd.Root, ExcludeHidden: yd.ExcludeHidden}

		for _, pat := range yd.FileExcludes {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("disk %q: compiling file_excludes pattern %q: %v", yd.Name, pat, err)
			}
			d.FileExcludes = append(d.FileExcludes, re)
		}

		for _, pat := range yd.DirExcludes {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("disk %q: compiling dir_excludes pattern %q: %v", yd.Name, pat, err)
			}
			d.DirExcludes = append(d.DirExcludes, re)
		}

		cfg.Disks = append(cfg.Disks, d)
	}

	return cfg, nil
}
