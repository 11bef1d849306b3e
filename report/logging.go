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

package report

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogReporter is a Reporter backed by slog: verbose lines go to the
// logger at Info level, warnings at Warn level, and (when gui is
// enabled) machine-parseable "scan:" and "summary:" records are written
// to a second writer untouched by slog's formatting, matching spec.md
// §6's distinction between the human-facing verbose stream and the
// secondary gui stream a wrapping UI parses.
type LogReporter struct {
	logger  *slog.Logger
	gui     io.Writer // nil disables gui output
	verbose bool
}

// NewFileLogReporter builds a LogReporter whose verbose stream rotates
// through lumberjack at logPath. guiWriter may be nil to disable gui
// output.
func NewFileLogReporter(logPath string, verbose bool, guiWriter io.Writer) *LogReporter {
	lj := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	}
	return &LogReporter{
		logger:  slog.New(slog.NewTextHandler(lj, nil)),
		gui:     guiWriter,
		verbose: verbose,
	}
}

// NewWriterLogReporter builds a LogReporter that writes directly to w,
// useful for tests and for a scan invoked without a log file configured.
func NewWriterLogReporter(w io.Writer, verbose bool, guiWriter io.Writer) *LogReporter {
	return &LogReporter{
		logger:  slog.New(slog.NewTextHandler(w, nil)),
		gui:     guiWriter,
		verbose: verbose,
	}
}

func (r *LogReporter) guiLine(format string, args ...interface{}) {
	if r.gui == nil {
		return
	}
	fmt.Fprintf(r.gui, format+"\n", args...)
}

func (r *LogReporter) Equal(disk, sub string) {
	r.guiLine("scan:equal:%s:%s", disk, sub)
}

func (r *LogReporter) Move(disk, oldSub, newSub string) {
	if r.verbose {
		r.logger.Info("Move", "disk", disk, "from", oldSub, "to", newSub)
	}
	r.guiLine("scan:move:%s:%s:%s", disk, oldSub, newSub)
}

func (r *LogReporter) Restore(disk, sub string) {
	if r.verbose {
		r.logger.Info("Restore", "disk", disk, "sub", sub)
	}
	r.guiLine("scan:restore:%s:%s", disk, sub)
}

func (r *LogReporter) Change(disk, sub string) {
	if r.verbose {
		r.logger.Info("Update", "disk", disk, "sub", sub)
	}
	r.guiLine("scan:update:%s:%s", disk, sub)
}

func (r *LogReporter) Insert(disk, sub string) {
	if r.verbose {
		r.logger.Info("Add", "disk", disk, "sub", sub)
	}
	r.guiLine("scan:add:%s:%s", disk, sub)
}

func (r *LogReporter) Remove(disk, sub string) {
	if r.verbose {
		r.logger.Info("Remove", "disk", disk, "sub", sub)
	}
	r.guiLine("scan:remove:%s:%s", disk, sub)
}

func (r *LogReporter) Excluding(disk, sub string) {
	if r.verbose {
		r.logger.Info("Excluding", "disk", disk, "sub", sub)
	}
}

func (r *LogReporter) Warning(disk, format string, args ...interface{}) {
	r.logger.Warn(fmt.Sprintf(format, args...), "disk", disk)
}

func (r *LogReporter) Summary(disk string, c Counts) {
	r.logger.Info("scan summary", "disk", disk,
		"equal", c.Equal, "move", c.Move, "restore", c.Restore,
		"change", c.Change, "remove", c.Remove, "insert", c.Insert)

	r.guiLine("summary:equal:%d", c.Equal)
	r.guiLine("summary:moved:%d", c.Move)
	r.guiLine("summary:restored:%d", c.Restore)
	r.guiLine("summary:updated:%d", c.Change)
	r.guiLine("summary:removed:%d", c.Remove)
	r.guiLine("summary:added:%d", c.Insert)
}

func (r *LogReporter) Exit(hasDifference bool) {
	if hasDifference {
		r.guiLine("summary:exit:diff")
	} else {
		r.guiLine("summary:exit:equal")
	}
}

var _ Reporter = (*LogReporter)(nil)
