// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package processes collects the processes visible inside a target's PID
// namespace.
package processes

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/prometheus/procfs"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
)

// Name of this feature.
const Name = "processes"

func init() {
	collector.Register(Name, &Feature{})
}

// Process is a single process, with its PID as seen inside the target's PID
// namespace.
type Process struct {
	PID     int      `cbor:"pid"`
	PPID    int      `cbor:"ppid"`
	Comm    string   `cbor:"comm"`
	State   string   `cbor:"state"`
	Threads int      `cbor:"threads"`
	Cmdline []string `cbor:"cmdline,omitempty"`
}

// Feature collects the [Process] list sorted by PID. It needs to be run in
// the target's PID and mount namespaces, so that the target's proc
// filesystem shows the target's processes.
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind { return []nsenter.Kind{nsenter.PID, nsenter.Mnt} }

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	fs, err := procfs.NewFS(filepath.Join(opts.Root, "proc"))
	if err != nil {
		return nil, err
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, err
	}
	processes := make([]Process, 0, len(procs))
	for _, proc := range procs {
		stat, err := proc.Stat()
		if err != nil {
			// gone in the meantime.
			continue
		}
		cmdline, _ := proc.CmdLine()
		processes = append(processes, Process{
			PID:     stat.PID,
			PPID:    stat.PPID,
			Comm:    stat.Comm,
			State:   stat.State,
			Threads: stat.NumThreads,
			Cmdline: cmdline,
		})
	}
	sort.Slice(processes, func(i, j int) bool { return processes[i].PID < processes[j].PID })
	return processes, nil
}
