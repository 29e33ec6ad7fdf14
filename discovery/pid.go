// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package discovery

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/siemens/nscrawler/crawler"
	"github.com/thediveo/lxkns/model"
)

// PIDFinder turns PIDs into targets, named after their process names.
type PIDFinder struct {
	PIDs []model.PIDType
	// Wormhole sets the rootfs of the targets to the "/proc/[PID]/root"
	// wormholes into their mount namespaces.
	Wormhole bool
	// Procfs is the mount point of the proc filesystem to use, defaulting to
	// "/proc".
	Procfs string
}

var _ Finder = (*PIDFinder)(nil)

// Targets returns the targets for the PIDs, failing if a process does not
// exist.
func (f *PIDFinder) Targets(ctx context.Context) ([]crawler.Target, error) {
	procfs := f.Procfs
	if procfs == "" {
		procfs = "/proc"
	}
	targets := make([]crawler.Target, 0, len(f.PIDs))
	for _, pid := range f.PIDs {
		if pid <= 0 {
			return nil, fmt.Errorf("invalid PID %d", pid)
		}
		procdir := procfs + "/" + strconv.Itoa(int(pid))
		comm, err := os.ReadFile(procdir + "/comm")
		if err != nil {
			return nil, fmt.Errorf("no process with PID %d, reason: %w", pid, err)
		}
		target := crawler.Target{
			Name: strings.TrimSuffix(string(comm), "\n"),
			PID:  pid,
		}
		if f.Wormhole {
			// Make sure that the wormhole can be passed, as otherwise
			// collecting from it would fail anyway.
			wormhole := procdir + "/root"
			if _, err := os.Stat(wormhole + "/"); err != nil {
				return nil, fmt.Errorf("cannot pass rootfs wormhole of PID %d, reason: %w", pid, err)
			}
			target.Rootfs = wormhole
		}
		targets = append(targets, target)
	}
	return targets, nil
}
