// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package mounts collects the mounts of a target's mount namespace.
package mounts

import (
	"context"
	"os"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
)

// Name of this feature.
const Name = "mounts"

func init() {
	collector.Register(Name, &Feature{})
}

// Mount is a single mount point.
type Mount struct {
	ID         int    `cbor:"id"`
	Parent     int    `cbor:"parent"`
	Mountpoint string `cbor:"mountpoint"`
	Root       string `cbor:"root"`
	FSType     string `cbor:"fstype"`
	Source     string `cbor:"source"`
	Options    string `cbor:"options"`
}

// Feature collects the [Mount] list in mount order. It needs to be run in
// the target's PID and mount namespaces, so that "/proc/self" in the
// target's proc filesystem refers to the collecting process.
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind { return []nsenter.Kind{nsenter.PID, nsenter.Mnt} }

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	mi, err := os.Open(filepath.Join(opts.Root, "proc/self/mountinfo"))
	if err != nil {
		return nil, err
	}
	defer mi.Close()
	infos, err := mountinfo.GetMountsFromReader(mi, nil)
	if err != nil {
		return nil, err
	}
	mounts := make([]Mount, 0, len(infos))
	for _, info := range infos {
		mounts = append(mounts, Mount{
			ID:         info.ID,
			Parent:     info.Parent,
			Mountpoint: info.Mountpoint,
			Root:       info.Root,
			FSType:     info.FSType,
			Source:     info.Source,
			Options:    info.Options,
		})
	}
	return mounts, nil
}
