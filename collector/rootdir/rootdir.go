// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package rootdir lists the root directory of a target.
package rootdir

import (
	"context"
	"io/fs"
	"sort"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/siemens/nscrawler/unsorted"
)

// Name of this feature.
const Name = "rootdir"

func init() {
	collector.Register(Name, &Feature{})
}

// Entry in the root directory.
type Entry struct {
	Name string `cbor:"name"`
	Type string `cbor:"type"`
}

// Feature lists the entries of a target's root directory, sorted by name.
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind { return []nsenter.Kind{nsenter.Mnt} }

func (f *Feature) RootfsCapable() bool { return true }

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	direntries, err := unsorted.ReadDir(opts.Root)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(direntries))
	for _, direntry := range direntries {
		entries = append(entries, Entry{
			Name: direntry.Name(),
			Type: typeOf(direntry.Type()),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func typeOf(mode fs.FileMode) string {
	switch {
	case mode.IsDir():
		return "dir"
	case mode.IsRegular():
		return "file"
	case mode&fs.ModeSymlink != 0:
		return "symlink"
	}
	return "other"
}
